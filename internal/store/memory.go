package store

import (
	"context"
	"sync"
	"time"

	"intake-platform/internal/intake"
)

// Memory is an in-memory call record store for tests and local development.
// It honors the same contract as the Postgres store: read-your-writes per
// call_id, atomic field-set replacement, cross-call isolation.
//
// FailNext* hooks let tests simulate store outages.

type Memory struct {
	mu      sync.Mutex
	records map[string]intake.CallRecord
	clock   func() time.Time

	FailNextCreate bool
	FailNextMerge  bool
	FailAll        bool
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]intake.CallRecord), clock: time.Now}
}

// WithClock injects a deterministic clock for tests.
func (m *Memory) WithClock(clock func() time.Time) *Memory {
	m.clock = clock
	return m
}

func (m *Memory) Create(ctx context.Context, callID, callerPhone, externalRef string) (intake.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll || m.FailNextCreate {
		m.FailNextCreate = false
		return intake.CallRecord{}, errUnavailable
	}
	if rec, ok := m.records[callID]; ok {
		return rec, nil
	}
	now := m.clock().UTC()
	rec := intake.CallRecord{
		CallID:             callID,
		ExternalCallRef:    externalRef,
		CallerPhone:        callerPhone,
		Status:             intake.StatusStarted,
		NotificationStatus: intake.NotificationNotAttempted,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.records[callID] = rec
	return rec, nil
}

func (m *Memory) MergeFields(ctx context.Context, callID string, fields intake.CustomerFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll || m.FailNextMerge {
		m.FailNextMerge = false
		return errUnavailable
	}
	rec, ok := m.records[callID]
	if !ok {
		return intake.ErrNotFound
	}
	// The whole field set is replaced atomically; no per-field patching.
	rec.CustomerFields = fields
	rec.UpdatedAt = m.clock().UTC()
	m.records[callID] = rec
	return nil
}

func (m *Memory) SetUrgency(ctx context.Context, callID string, urgency int) error {
	return m.update(callID, func(rec *intake.CallRecord) {
		if rec.Urgency == 0 {
			rec.Urgency = urgency
		}
	})
}

func (m *Memory) SetStatus(ctx context.Context, callID string, status intake.CallStatus) error {
	return m.update(callID, func(rec *intake.CallRecord) { rec.Status = status })
}

func (m *Memory) SetNotificationStatus(ctx context.Context, callID string, ns intake.NotificationStatus) error {
	return m.update(callID, func(rec *intake.CallRecord) { rec.NotificationStatus = ns })
}

func (m *Memory) Get(ctx context.Context, callID string) (intake.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return intake.CallRecord{}, errUnavailable
	}
	rec, ok := m.records[callID]
	if !ok {
		return intake.CallRecord{}, intake.ErrNotFound
	}
	return rec, nil
}

// ListNotificationFailures returns completed calls whose confirmation SMS
// failed; this feeds the manual follow-up queue.
func (m *Memory) ListNotificationFailures(ctx context.Context) ([]intake.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]intake.CallRecord, 0)
	for _, rec := range m.records {
		if rec.NotificationStatus == intake.NotificationFailed {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListCalls returns records created inside [from, to).
func (m *Memory) ListCalls(ctx context.Context, from, to time.Time) ([]intake.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]intake.CallRecord, 0)
	for _, rec := range m.records {
		if rec.CreatedAt.Before(from) || !rec.CreatedAt.Before(to) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) update(callID string, fn func(*intake.CallRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return errUnavailable
	}
	rec, ok := m.records[callID]
	if !ok {
		return intake.ErrNotFound
	}
	fn(&rec)
	rec.UpdatedAt = m.clock().UTC()
	m.records[callID] = rec
	return nil
}
