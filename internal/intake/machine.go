package intake

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Machine owns the lifecycle of inbound calls from first contact to a
// terminal disposition. Each call is an independent sequential unit of
// work: events for one call are serialized on its session, calls never
// share mutable state.
//
// The machine is a strict forward progression:
//
//	started -> awaiting_extraction -> awaiting_urgency -> notifying -> complete
//
// with handoff absorbing extraction failures and abandoned absorbing
// disconnects at any non-terminal point. No state is ever revisited;
// duplicate or out-of-order events are no-ops keyed on the current status.

type Machine struct {
	store     Store
	extractor Extractor
	sender    Sender
	handoff   *HandoffPolicy

	// Optional collaborators; nil disables them without changing behavior.
	links  ReviewLinker
	events EventSink

	cfg   MachineConfig
	log   *slog.Logger
	clock func() time.Time
	newID func() string

	mu       sync.Mutex
	sessions map[string]*session
	lastSweep time.Time
}

// MachineConfig carries tunables; zero values get safe defaults.
type MachineConfig struct {
	// CollaboratorTimeout bounds every extractor, sender and store call.
	// A timeout is indistinguishable from an explicit failure.
	CollaboratorTimeout time.Duration

	// GatherTimeout and RecordMaxDuration are passed through to directives.
	GatherTimeout     time.Duration
	RecordMaxDuration time.Duration

	// SessionRetention controls how long terminal sessions are kept around
	// to absorb late duplicate events before being swept.
	SessionRetention time.Duration

	// BusinessName is used in spoken prompts.
	BusinessName string
}

func (c MachineConfig) withDefaults() MachineConfig {
	out := c
	if out.CollaboratorTimeout <= 0 {
		out.CollaboratorTimeout = 15 * time.Second
	}
	if out.GatherTimeout <= 0 {
		out.GatherTimeout = 5 * time.Second
	}
	if out.RecordMaxDuration <= 0 {
		out.RecordMaxDuration = 120 * time.Second
	}
	if out.SessionRetention <= 0 {
		out.SessionRetention = time.Hour
	}
	if out.BusinessName == "" {
		out.BusinessName = "our shop"
	}
	return out
}

// Event kinds recorded to the EventSink.
const (
	EventCallStarted        = "call_started"
	EventExtractionOK       = "extraction_succeeded"
	EventExtractionFailed   = "extraction_failed"
	EventUrgencySet         = "urgency_set"
	EventNotificationSent   = "notification_sent"
	EventNotificationFailed = "notification_failed"
	EventHandoff            = "handoff"
	EventAbandoned          = "abandoned"
)

type session struct {
	mu sync.Mutex

	callID      string
	externalRef string
	callerPhone string

	status       CallStatus
	fields       CustomerFields
	urgency      int
	tier         UrgencyTier
	notification NotificationStatus

	// persisted is true once the store confirmed record creation.
	persisted bool

	// pendingDigits holds a digit event that arrived before extraction
	// completed; it is replayed as soon as the urgency stage opens.
	pendingDigits *string

	doneAt time.Time
}

func NewMachine(store Store, extractor Extractor, sender Sender, handoff *HandoffPolicy, cfg MachineConfig, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	return &Machine{
		store:     store,
		extractor: extractor,
		sender:    sender,
		handoff:   handoff,
		cfg:       cfg.withDefaults(),
		log:       log,
		clock:     time.Now,
		newID:     uuid.NewString,
		sessions:  make(map[string]*session),
	}
}

// WithReviewLinker attaches the review-link minting service.
func (m *Machine) WithReviewLinker(l ReviewLinker) *Machine { m.links = l; return m }

// WithEventSink attaches the best-effort lifecycle event log.
func (m *Machine) WithEventSink(s EventSink) *Machine { m.events = s; return m }

// HandleCallStarted begins intake for a new call and instructs the edge to
// collect a recording. Record creation is best-effort: a store outage keeps
// the call alive on in-memory state.
func (m *Machine) HandleCallStarted(ctx context.Context, externalRef, callerPhone string) Directive {
	s, created := m.session(externalRef, callerPhone)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !created {
		// Duplicate start event: re-issue the current stage prompt.
		return m.stagePrompt(s)
	}

	cctx, cancel := m.bound(ctx)
	defer cancel()
	if _, err := m.store.Create(cctx, s.callID, callerPhone, externalRef); err != nil {
		m.log.Warn("call record create failed, continuing in memory",
			"call_id", s.callID, "err", err)
	} else {
		s.persisted = true
	}

	s.status = StatusAwaitingExtraction
	m.record(ctx, s.callID, EventCallStarted, "caller "+callerPhone)

	return RecordDirective(m.greetingPrompt(), m.cfg.RecordMaxDuration)
}

// HandleRecordingFinished runs the single extraction attempt. An empty
// transcript or any extractor failure hands the call to a human; a store
// failure that leaves the extracted fields unconfirmed does the same, since
// losing customer contact data is the one failure this system must avoid.
func (m *Machine) HandleRecordingFinished(ctx context.Context, externalRef, transcript string) Directive {
	s := m.lookup(externalRef)
	if s == nil {
		// Unknown call (restart, lost session): never strand the caller.
		return m.handoff.Directive()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotency guard: once the urgency stage has been entered, late or
	// duplicate recording events change nothing.
	if s.status != StatusStarted && s.status != StatusAwaitingExtraction {
		return m.stagePrompt(s)
	}

	if transcript == "" {
		return m.toHandoff(ctx, s, "empty transcript")
	}

	cctx, cancel := m.bound(ctx)
	fields, err := m.extractor.Extract(cctx, transcript)
	cancel()
	if err != nil {
		return m.toHandoff(ctx, s, fmt.Sprintf("extraction failed: %v", err))
	}
	if fields.Empty() {
		return m.toHandoff(ctx, s, "extraction returned no fields")
	}

	if !s.persisted {
		// The record never made it to the store, so the extracted fields
		// cannot be confirmed durable. The operator takes over rather than
		// risk losing contact data at a later stage.
		s.fields = fields
		return m.toHandoff(ctx, s, "call record not durable")
	}
	cctx, cancel = m.bound(ctx)
	err = m.store.MergeFields(cctx, s.callID, fields)
	cancel()
	if err != nil {
		s.fields = fields
		return m.toHandoff(ctx, s, fmt.Sprintf("field merge unconfirmed: %v", err))
	}

	s.fields = fields
	s.status = StatusAwaitingUrgency
	m.record(ctx, s.callID, EventExtractionOK, "")

	if s.pendingDigits != nil {
		digits := *s.pendingDigits
		s.pendingDigits = nil
		return m.applyUrgency(ctx, s, digits)
	}
	return m.urgencyPrompt()
}

// HandleDigitsPressed collects the urgency rating and drives the call
// through notification to completion. Digits arriving before extraction has
// committed are queued and replayed; digits after urgency is set are no-ops.
func (m *Machine) HandleDigitsPressed(ctx context.Context, externalRef, digits string) Directive {
	s := m.lookup(externalRef)
	if s == nil {
		return m.handoff.Directive()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusStarted, StatusAwaitingExtraction:
		// Queue-and-defer: the audio edge does not guarantee strict
		// ordering, so hold on to the rating until extraction commits.
		if s.pendingDigits == nil {
			d := digits
			s.pendingDigits = &d
		}
		return SayDirective("One moment please.")
	case StatusAwaitingUrgency:
		return m.applyUrgency(ctx, s, digits)
	default:
		// Urgency is immutable once set; terminal states stay put.
		return HangupDirective("")
	}
}

// HandleCallDisconnected absorbs a mid-call hangup. No notification is
// attempted for an abandoned call; disconnects on terminal calls are no-ops.
func (m *Machine) HandleCallDisconnected(ctx context.Context, externalRef string) {
	s := m.lookup(externalRef)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return
	}
	m.finish(ctx, s, StatusAbandoned)
	m.record(ctx, s.callID, EventAbandoned, "disconnected in status "+string(s.status))
}

// applyUrgency performs transitions 3 and 4 in one pass: rate, notify,
// complete. Notification failure is recorded for manual follow-up and never
// blocks completion; by this point the customer data is already durable.
func (m *Machine) applyUrgency(ctx context.Context, s *session, digits string) Directive {
	urgency, tier := ClassifyUrgency(digits)
	s.urgency = urgency
	s.tier = tier

	cctx, cancel := m.bound(ctx)
	if err := m.store.SetUrgency(cctx, s.callID, urgency); err != nil {
		m.log.Warn("urgency not persisted", "call_id", s.callID, "err", err)
	}
	cancel()
	m.record(ctx, s.callID, EventUrgencySet, fmt.Sprintf("urgency=%d tier=%s", urgency, tier))

	s.status = StatusNotifying
	m.setStatus(ctx, s, StatusNotifying)

	reference := s.callID
	if m.links != nil {
		cctx, cancel = m.bound(ctx)
		if ref, err := m.links.Link(cctx, s.callID); err == nil && ref != "" {
			reference = ref
		} else if err != nil {
			m.log.Warn("review link unavailable, falling back to call id",
				"call_id", s.callID, "err", err)
		}
		cancel()
	}

	cctx, cancel = m.bound(ctx)
	sendErr := m.sender.Send(cctx, s.callerPhone, reference)
	cancel()
	if sendErr != nil {
		s.notification = NotificationFailed
		m.log.Warn("confirmation notification failed", "call_id", s.callID, "err", sendErr)
		m.record(ctx, s.callID, EventNotificationFailed, sendErr.Error())
	} else {
		s.notification = NotificationSent
		m.record(ctx, s.callID, EventNotificationSent, "")
	}
	cctx, cancel = m.bound(ctx)
	if err := m.store.SetNotificationStatus(cctx, s.callID, s.notification); err != nil {
		m.log.Warn("notification status not persisted", "call_id", s.callID, "err", err)
	}
	cancel()

	m.finish(ctx, s, StatusComplete)

	return HangupDirective(m.confirmationPrompt(tier))
}

func (m *Machine) toHandoff(ctx context.Context, s *session, reason string) Directive {
	m.finish(ctx, s, StatusHandoff)
	m.log.Info("call handed off", "call_id", s.callID, "reason", reason)
	m.record(ctx, s.callID, EventHandoff, reason)
	return m.handoff.Directive()
}

// finish moves a session to a terminal status, persisting best-effort.
func (m *Machine) finish(ctx context.Context, s *session, status CallStatus) {
	s.status = status
	s.doneAt = m.clock()
	m.setStatus(ctx, s, status)
}

func (m *Machine) setStatus(ctx context.Context, s *session, status CallStatus) {
	cctx, cancel := m.bound(ctx)
	defer cancel()
	if err := m.store.SetStatus(cctx, s.callID, status); err != nil {
		m.log.Warn("status not persisted", "call_id", s.callID, "status", status, "err", err)
	}
}

// stagePrompt re-issues the directive for the session's current stage so
// duplicate events get a coherent response instead of an error.
func (m *Machine) stagePrompt(s *session) Directive {
	switch s.status {
	case StatusStarted, StatusAwaitingExtraction:
		return RecordDirective(m.greetingPrompt(), m.cfg.RecordMaxDuration)
	case StatusAwaitingUrgency:
		return m.urgencyPrompt()
	case StatusHandoff:
		return m.handoff.Directive()
	default:
		return HangupDirective("")
	}
}

func (m *Machine) greetingPrompt() string {
	return fmt.Sprintf("Hi, you've reached %s. I'm not available right now, but I'd love to help. "+
		"After the beep, please tell me your name, your vehicle's year, make and model, "+
		"and what's going on with it.", m.cfg.BusinessName)
}

func (m *Machine) urgencyPrompt() Directive {
	return GatherDirective(
		"Thanks, I got all of that. On a scale of one to five, with five being an emergency, "+
			"how urgent is this? Press a number on your keypad.",
		1, m.cfg.GatherTimeout)
}

func (m *Machine) confirmationPrompt(tier UrgencyTier) string {
	if tier == TierHigh {
		return "Got it, this sounds urgent. You're on the same-day, high priority list and " +
			"I'll reach out as soon as possible. I'm texting you a link to review your request. Thanks!"
	}
	return "Perfect, you're all set. I'll get back to you by the next business day. " +
		"I'm texting you a link to review your request. Thanks!"
}

func (m *Machine) record(ctx context.Context, callID, kind, message string) {
	if m.events == nil {
		return
	}
	m.events.Record(ctx, callID, kind, message)
}

func (m *Machine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.CollaboratorTimeout)
}

// session returns the session for externalRef, creating it if absent.
func (m *Machine) session(externalRef, callerPhone string) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	if s, ok := m.sessions[externalRef]; ok {
		return s, false
	}
	s := &session{
		callID:       m.newID(),
		externalRef:  externalRef,
		callerPhone:  callerPhone,
		status:       StatusStarted,
		notification: NotificationNotAttempted,
	}
	m.sessions[externalRef] = s
	return s, true
}

func (m *Machine) lookup(externalRef string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[externalRef]
}

// sweepLocked drops terminal sessions past the retention window. Terminal
// sessions are kept for a while so late duplicates remain no-ops.
func (m *Machine) sweepLocked() {
	now := m.clock()
	if now.Sub(m.lastSweep) < m.cfg.SessionRetention/4 {
		return
	}
	m.lastSweep = now
	for ref, s := range m.sessions {
		s.mu.Lock()
		expired := s.status.Terminal() && !s.doneAt.IsZero() && now.Sub(s.doneAt) > m.cfg.SessionRetention
		s.mu.Unlock()
		if expired {
			delete(m.sessions, ref)
		}
	}
}
