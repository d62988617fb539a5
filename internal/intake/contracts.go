package intake

import (
	"context"
	"errors"
)

// Collaborator contracts consumed by the state machine. Implementations live
// in internal/store, internal/extraction and internal/notify; the machine is
// testable with in-memory doubles for all of them.

var (
	// ErrNotFound is returned by Store implementations for unknown call IDs.
	ErrNotFound = errors.New("intake: call record not found")
)

// Store persists call records. The contract is single-call
// read-your-writes: a MergeFields followed by a Get for the same call_id
// must observe the merged fields. Cross-call isolation is assumed.
//
// Implementations absorb their own retries; the machine never retries a
// store call and treats any error as the record being unconfirmed.
type Store interface {
	Create(ctx context.Context, callID, callerPhone, externalRef string) (CallRecord, error)
	MergeFields(ctx context.Context, callID string, fields CustomerFields) error
	SetUrgency(ctx context.Context, callID string, urgency int) error
	SetStatus(ctx context.Context, callID string, status CallStatus) error
	SetNotificationStatus(ctx context.Context, callID string, ns NotificationStatus) error
	Get(ctx context.Context, callID string) (CallRecord, error)
}

// Extractor turns a free-form transcript into structured customer fields.
// The result is all-or-nothing: a non-nil error means no fields were
// produced, and the machine falls back to a human operator.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (CustomerFields, error)
}

// Sender delivers the record-review notification to the caller.
// reference is an opaque review reference (usually a short link).
type Sender interface {
	Send(ctx context.Context, destination, reference string) error
}

// ReviewLinker mints the review reference included in the notification.
// A failure here must not block the notification; callers fall back to the
// raw call ID.
type ReviewLinker interface {
	Link(ctx context.Context, callID string) (string, error)
}

// EventSink receives best-effort lifecycle events for ops visibility.
// Implementations must never block or fail the call flow.
type EventSink interface {
	Record(ctx context.Context, callID, kind, message string)
}
