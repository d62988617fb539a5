package events

import "time"

// Event is an immutable, append-only record of one intake lifecycle step.
//
// Invariants:
// - Events are never updated or deleted.
// - Logging is best-effort: a failed append must never block the call flow.
//
// Storage recommendation (Postgres):
// - Table intake_events with an INSERT-only policy.
// - Partition or prune by time for retention; the call data itself lives
//   in call_records, these are for ops forensics only.

type Event struct {
	ID     string `json:"id" db:"id"`
	CallID string `json:"call_id" db:"call_id"`

	// Kind is the lifecycle step, e.g. "call_started", "handoff".
	Kind string `json:"kind" db:"kind"`

	// Message is a short human-readable note for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
