package intake

import "time"

// CallRecord is the durable representation of one inbound call.
//
// Invariants:
// - CallID is assigned at call start and never changes.
// - Urgency, once set, is immutable for the remainder of the call.
// - Status only moves forward (see machine.go); the store does not enforce
//   ordering, the state machine does.
//
// NOTE: This is a domain model only. Provider-specific identifiers (the
// Twilio CallSid) live in ExternalCallRef so the core stays provider-agnostic.

type CallRecord struct {
	CallID          string `json:"call_id" db:"call_id"`
	ExternalCallRef string `json:"external_call_ref" db:"external_call_ref"`
	CallerPhone     string `json:"caller_phone" db:"caller_phone"`

	Status CallStatus `json:"status" db:"status"`

	// CustomerFields is replaced as a whole when extraction commits;
	// individual fields are never patched after the fact.
	CustomerFields CustomerFields `json:"customer_fields" db:"customer_fields"`

	// Urgency is 1-5; zero means not yet collected.
	Urgency int `json:"urgency,omitempty" db:"urgency"`

	NotificationStatus NotificationStatus `json:"notification_status" db:"notification_status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	StatusStarted            CallStatus = "started"
	StatusAwaitingExtraction CallStatus = "awaiting_extraction"
	StatusAwaitingUrgency    CallStatus = "awaiting_urgency"
	StatusNotifying          CallStatus = "notifying"
	StatusComplete           CallStatus = "complete"
	StatusHandoff            CallStatus = "handoff"
	StatusAbandoned          CallStatus = "abandoned"
)

// Terminal reports whether no further automated transitions may occur.
func (s CallStatus) Terminal() bool {
	switch s {
	case StatusComplete, StatusHandoff, StatusAbandoned:
		return true
	default:
		return false
	}
}

type NotificationStatus string

const (
	NotificationNotAttempted NotificationStatus = "not_attempted"
	NotificationSent         NotificationStatus = "sent"
	NotificationFailed       NotificationStatus = "failed"
)

// CustomerFields is the structured data extracted from a call transcript.
// Empty string means the caller did not provide the field.
type CustomerFields struct {
	FirstName          string `json:"first_name,omitempty"`
	LastName           string `json:"last_name,omitempty"`
	Phone              string `json:"phone,omitempty"`
	Address            string `json:"address,omitempty"`
	VehicleYear        string `json:"vehicle_year,omitempty"`
	VehicleMake        string `json:"vehicle_make,omitempty"`
	VehicleModel       string `json:"vehicle_model,omitempty"`
	EngineSize         string `json:"engine_size,omitempty"`
	ProblemDescription string `json:"problem_description,omitempty"`
}

// Empty reports whether extraction produced nothing usable.
func (f CustomerFields) Empty() bool {
	return f == CustomerFields{}
}
