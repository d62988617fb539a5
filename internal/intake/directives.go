package intake

import "time"

// Directive is the provider-agnostic instruction returned to the telephony
// edge after each event. The edge owns rendering (TwiML, SSML, whatever the
// carrier speaks); the machine only decides what should happen next.

type Directive struct {
	Kind DirectiveKind `json:"kind"`

	// Speech is spoken to the caller before the verb executes (optional).
	Speech string `json:"speech,omitempty"`

	// Next names the follow-up event the edge should route the result to.
	// Only meaningful for Record and Gather.
	Next NextAction `json:"next,omitempty"`

	// Gather parameters.
	NumDigits int           `json:"num_digits,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`

	// MaxDuration caps a Record verb.
	MaxDuration time.Duration `json:"max_duration,omitempty"`

	// Destination is the dial target for Transfer.
	Destination string `json:"destination,omitempty"`
}

type DirectiveKind string

const (
	DirectiveSay      DirectiveKind = "say"
	DirectiveRecord   DirectiveKind = "record"
	DirectiveGather   DirectiveKind = "gather"
	DirectiveTransfer DirectiveKind = "transfer"
	DirectiveHangup   DirectiveKind = "hangup"
)

// NextAction is a logical continuation point; the edge maps it to a
// callback URL.
type NextAction string

const (
	NextRecording NextAction = "recording"
	NextDigits    NextAction = "digits"
)

func SayDirective(speech string) Directive {
	return Directive{Kind: DirectiveSay, Speech: speech}
}

func RecordDirective(speech string, maxDuration time.Duration) Directive {
	return Directive{Kind: DirectiveRecord, Speech: speech, Next: NextRecording, MaxDuration: maxDuration}
}

func GatherDirective(speech string, numDigits int, timeout time.Duration) Directive {
	return Directive{Kind: DirectiveGather, Speech: speech, Next: NextDigits, NumDigits: numDigits, Timeout: timeout}
}

func TransferDirective(speech, destination string) Directive {
	return Directive{Kind: DirectiveTransfer, Speech: speech, Destination: destination}
}

func HangupDirective(speech string) Directive {
	return Directive{Kind: DirectiveHangup, Speech: speech}
}
