package intake

import (
	"math/rand"
	"time"
)

// HandoffPolicy decides where a call goes when automation gives up.
//
// It deliberately depends on nothing but its own configuration: a store
// outage or a half-created record must never stop a caller from reaching a
// human, so the policy works from the in-memory call context alone.

type HandoffPolicy struct {
	// PrimaryContact is the fallback operator number. Required.
	PrimaryContact string

	// Contacts are optional weighted alternatives (several mechanics on
	// rotation). If none carries a positive weight, PrimaryContact wins.
	Contacts []OperatorContact

	// TransferWindow optionally forces every handoff to a single
	// destination for its duration (after-hours service, vacation cover).
	// An expired window is ignored.
	TransferWindow *TransferWindow

	// Greeting is spoken before the transfer.
	Greeting string

	RNG *rand.Rand
	Now func() time.Time
}

type OperatorContact struct {
	// Number is the dial target, E.164 where possible.
	Number string
	// Weight must be > 0 to be eligible.
	Weight int
}

type TransferWindow struct {
	Destination string
	StartsAt    time.Time
	EndsAt      time.Time
}

func (w *TransferWindow) active(now time.Time) bool {
	if w == nil || w.Destination == "" {
		return false
	}
	return !now.Before(w.StartsAt) && now.Before(w.EndsAt)
}

// Directive produces the transfer instruction for a handed-off call.
func (p *HandoffPolicy) Directive() Directive {
	greeting := p.Greeting
	if greeting == "" {
		greeting = "Let me connect you with someone who can help."
	}
	return TransferDirective(greeting, p.pick())
}

func (p *HandoffPolicy) pick() string {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	if p.TransferWindow.active(now) {
		return p.TransferWindow.Destination
	}

	var total int
	for _, c := range p.Contacts {
		if c.Weight > 0 {
			total += c.Weight
		}
	}
	if total <= 0 {
		return p.PrimaryContact
	}

	rng := p.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(now.UnixNano()))
	}
	r := rng.Intn(total)

	var acc int
	for _, c := range p.Contacts {
		if c.Weight <= 0 {
			continue
		}
		acc += c.Weight
		if r < acc {
			return c.Number
		}
	}
	return p.PrimaryContact
}
