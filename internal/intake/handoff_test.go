package intake

import (
	"math/rand"
	"testing"
	"time"
)

func TestHandoff_PrimaryContactByDefault(t *testing.T) {
	p := &HandoffPolicy{PrimaryContact: "+15550001111"}
	d := p.Directive()
	if d.Kind != DirectiveTransfer || d.Destination != "+15550001111" {
		t.Fatalf("unexpected directive: %+v", d)
	}
	if d.Speech == "" {
		t.Fatalf("expected default greeting")
	}
}

func TestHandoff_WeightedContacts(t *testing.T) {
	p := &HandoffPolicy{
		PrimaryContact: "+15550001111",
		Contacts: []OperatorContact{
			{Number: "+15550002222", Weight: 1},
			{Number: "+15550003333", Weight: 3},
		},
		RNG: rand.New(rand.NewSource(7)),
	}

	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		seen[p.Directive().Destination]++
	}
	if seen["+15550002222"] == 0 || seen["+15550003333"] == 0 {
		t.Fatalf("expected both contacts to be picked, got %v", seen)
	}
	if seen["+15550003333"] <= seen["+15550002222"] {
		t.Fatalf("expected weight 3 to dominate, got %v", seen)
	}
	if seen["+15550001111"] != 0 {
		t.Fatalf("primary should not be used while weighted contacts exist, got %v", seen)
	}
}

func TestHandoff_ZeroWeightsFallBackToPrimary(t *testing.T) {
	p := &HandoffPolicy{
		PrimaryContact: "+15550001111",
		Contacts:       []OperatorContact{{Number: "+15550002222", Weight: 0}},
	}
	if got := p.Directive().Destination; got != "+15550001111" {
		t.Fatalf("expected primary, got %q", got)
	}
}

func TestHandoff_TransferWindowOverrides(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := &HandoffPolicy{
		PrimaryContact: "+15550001111",
		Contacts:       []OperatorContact{{Number: "+15550002222", Weight: 5}},
		TransferWindow: &TransferWindow{
			Destination: "+15550004444",
			StartsAt:    now.Add(-time.Hour),
			EndsAt:      now.Add(time.Hour),
		},
		Now: func() time.Time { return now },
	}
	if got := p.Directive().Destination; got != "+15550004444" {
		t.Fatalf("expected window destination, got %q", got)
	}

	// Expired window is ignored.
	p.Now = func() time.Time { return now.Add(2 * time.Hour) }
	if got := p.Directive().Destination; got == "+15550004444" {
		t.Fatalf("expired window still routing")
	}
}
