package telephony

import (
	"net/http"
	"strings"
)

// VoiceWebhook captures the subset of Twilio voice webhook fields the
// intake flow cares about. Twilio sends application/x-www-form-urlencoded
// by default.
//
// Keep this adapter-only: no intake decisions are made here.

type VoiceWebhook struct {
	CallSid    string
	AccountSid string
	From       string
	To         string
	CallStatus string

	// Digits is set on gather action callbacks; empty on gather timeout.
	Digits string

	// Recording callback fields.
	RecordingSid string
	RecordingURL string

	// TranscriptionText is present when the provider transcribes inline.
	TranscriptionText string
}

func ParseVoiceWebhook(r *http.Request) (VoiceWebhook, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceWebhook{}, err
	}
	form := func(key string) string { return strings.TrimSpace(r.PostFormValue(key)) }

	w := VoiceWebhook{
		CallSid:           form("CallSid"),
		AccountSid:        form("AccountSid"),
		From:              form("From"),
		To:                form("To"),
		CallStatus:        form("CallStatus"),
		Digits:            form("Digits"),
		RecordingSid:      form("RecordingSid"),
		RecordingURL:      form("RecordingUrl"),
		TranscriptionText: form("TranscriptionText"),
	}
	if w.From == "" {
		// Some carriers send Caller instead of From.
		w.From = form("Caller")
	}
	return w, nil
}
