package telephony

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"intake-platform/internal/intake"
	"intake-platform/internal/store"

	"github.com/gin-gonic/gin"
)

type stubExtractor struct{ fields intake.CustomerFields }

func (s stubExtractor) Extract(ctx context.Context, transcript string) (intake.CustomerFields, error) {
	return s.fields, nil
}

type stubSender struct{ calls int }

func (s *stubSender) Send(ctx context.Context, destination, reference string) error {
	s.calls++
	return nil
}

type stubTranscriber struct {
	text  string
	calls int
}

func (s *stubTranscriber) Transcribe(ctx context.Context, recordingURL string) (string, error) {
	s.calls++
	return s.text, nil
}

func newTestRouter(h *VoiceHandlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/twilio/voice", h.HandleInbound)
	r.POST("/webhooks/twilio/recording", h.HandleRecording)
	r.POST("/webhooks/twilio/digits", h.HandleDigits)
	r.POST("/webhooks/twilio/status", h.HandleStatus)
	return r
}

func newTestHandlers(transcriber Transcriber) (*VoiceHandlers, *stubSender, *store.Memory) {
	sender := &stubSender{}
	st := store.NewMemory()
	machine := intake.NewMachine(
		st,
		stubExtractor{fields: intake.CustomerFields{FirstName: "Sam", ProblemDescription: "flat tire"}},
		sender,
		&intake.HandoffPolicy{PrimaryContact: "+15550009999"},
		intake.MachineConfig{},
		slog.Default(),
	)
	return &VoiceHandlers{
		Machine:     machine,
		Endpoints:   testEndpoints,
		Transcriber: transcriber,
	}, sender, st
}

func post(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func TestVoiceHandlers_FullCallFlow(t *testing.T) {
	transcriber := &stubTranscriber{text: "my name is Sam, flat tire"}
	h, sender, _ := newTestHandlers(transcriber)
	r := newTestRouter(h)

	w := post(r, "/webhooks/twilio/voice", url.Values{
		"CallSid": {"CA1"}, "From": {"+15551230000"},
	})
	if w.Code != 200 || !strings.Contains(w.Body.String(), "<Record") {
		t.Fatalf("inbound: code=%d body=%s", w.Code, w.Body.String())
	}

	w = post(r, "/webhooks/twilio/recording", url.Values{
		"CallSid":      {"CA1"},
		"RecordingSid": {"RE1"},
		"RecordingUrl": {"https://api.twilio.com/rec/RE1"},
	})
	if w.Code != 200 || !strings.Contains(w.Body.String(), "<Gather") {
		t.Fatalf("recording: code=%d body=%s", w.Code, w.Body.String())
	}
	if transcriber.calls != 1 {
		t.Fatalf("expected one transcription, got %d", transcriber.calls)
	}

	w = post(r, "/webhooks/twilio/digits", url.Values{
		"CallSid": {"CA1"}, "Digits": {"5"},
	})
	if w.Code != 200 || !strings.Contains(w.Body.String(), "<Hangup") {
		t.Fatalf("digits: code=%d body=%s", w.Code, w.Body.String())
	}
	if sender.calls != 1 {
		t.Fatalf("expected one notification, got %d", sender.calls)
	}
}

func TestVoiceHandlers_ProviderTranscriptionSkipsTranscriber(t *testing.T) {
	transcriber := &stubTranscriber{text: "should not be used"}
	h, _, _ := newTestHandlers(transcriber)
	r := newTestRouter(h)

	post(r, "/webhooks/twilio/voice", url.Values{"CallSid": {"CA1"}, "From": {"+1555"}})
	post(r, "/webhooks/twilio/recording", url.Values{
		"CallSid":           {"CA1"},
		"RecordingUrl":      {"https://api.twilio.com/rec/RE1"},
		"TranscriptionText": {"inline transcript"},
	})
	if transcriber.calls != 0 {
		t.Fatalf("transcriber should be skipped when the provider transcribed inline")
	}
}

func TestVoiceHandlers_DuplicateRecordingClaimedOnce(t *testing.T) {
	transcriber := &stubTranscriber{text: "hello"}
	h, _, _ := newTestHandlers(transcriber)

	claims := map[string]bool{}
	h.DedupeClaim = func(ctx context.Context, key string) bool {
		if claims[key] {
			return false
		}
		claims[key] = true
		return true
	}
	r := newTestRouter(h)

	post(r, "/webhooks/twilio/voice", url.Values{"CallSid": {"CA1"}, "From": {"+1555"}})

	form := url.Values{
		"CallSid":      {"CA1"},
		"RecordingSid": {"RE1"},
		"RecordingUrl": {"https://api.twilio.com/rec/RE1"},
	}
	post(r, "/webhooks/twilio/recording", form)
	post(r, "/webhooks/twilio/recording", form)

	if transcriber.calls != 1 {
		t.Fatalf("duplicate delivery paid for a second transcription: %d", transcriber.calls)
	}
}

func TestVoiceHandlers_StatusCallbackAbandons(t *testing.T) {
	h, sender, st := newTestHandlers(nil)
	r := newTestRouter(h)

	post(r, "/webhooks/twilio/voice", url.Values{"CallSid": {"CA1"}, "From": {"+1555"}})

	w := post(r, "/webhooks/twilio/status", url.Values{
		"CallSid": {"CA1"}, "CallStatus": {"completed"},
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status: code=%d", w.Code)
	}
	if sender.calls != 0 {
		t.Fatalf("abandoned call must not notify")
	}

	rows, _ := st.ListCalls(context.Background(), time.Unix(0, 0), time.Now().Add(time.Hour))
	if len(rows) != 1 || rows[0].Status != intake.StatusAbandoned {
		t.Fatalf("expected abandoned record, got %+v", rows)
	}
}

func TestVoiceHandlers_RejectsMissingCallSid(t *testing.T) {
	h, _, _ := newTestHandlers(nil)
	r := newTestRouter(h)

	w := post(r, "/webhooks/twilio/voice", url.Values{"From": {"+1555"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
