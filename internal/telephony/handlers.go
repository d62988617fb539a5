package telephony

import (
	"context"
	"net/http"
	"time"

	"intake-platform/internal/intake"
	"intake-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// VoiceHandlers converts Twilio voice webhooks to intake events, lets the
// state machine decide, and writes TwiML back. No intake logic lives here.
//
// NOTE: These endpoints should sit behind Twilio signature validation in
// production.

type VoiceHandlers struct {
	Machine   *intake.Machine
	Endpoints Endpoints

	// Transcriber turns a recording URL into text before the machine sees
	// the event. Nil means only provider-supplied transcriptions are used.
	Transcriber Transcriber

	// DedupeClaim reports whether this delivery is the first one seen for
	// key. The machine's status guard is authoritative; this only avoids
	// paying for a second transcription on duplicate deliveries. Nil
	// disables dedupe.
	DedupeClaim func(ctx context.Context, key string) bool

	// TranscribeTimeout bounds the transcription call.
	TranscribeTimeout time.Duration
}

// Transcriber is the speech-to-text black box: audio in, text out, or
// failure. A failure is treated as an empty transcript, which the machine
// resolves by handing the call to a human.
type Transcriber interface {
	Transcribe(ctx context.Context, recordingURL string) (string, error)
}

// HandleInbound answers a new call and starts intake.
func (h *VoiceHandlers) HandleInbound(c *gin.Context) {
	w, ok := h.parse(c)
	if !ok {
		return
	}
	d := h.Machine.HandleCallStarted(c.Request.Context(), w.CallSid, w.From)
	h.respond(c, d)
}

// HandleRecording receives the finished recording, obtains a transcript and
// advances the machine through extraction.
func (h *VoiceHandlers) HandleRecording(c *gin.Context) {
	log := logger.FromGin(c)
	w, ok := h.parse(c)
	if !ok {
		return
	}

	transcript := w.TranscriptionText
	if transcript == "" && w.RecordingURL != "" && h.Transcriber != nil {
		if h.claim(c.Request.Context(), "recording:"+w.RecordingSid) {
			tctx, cancel := context.WithTimeout(c.Request.Context(), h.transcribeTimeout())
			text, err := h.Transcriber.Transcribe(tctx, w.RecordingURL)
			cancel()
			if err != nil {
				log.Warn("transcription failed", "call_sid", w.CallSid, "err", err)
			} else {
				transcript = text
			}
		}
	}

	d := h.Machine.HandleRecordingFinished(c.Request.Context(), w.CallSid, transcript)
	h.respond(c, d)
}

// HandleDigits receives the urgency rating (or a gather timeout with no
// digits, which the machine treats as the default rating).
func (h *VoiceHandlers) HandleDigits(c *gin.Context) {
	w, ok := h.parse(c)
	if !ok {
		return
	}
	d := h.Machine.HandleDigitsPressed(c.Request.Context(), w.CallSid, w.Digits)
	h.respond(c, d)
}

// HandleStatus consumes call status callbacks; a terminal carrier status on
// a live intake marks the call abandoned.
func (h *VoiceHandlers) HandleStatus(c *gin.Context) {
	w, ok := h.parse(c)
	if !ok {
		return
	}
	switch w.CallStatus {
	case "completed", "busy", "failed", "no-answer", "canceled":
		h.Machine.HandleCallDisconnected(c.Request.Context(), w.CallSid)
	}
	c.Status(http.StatusNoContent)
}

func (h *VoiceHandlers) parse(c *gin.Context) (VoiceWebhook, bool) {
	log := logger.FromGin(c)
	w, err := ParseVoiceWebhook(c.Request)
	if err != nil {
		log.Warn("voice webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return VoiceWebhook{}, false
	}
	if w.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid required"})
		return VoiceWebhook{}, false
	}
	return w, true
}

func (h *VoiceHandlers) respond(c *gin.Context, d intake.Directive) {
	log := logger.FromGin(c)
	twiml, err := RenderTwiML(d, h.Endpoints)
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

func (h *VoiceHandlers) claim(ctx context.Context, key string) bool {
	if h.DedupeClaim == nil {
		return true
	}
	return h.DedupeClaim(ctx, key)
}

func (h *VoiceHandlers) transcribeTimeout() time.Duration {
	if h.TranscribeTimeout > 0 {
		return h.TranscribeTimeout
	}
	return 60 * time.Second
}
