package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// WhisperTranscriber fetches a call recording from the telephony provider
// and transcribes it with Whisper. Recording URLs are authenticated with
// the provider's account credentials (basic auth).

type WhisperTranscriber struct {
	client openai.Client
	model  openai.AudioModel

	httpClient *http.Client

	// Provider credentials for fetching the recording audio.
	accountSID string
	authToken  string
}

func NewWhisperTranscriber(apiKey, model, accountSID, authToken string, httpClient *http.Client) *WhisperTranscriber {
	m := openai.AudioModel(model)
	if model == "" {
		m = openai.AudioModelWhisper1
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WhisperTranscriber{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:      m,
		httpClient: httpClient,
		accountSID: accountSID,
		authToken:  authToken,
	}
}

// Transcribe downloads the recording and returns its text. Any fetch or
// transcription problem is a single failure; callers do not retry.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, recordingURL string) (string, error) {
	audio, err := t.fetch(ctx, recordingURL)
	if err != nil {
		return "", err
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: t.model,
		File:  openai.File(bytes.NewReader(audio), "recording.mp3", "audio/mpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("extraction: transcribe recording: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (t *WhisperTranscriber) fetch(ctx context.Context, url string) ([]byte, error) {
	// Providers serve recordings in several formats; mp3 keeps payloads small.
	if !strings.HasSuffix(url, ".mp3") {
		url += ".mp3"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("extraction: build recording request: %w", err)
	}
	if t.accountSID != "" {
		req.SetBasicAuth(t.accountSID, t.authToken)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction: fetch recording: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extraction: fetch recording: HTTP %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("extraction: read recording: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("extraction: empty recording")
	}
	return audio, nil
}
