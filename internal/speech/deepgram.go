package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voicepost-platform/voicepost/internal/config"
)

// ErrEmptyTranscript is returned when the speech service produced no words.
// An empty transcript is a failure state, never valid content.
var ErrEmptyTranscript = errors.New("transcription produced an empty transcript")

const defaultDeepgramURL = "https://api.deepgram.com/v1/listen"

// DeepgramTranscriber implements Transcriber against the Deepgram REST API.
type DeepgramTranscriber struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewDeepgramTranscriber creates a new Deepgram adapter.
func NewDeepgramTranscriber(cfg config.DeepgramConfig) *DeepgramTranscriber {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &DeepgramTranscriber{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: defaultDeepgramURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (t *DeepgramTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: no audio bytes", ErrEmptyTranscript)
	}
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	url := fmt.Sprintf("%s?model=%s&smart_format=true", t.baseURL, t.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("building transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+t.apiKey)
	req.Header.Set("Content-Type", mimeType)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling transcription API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transcription API returned %d: %s", resp.StatusCode, body)
	}

	var decoded deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding transcription response: %w", err)
	}

	if len(decoded.Results.Channels) == 0 || len(decoded.Results.Channels[0].Alternatives) == 0 {
		return "", ErrEmptyTranscript
	}

	transcript := decoded.Results.Channels[0].Alternatives[0].Transcript
	if transcript == "" {
		return "", ErrEmptyTranscript
	}
	return transcript, nil
}
