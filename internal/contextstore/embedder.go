package contextstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voicepost-platform/voicepost/internal/config"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// EmbeddingDims is the embedding width requested from Gemini. It must match
// the vector column width in the context_items migration.
const EmbeddingDims = 768

// GeminiEmbedder implements Embedder against the Gemini embedding REST API.
type GeminiEmbedder struct {
	apiKey string
	model  string
	client *http.Client
}

// NewGeminiEmbedder creates a new Gemini embedding adapter.
func NewGeminiEmbedder(cfg config.GeminiConfig) *GeminiEmbedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &GeminiEmbedder{
		apiKey: cfg.APIKey,
		model:  cfg.EmbeddingModel,
		client: &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
	OutputDimensionality int `json:"outputDimensionality"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var reqBody embedRequest
	reqBody.Content.Parts = []struct {
		Text string `json:"text"`
	}{{Text: text}}
	reqBody.OutputDimensionality = EmbeddingDims

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:embedContent?key=%s", geminiBaseURL, e.model, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embedding API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding API returned %d: %s", resp.StatusCode, body)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}

	if len(decoded.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding API returned an empty vector")
	}
	return decoded.Embedding.Values, nil
}
