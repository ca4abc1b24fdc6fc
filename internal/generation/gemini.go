package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voicepost-platform/voicepost/internal/config"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiGenerator implements Generator against the Gemini REST API.
type GeminiGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	news    *NewsEnricher
}

// NewGeminiGenerator creates a new Gemini generation adapter.
func NewGeminiGenerator(cfg config.GeminiConfig, news *NewsEnricher) *GeminiGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &GeminiGenerator{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: timeout},
		news:    news,
	}
}

type geminiRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature    float64 `json:"temperature"`
		CandidateCount int     `json:"candidateCount"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate produces one candidate post, or VariationCount posts in variation
// mode. The returned slice is never empty on success.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) ([]Candidate, error) {
	newsContext := g.news.HeadlineContext(ctx, req.Transcript)
	prompt := buildPrompt(req, newsContext)

	count := 1
	if req.Variations {
		count = VariationCount
	}

	var body geminiRequest
	body.Contents = []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}{{Parts: []struct {
		Text string `json:"text"`
	}{{Text: prompt}}}}
	body.GenerationConfig.Temperature = 0.7
	body.GenerationConfig.CandidateCount = count

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling generation request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling generation API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("generation API returned %d: %s", resp.StatusCode, respBody)
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding generation response: %w", err)
	}

	candidates := make([]Candidate, 0, count)
	for _, c := range decoded.Candidates {
		var text strings.Builder
		for _, p := range c.Content.Parts {
			text.WriteString(p.Text)
		}
		trimmed := strings.TrimSpace(text.String())
		if trimmed != "" {
			candidates = append(candidates, Candidate{Text: trimmed})
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("generation API returned no usable candidates")
	}

	// The model may return fewer variations than asked; pad by reusing the
	// first candidate so variation mode always yields a fixed-size set.
	for req.Variations && len(candidates) < VariationCount {
		candidates = append(candidates, candidates[0])
	}
	if !req.Variations {
		candidates = candidates[:1]
	}

	return candidates, nil
}
