package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultNewsURL = "https://newsapi.org/v2/everything"

// newsQueryLimit caps how much of the transcript is used as the search query.
const newsQueryLimit = 50

// NewsEnricher fetches live headlines related to the transcript and renders
// them as extra prompt context. A zero-value enricher (no API key) is
// disabled and returns an empty string.
type NewsEnricher struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewNewsEnricher creates a NewsAPI enricher. An empty apiKey disables it.
func NewNewsEnricher(apiKey string) *NewsEnricher {
	return &NewsEnricher{
		apiKey:  apiKey,
		baseURL: defaultNewsURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type newsResponse struct {
	Status       string `json:"status"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"articles"`
}

// HeadlineContext returns a formatted block of up to three relevant headlines,
// or "" when disabled or on any failure. News is best-effort enrichment; it
// never fails the generation.
func (n *NewsEnricher) HeadlineContext(ctx context.Context, transcript string) string {
	if n == nil || n.apiKey == "" {
		return ""
	}

	query := transcript
	if len(query) > newsQueryLimit {
		query = query[:newsQueryLimit]
	}

	u := fmt.Sprintf("%s?q=%s&language=en&sortBy=relevancy&pageSize=3&apiKey=%s",
		n.baseURL, url.QueryEscape(query), n.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		slog.Warn("news enrichment: building request", "error", err)
		return ""
	}

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("news enrichment: calling NewsAPI", "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.Warn("news enrichment: NewsAPI error", "status", resp.StatusCode, "body", string(body))
		return ""
	}

	var decoded newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		slog.Warn("news enrichment: decoding response", "error", err)
		return ""
	}

	if decoded.Status != "ok" || decoded.TotalResults == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nRelevant Live News context:\n")
	for _, a := range decoded.Articles {
		fmt.Fprintf(&b, "- %s: %s\n", a.Title, a.Description)
	}
	return b.String()
}
