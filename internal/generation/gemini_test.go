package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicepost-platform/voicepost/internal/config"
	"github.com/voicepost-platform/voicepost/internal/contextstore"
)

func testGenerator(t *testing.T, handler http.HandlerFunc) *GeminiGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGeminiGenerator(config.GeminiConfig{APIKey: "test-key", Model: "gemini-2.5-flash"}, nil)
	g.baseURL = srv.URL
	return g
}

func geminiBody(texts ...string) []byte {
	var resp geminiResponse
	for _, txt := range texts {
		var c struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		}
		c.Content.Parts = []struct {
			Text string `json:"text"`
		}{{Text: txt}}
		resp.Candidates = append(resp.Candidates, c)
	}
	data, _ := json.Marshal(resp)
	return data
}

func TestGenerate_SingleCandidate(t *testing.T) {
	g := testGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1, req.GenerationConfig.CandidateCount)

		prompt := req.Contents[0].Parts[0].Text
		assert.Contains(t, prompt, "my raw thoughts")
		assert.Contains(t, prompt, "- a past post")

		w.Write(geminiBody("Generated post! 🎉"))
	})

	candidates, err := g.Generate(context.Background(), Request{
		Transcript: "my raw thoughts",
		Context:    []contextstore.Item{{Text: "a past post", Distance: 0.2}},
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Generated post! 🎉", candidates[0].Text)
}

func TestGenerate_VariationMode(t *testing.T) {
	g := testGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, VariationCount, req.GenerationConfig.CandidateCount)

		w.Write(geminiBody("v1", "v2", "v3", "v4", "v5"))
	})

	candidates, err := g.Generate(context.Background(), Request{
		Transcript: "thoughts",
		Variations: true,
	})
	require.NoError(t, err)
	require.Len(t, candidates, VariationCount)
	assert.Equal(t, "v1", candidates[0].Text)
}

func TestGenerate_VariationModePadsShortResponse(t *testing.T) {
	g := testGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(geminiBody("only one"))
	})

	candidates, err := g.Generate(context.Background(), Request{
		Transcript: "thoughts",
		Variations: true,
	})
	require.NoError(t, err)
	require.Len(t, candidates, VariationCount)
	for _, c := range candidates {
		assert.Equal(t, "only one", c.Text)
	}
}

func TestGenerate_ToneInPrompt(t *testing.T) {
	g := testGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Contents[0].Parts[0].Text, "professional tone")
		w.Write(geminiBody("ok"))
	})

	_, err := g.Generate(context.Background(), Request{Transcript: "t", Tone: "professional"})
	require.NoError(t, err)
}

func TestGenerate_NoUsableCandidates(t *testing.T) {
	g := testGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := g.Generate(context.Background(), Request{Transcript: "t"})
	assert.Error(t, err)
}

func TestGenerate_UpstreamError(t *testing.T) {
	g := testGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	})

	_, err := g.Generate(context.Background(), Request{Transcript: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestFormatContext_Empty(t *testing.T) {
	assert.Equal(t, "No specific past context found.", formatContext(nil))
}

func TestNewsEnricher_DisabledWithoutKey(t *testing.T) {
	n := NewNewsEnricher("")
	assert.Equal(t, "", n.HeadlineContext(context.Background(), "anything"))

	var nilEnricher *NewsEnricher
	assert.Equal(t, "", nilEnricher.HeadlineContext(context.Background(), "anything"))
}

func TestNewsEnricher_FormatsHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("pageSize"))
		w.Write([]byte(`{"status":"ok","totalResults":2,"articles":[
			{"title":"Launch day","description":"Product ships"},
			{"title":"Markets","description":"Stocks rally"}]}`))
	}))
	t.Cleanup(srv.Close)

	n := NewNewsEnricher("key")
	n.baseURL = srv.URL

	got := n.HeadlineContext(context.Background(), "our product launch")
	assert.Contains(t, got, "Relevant Live News context:")
	assert.Contains(t, got, "- Launch day: Product ships")
	assert.Contains(t, got, "- Markets: Stocks rally")
}

func TestNewsEnricher_FailsSilently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	n := NewNewsEnricher("key")
	n.baseURL = srv.URL

	assert.Equal(t, "", n.HeadlineContext(context.Background(), "q"))
}
