package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicepost-platform/voicepost/internal/contextstore"
	"github.com/voicepost-platform/voicepost/internal/generation"
	"github.com/voicepost-platform/voicepost/internal/scoring"
)

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.transcript, nil
}

type fakeRetriever struct {
	items []contextstore.Item
	err   error
}

func (f *fakeRetriever) Search(ctx context.Context, query string, topK int) ([]contextstore.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeGenerator struct {
	candidates []generation.Candidate
	err        error
	gotReq     generation.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req generation.Request) ([]generation.Candidate, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func newTestPipeline(t *testing.T, tr *fakeTranscriber, re *fakeRetriever, ge *fakeGenerator) (*Pipeline, *fakePublisher) {
	t.Helper()
	gate, pub, _, _ := newTestGate(t, time.UTC)
	return NewPipeline(tr, re, ge, gate, 3, discardLogger()), pub
}

func TestPipelinePublishesEndToEnd(t *testing.T) {
	ge := &fakeGenerator{candidates: candidates("Check out our new product! 🎉 #launch")}
	p, pub := newTestPipeline(t,
		&fakeTranscriber{transcript: "we are launching a new product"},
		&fakeRetriever{items: []contextstore.Item{
			{Text: "past launch post", Distance: 0.1},
			{Text: "another launch post", Distance: 0.1},
		}},
		ge,
	)

	out, err := p.Run(context.Background(), RunInput{
		Audio: []byte("riff"), MimeType: "audio/wav", Platform: "twitter",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, out.Status)
	assert.Equal(t, "we are launching a new product", out.Transcript)
	assert.Equal(t, "Check out our new product! 🎉 #launch", out.Post)
	assert.Equal(t, int32(1), pub.calls.Load())
	assert.Len(t, ge.gotReq.Context, 2, "retrieved context must reach the generator")
}

func TestPipelineTranscriptionFailureAborts(t *testing.T) {
	ge := &fakeGenerator{candidates: candidates("never generated")}
	p, pub := newTestPipeline(t,
		&fakeTranscriber{err: errors.New("deepgram 500")},
		&fakeRetriever{},
		ge,
	)

	_, err := p.Run(context.Background(), RunInput{Audio: []byte("x"), Platform: "twitter"})

	assert.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.Empty(t, ge.gotReq.Transcript, "generation must not run after a transcription failure")
	assert.Zero(t, pub.calls.Load())
}

func TestPipelineGenerationFailureAborts(t *testing.T) {
	p, pub := newTestPipeline(t,
		&fakeTranscriber{transcript: "hello"},
		&fakeRetriever{},
		&fakeGenerator{err: errors.New("gemini quota exceeded")},
	)

	_, err := p.Run(context.Background(), RunInput{Audio: []byte("x"), Platform: "twitter"})

	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Zero(t, pub.calls.Load())
}

func TestPipelineRetrievalFailureDegradesToNoContext(t *testing.T) {
	ge := &fakeGenerator{candidates: candidates("A solid post that stands on its own merits. #update 🎉")}
	p, _ := newTestPipeline(t,
		&fakeTranscriber{transcript: "an update"},
		&fakeRetriever{err: errors.New("pgvector unreachable")},
		ge,
	)

	out, err := p.Run(context.Background(), RunInput{Audio: []byte("x"), Platform: "twitter"})

	require.NoError(t, err, "retrieval failure must not abort the request")
	assert.Empty(t, ge.gotReq.Context)
	assert.Equal(t, 0.5, out.Score.Components["relevance"], "no-context scoring branch must apply")
}

func TestPipelineEmptyRetrievalUsesSentinel(t *testing.T) {
	ge := &fakeGenerator{candidates: candidates("Another freestanding announcement. #update 🎉")}
	p, _ := newTestPipeline(t,
		&fakeTranscriber{transcript: "an update"},
		&fakeRetriever{items: nil},
		ge,
	)

	out, err := p.Run(context.Background(), RunInput{Audio: []byte("x"), Platform: "twitter"})

	require.NoError(t, err)
	assert.Equal(t, 0.5, out.Score.Components["relevance"])
}

func TestPipelineVariationModeReturnsAllCandidates(t *testing.T) {
	texts := []string{
		"Variant one of the launch post. #launch 🎉",
		"Variant two of the launch post. #launch 🎉",
		"Variant three of the launch post. #launch 🎉",
		"Variant four of the launch post. #launch 🎉",
		"Variant five of the launch post. #launch 🎉",
	}
	ge := &fakeGenerator{candidates: candidates(texts...)}
	p, pub := newTestPipeline(t,
		&fakeTranscriber{transcript: "launch"},
		&fakeRetriever{items: []contextstore.Item{{Text: "ctx", Distance: 0.2}}},
		ge,
	)

	out, err := p.Run(context.Background(), RunInput{
		Audio: []byte("x"), Platform: "twitter", Variations: true,
	})

	require.NoError(t, err)
	assert.True(t, ge.gotReq.Variations)
	assert.Equal(t, texts, out.Variations)
	assert.Equal(t, texts[0], out.Post, "primary candidate is the first variant")
	assert.Equal(t, int32(1), pub.calls.Load())
}

func TestPipelineRejectionProducesDecisionNotError(t *testing.T) {
	ge := &fakeGenerator{candidates: candidates("")}
	p, pub := newTestPipeline(t,
		&fakeTranscriber{transcript: "something"},
		&fakeRetriever{},
		ge,
	)

	out, err := p.Run(context.Background(), RunInput{Audio: []byte("x"), Platform: "twitter"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, out.Status)
	assert.Less(t, out.Score.FinalScore, scoring.PassThreshold)
	assert.Zero(t, pub.calls.Load())
}
