package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/voicepost-platform/voicepost/internal/contextstore"
	"github.com/voicepost-platform/voicepost/internal/generation"
	"github.com/voicepost-platform/voicepost/internal/metrics"
	"github.com/voicepost-platform/voicepost/internal/publisher"
	"github.com/voicepost-platform/voicepost/internal/schedule"
	"github.com/voicepost-platform/voicepost/internal/scoring"
	"github.com/voicepost-platform/voicepost/internal/speech"
)

// Stage sentinels. Handlers map these to HTTP statuses; everything past the
// gate is a Decision, not an error.
var (
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrGenerationFailed    = errors.New("generation failed")
)

// RunInput is one voice-to-post request.
type RunInput struct {
	Audio           []byte
	MimeType        string
	Platform        string
	Tone            string
	Variations      bool
	ScheduleRequest string
	RequestID       string
}

// RunOutput is the caller-facing envelope: the transcript, the candidate
// set, and the gate's decision.
type RunOutput struct {
	Status     Outcome             `json:"status"`
	Transcript string              `json:"transcript"`
	Post       string              `json:"post,omitempty"`
	Variations []string            `json:"variations,omitempty"`
	Score      scoring.SafetyScore `json:"score"`
	Publish    *publisher.Result   `json:"publish,omitempty"`
	Job        *schedule.Job       `json:"job,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}

// Pipeline composes transcription, retrieval, generation, scoring and the
// publish gate. Invocations are independent; the scheduler inside the gate
// is the only shared mutable state.
type Pipeline struct {
	transcriber speech.Transcriber
	retriever   contextstore.Retriever
	generator   generation.Generator
	gate        *Gate
	topK        int
	logger      *slog.Logger
}

func NewPipeline(
	transcriber speech.Transcriber,
	retriever contextstore.Retriever,
	generator generation.Generator,
	gate *Gate,
	topK int,
	logger *slog.Logger,
) *Pipeline {
	if topK < 1 {
		topK = 3
	}
	return &Pipeline{
		transcriber: transcriber,
		retriever:   retriever,
		generator:   generator,
		gate:        gate,
		topK:        topK,
		logger:      logger,
	}
}

// Run executes one full voice-to-post request. Transcription and generation
// failures abort; retrieval failure degrades to an empty context set with
// the no-context distance sentinel.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (*RunOutput, error) {
	metrics.PipelineRunsTotal.Inc()

	transcript, err := p.transcriber.Transcribe(ctx, in.Audio, in.MimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	p.logger.Info("transcribed audio",
		"request_id", in.RequestID, "chars", len(transcript))

	items, avgDistance := p.retrieve(ctx, in.RequestID, transcript)

	candidates, err := p.generator.Generate(ctx, generation.Request{
		Transcript: transcript,
		Context:    items,
		Tone:       in.Tone,
		Variations: in.Variations,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	decision, err := p.gate.Decide(ctx, in.RequestID, candidates, avgDistance, in.Platform, in.ScheduleRequest)
	if err != nil {
		return nil, err
	}

	out := &RunOutput{
		Status:     decision.Status,
		Transcript: transcript,
		Score:      decision.Score,
		Publish:    decision.Publish,
		Job:        decision.Job,
		Reason:     decision.Reason,
	}
	if in.Variations {
		out.Variations = make([]string, 0, len(candidates))
		for _, c := range candidates {
			out.Variations = append(out.Variations, c.Text)
		}
	}
	if len(candidates) > 0 {
		out.Post = candidates[0].Text
	}
	return out, nil
}

// retrieve searches the context index. Errors degrade to no context rather
// than aborting the request.
func (p *Pipeline) retrieve(ctx context.Context, requestID, transcript string) ([]contextstore.Item, float64) {
	items, err := p.retriever.Search(ctx, transcript, p.topK)
	if err != nil {
		p.logger.Warn("context retrieval failed, continuing without context",
			"request_id", requestID, "error", err)
		return nil, scoring.NoContextDistance
	}
	if len(items) == 0 {
		return nil, scoring.NoContextDistance
	}

	sum := 0.0
	for _, it := range items {
		sum += it.Distance
	}
	return items, sum / float64(len(items))
}
