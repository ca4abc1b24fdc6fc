package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/voicepost-platform/voicepost/internal/events"
	"github.com/voicepost-platform/voicepost/internal/generation"
	"github.com/voicepost-platform/voicepost/internal/metrics"
	"github.com/voicepost-platform/voicepost/internal/publisher"
	"github.com/voicepost-platform/voicepost/internal/schedule"
	"github.com/voicepost-platform/voicepost/internal/scoring"
)

// Outcome is the gate's verdict for one request.
type Outcome string

const (
	OutcomePublished           Outcome = "published"
	OutcomeScheduled           Outcome = "scheduled"
	OutcomeRejected            Outcome = "rejected"
	OutcomeScheduleParseFailed Outcome = "schedule_parse_failed"
)

// Decision is the structured result of a gate run. Exactly one of Publish
// and Job is set for the published and scheduled outcomes; Reason is set for
// the other two.
type Decision struct {
	Status  Outcome             `json:"status"`
	Score   scoring.SafetyScore `json:"score"`
	Reason  string              `json:"reason,omitempty"`
	Publish *publisher.Result   `json:"publish,omitempty"`
	Job     *schedule.Job       `json:"job,omitempty"`
}

// PostPublisher is the publish surface the gate drives. Satisfied by
// *publisher.Registry.
type PostPublisher interface {
	Publish(ctx context.Context, platform, text string) (*publisher.Result, error)
	Supported(platform string) bool
}

// Gate applies the safety threshold and routes passing content to an
// immediate publish or a scheduled job. Rejection is all-or-nothing: when
// the primary candidate fails, the whole candidate set is discarded.
type Gate struct {
	evaluator *scoring.Evaluator
	parser    *schedule.Parser
	scheduler *schedule.Scheduler
	registry  PostPublisher
	publisher *events.Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
}

func NewGate(
	evaluator *scoring.Evaluator,
	parser *schedule.Parser,
	scheduler *schedule.Scheduler,
	registry PostPublisher,
	eventPublisher *events.Publisher,
	clock clockwork.Clock,
	logger *slog.Logger,
) *Gate {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gate{
		evaluator: evaluator,
		parser:    parser,
		scheduler: scheduler,
		registry:  registry,
		publisher: eventPublisher,
		clock:     clock,
		logger:    logger,
	}
}

// Decide scores the primary candidate and resolves the request to one of
// the four outcomes. The primary candidate is the first of the sequence.
// An empty scheduleRequest means publish synchronously in this call; the
// scheduler is only involved when a schedule was asked for. Only the
// synchronous publish step can fail with an error.
func (g *Gate) Decide(
	ctx context.Context,
	requestID string,
	candidates []generation.Candidate,
	avgDistance float64,
	platform string,
	scheduleRequest string,
) (Decision, error) {
	primary := ""
	if len(candidates) > 0 {
		primary = candidates[0].Text
	}

	score := g.evaluator.Evaluate(primary, avgDistance)

	if !score.Passed() {
		d := Decision{
			Status: OutcomeRejected,
			Score:  score,
			Reason: fmt.Sprintf("safety score %.2f is below the %.2f publish threshold", score.FinalScore, scoring.PassThreshold),
		}
		g.record(ctx, requestID, platform, d)
		return d, nil
	}

	if scheduleRequest == "" {
		result, err := g.registry.Publish(ctx, platform, primary)
		if err != nil {
			return Decision{}, fmt.Errorf("publishing approved post: %w", err)
		}
		d := Decision{Status: OutcomePublished, Score: score, Publish: result}
		g.record(ctx, requestID, platform, d)
		return d, nil
	}

	dueAt, err := g.parser.Parse(scheduleRequest, g.clock.Now())
	if err != nil {
		d := Decision{
			Status: OutcomeScheduleParseFailed,
			Score:  score,
			Reason: fmt.Sprintf("could not read a time from %q", scheduleRequest),
		}
		g.record(ctx, requestID, platform, d)
		return d, nil
	}

	job, err := g.RegisterJob(platform, primary, dueAt)
	if err != nil {
		return Decision{}, fmt.Errorf("scheduling approved post: %w", err)
	}
	d := Decision{Status: OutcomeScheduled, Score: score, Job: &job}
	g.record(ctx, requestID, platform, d)
	return d, nil
}

// RegisterJob binds a future publish of text to the scheduler. Used by the
// gate and by the confirm endpoint, which supplies an already-parsed time.
func (g *Gate) RegisterJob(platform, text string, dueAt time.Time) (schedule.Job, error) {
	return g.scheduler.Schedule(platform, text, dueAt, func(ctx context.Context) error {
		_, err := g.registry.Publish(ctx, platform, text)
		return err
	})
}

func (g *Gate) record(ctx context.Context, requestID, platform string, d Decision) {
	metrics.GateDecisionsTotal.WithLabelValues(string(d.Status)).Inc()
	g.logger.Info("gate decision",
		"request_id", requestID,
		"platform", platform,
		"outcome", d.Status,
		"final_score", d.Score.FinalScore,
	)

	if err := g.publisher.PublishGateDecision(ctx, events.GateDecisionEvent{
		RequestID:  requestID,
		Platform:   platform,
		Outcome:    string(d.Status),
		FinalScore: d.Score.FinalScore,
		Timestamp:  g.clock.Now(),
	}); err != nil {
		g.logger.Warn("publishing gate decision event failed", "request_id", requestID, "error", err)
	}
}
