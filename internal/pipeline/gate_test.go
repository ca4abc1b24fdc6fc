package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicepost-platform/voicepost/internal/generation"
	"github.com/voicepost-platform/voicepost/internal/publisher"
	"github.com/voicepost-platform/voicepost/internal/schedule"
	"github.com/voicepost-platform/voicepost/internal/scoring"
)

type fakePublisher struct {
	calls atomic.Int32
	last  string
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, platform, text string) (*publisher.Result, error) {
	f.calls.Add(1)
	f.last = text
	if f.err != nil {
		return nil, f.err
	}
	return &publisher.Result{Platform: platform, Status: "success", Message: "ok"}, nil
}

func (f *fakePublisher) Supported(platform string) bool {
	return platform == "twitter" || platform == "linkedin"
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGate(t *testing.T, loc *time.Location) (*Gate, *fakePublisher, *schedule.Scheduler, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	scheduler := schedule.NewScheduler(clock, discardLogger(), nil)
	scheduler.Start(context.Background())
	t.Cleanup(scheduler.Stop)

	pub := &fakePublisher{}
	gate := NewGate(
		scoring.NewEvaluator(scoring.DefaultPolicy()),
		schedule.NewParser(loc),
		scheduler,
		pub,
		nil,
		clock,
		discardLogger(),
	)
	return gate, pub, scheduler, clock
}

func candidates(texts ...string) []generation.Candidate {
	out := make([]generation.Candidate, 0, len(texts))
	for _, t := range texts {
		out = append(out, generation.Candidate{Text: t})
	}
	return out
}

func TestGatePublishesPassingCandidate(t *testing.T) {
	gate, pub, _, _ := newTestGate(t, time.UTC)

	d, err := gate.Decide(context.Background(), "req-1",
		candidates("Check out our new product! 🎉 #launch"), 0.1, "twitter", "")

	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, d.Status)
	assert.GreaterOrEqual(t, d.Score.FinalScore, scoring.PassThreshold)
	require.NotNil(t, d.Publish)
	assert.Equal(t, "success", d.Publish.Status)
	assert.Equal(t, int32(1), pub.calls.Load())
}

func TestGateRejectsEmptyCandidateWithoutPublishing(t *testing.T) {
	gate, pub, _, _ := newTestGate(t, time.UTC)

	d, err := gate.Decide(context.Background(), "req-2",
		candidates(""), scoring.NoContextDistance, "twitter", "")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, d.Status)
	assert.Less(t, d.Score.FinalScore, scoring.PassThreshold)
	assert.NotEmpty(t, d.Reason)
	assert.Zero(t, pub.calls.Load(), "rejected content must never reach the adapter")
}

func TestGateRejectionIsAllOrNothing(t *testing.T) {
	gate, pub, scheduler, _ := newTestGate(t, time.UTC)

	// Primary fails, later candidates would pass. Everything is discarded.
	d, err := gate.Decide(context.Background(), "req-3",
		candidates("", "A perfectly fine alternative post. #ok 🎉"), 0.1, "twitter", "")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, d.Status)
	assert.Zero(t, pub.calls.Load())
	assert.Empty(t, scheduler.List())
}

func TestGateSchedulesPassingCandidateForLater(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	gate, pub, scheduler, clock := newTestGate(t, loc)

	d, err := gate.Decide(context.Background(), "req-4",
		candidates("Launching tomorrow, stay tuned! 🚀 #launch"), 0.1, "twitter", "tomorrow at 9am")

	require.NoError(t, err)
	assert.Equal(t, OutcomeScheduled, d.Status)
	require.NotNil(t, d.Job)
	assert.Equal(t, 9, d.Job.DueAt.Hour())
	assert.Equal(t, loc.String(), d.Job.DueAt.Location().String())
	assert.Zero(t, pub.calls.Load(), "scheduled content must not publish synchronously")
	require.Len(t, scheduler.List(), 1)

	clock.BlockUntil(1)
	clock.Advance(36 * time.Hour)
	require.Eventually(t, func() bool { return pub.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, scheduler.List())
}

func TestGateScheduleParseFailureIsDistinctFromRejection(t *testing.T) {
	gate, pub, scheduler, _ := newTestGate(t, time.UTC)

	d, err := gate.Decide(context.Background(), "req-5",
		candidates("Totally safe announcement text for everyone. #news"), 0.1, "twitter", "whenever you feel like it maybe")

	require.NoError(t, err)
	assert.Equal(t, OutcomeScheduleParseFailed, d.Status)
	assert.GreaterOrEqual(t, d.Score.FinalScore, scoring.PassThreshold, "content itself was safe")
	assert.Zero(t, pub.calls.Load())
	assert.Empty(t, scheduler.List(), "no job may be registered on parse failure")
}

func TestGateSurfacesSynchronousPublishFailure(t *testing.T) {
	gate, pub, _, _ := newTestGate(t, time.UTC)
	pub.err = publisher.ErrMissingCredentials

	_, err := gate.Decide(context.Background(), "req-6",
		candidates("Fine text that cannot be delivered. #oops 🎉"), 0.1, "twitter", "")

	assert.ErrorIs(t, err, publisher.ErrMissingCredentials)
}
