package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) (*Scheduler, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock, slog.New(slog.NewTextHandler(testWriter{t}, nil)), nil)
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s, clock
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestSchedulerFiresJobWhenDue(t *testing.T) {
	s, clock := newTestScheduler(t)

	var fired atomic.Int32
	_, err := s.Schedule("twitter", "future post", clock.Now().Add(time.Hour), func(ctx context.Context) error {
		fired.Add(1)
		return nil
	})
	require.NoError(t, err)

	clock.BlockUntil(1)
	clock.Advance(30 * time.Minute)
	assert.Never(t, func() bool { return fired.Load() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(31 * time.Minute)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerFiresExactlyOnce(t *testing.T) {
	s, clock := newTestScheduler(t)

	var fired atomic.Int32
	_, err := s.Schedule("linkedin", "one shot", clock.Now().Add(time.Minute), func(ctx context.Context) error {
		fired.Add(1)
		return nil
	})
	require.NoError(t, err)

	clock.BlockUntil(1)
	clock.Advance(10 * time.Minute)
	require.Eventually(t, func() bool { return fired.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(24 * time.Hour)
	assert.Never(t, func() bool { return fired.Load() > 1 }, 200*time.Millisecond, 10*time.Millisecond)
	assert.Empty(t, s.List())
}

func TestSchedulerPastDueFiresImmediately(t *testing.T) {
	s, clock := newTestScheduler(t)

	var fired atomic.Int32
	_, err := s.Schedule("twitter", "late post", clock.Now().Add(-time.Hour), func(ctx context.Context) error {
		fired.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerCancelPreventsFiring(t *testing.T) {
	s, clock := newTestScheduler(t)

	var fired atomic.Int32
	j, err := s.Schedule("twitter", "cancel me", clock.Now().Add(time.Hour), func(ctx context.Context) error {
		fired.Add(1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Cancel(j.ID))

	clock.BlockUntil(1)
	clock.Advance(2 * time.Hour)
	assert.Never(t, func() bool { return fired.Load() > 0 }, 200*time.Millisecond, 10*time.Millisecond)

	assert.ErrorIs(t, s.Cancel(j.ID), ErrJobNotFound)
}

func TestSchedulerListOrderedByDueTime(t *testing.T) {
	s, clock := newTestScheduler(t)
	noop := func(ctx context.Context) error { return nil }

	later, err := s.Schedule("twitter", "later", clock.Now().Add(2*time.Hour), noop)
	require.NoError(t, err)
	sooner, err := s.Schedule("linkedin", "sooner", clock.Now().Add(time.Hour), noop)
	require.NoError(t, err)

	jobs := s.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, sooner.ID, jobs[0].ID)
	assert.Equal(t, later.ID, jobs[1].ID)
}

func TestSchedulerActionFailureDoesNotStopRunner(t *testing.T) {
	s, clock := newTestScheduler(t)

	var failFired, okFired atomic.Int32
	_, err := s.Schedule("twitter", "fails", clock.Now().Add(time.Minute), func(ctx context.Context) error {
		failFired.Add(1)
		return errors.New("remote API down")
	})
	require.NoError(t, err)
	_, err = s.Schedule("twitter", "succeeds", clock.Now().Add(2*time.Minute), func(ctx context.Context) error {
		okFired.Add(1)
		return nil
	})
	require.NoError(t, err)

	clock.BlockUntil(1)
	clock.Advance(5 * time.Minute)
	require.Eventually(t, func() bool {
		return failFired.Load() == 1 && okFired.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerConcurrentSchedules(t *testing.T) {
	s, clock := newTestScheduler(t)

	const n = 20
	var fired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Schedule("twitter", "burst", clock.Now().Add(time.Minute), func(ctx context.Context) error {
				fired.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Len(t, s.List(), n)

	clock.BlockUntil(1)
	clock.Advance(2 * time.Minute)
	require.Eventually(t, func() bool { return fired.Load() == n }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, s.List())
}

func TestSchedulerRejectsWhenStopped(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock, slog.New(slog.NewTextHandler(testWriter{t}, nil)), nil)

	_, err := s.Schedule("twitter", "too early", clock.Now(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrNotRunning)

	s.Start(context.Background())
	assert.True(t, s.Running())
	s.Stop()
	assert.False(t, s.Running())

	_, err = s.Schedule("twitter", "too late", clock.Now(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrNotRunning)
}
