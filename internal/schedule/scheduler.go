package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/voicepost-platform/voicepost/internal/events"
	"github.com/voicepost-platform/voicepost/internal/metrics"
)

// ErrJobNotFound is returned by Cancel for unknown or already-settled jobs.
var ErrJobNotFound = errors.New("scheduled job not found")

// ErrNotRunning is returned when Schedule is called before Start.
var ErrNotRunning = errors.New("scheduler is not running")

// fireTimeout bounds how long a single deferred publish may take.
const fireTimeout = 30 * time.Second

// JobStatus is the lifecycle state of a scheduled job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusFired     JobStatus = "fired"
	StatusCancelled JobStatus = "cancelled"
)

// Action is the work a job performs when it fires.
type Action func(ctx context.Context) error

// Job is the caller-visible view of a scheduled publish.
type Job struct {
	ID        uuid.UUID `json:"job_id"`
	Platform  string    `json:"platform"`
	Text      string    `json:"text"`
	DueAt     time.Time `json:"due_at"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type job struct {
	Job
	action Action
}

// Scheduler fires one-shot jobs at their due time. Each job fires exactly
// once; a cancelled job never fires. Jobs are held in memory only and do not
// survive a restart.
type Scheduler struct {
	clock     clockwork.Clock
	logger    *slog.Logger
	publisher *events.Publisher

	mu      sync.Mutex
	jobs    map[uuid.UUID]*job
	running bool

	wake   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

// NewScheduler builds a Scheduler. publisher may be nil.
func NewScheduler(clock clockwork.Clock, logger *slog.Logger, publisher *events.Publisher) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock:     clock,
		logger:    logger,
		publisher: publisher,
		jobs:      make(map[uuid.UUID]*job),
		wake:      make(chan struct{}, 1),
	}
}

// Start launches the background runner. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.run(runCtx)
}

// Stop halts the runner and waits for in-flight work to finish. Pending jobs
// remain registered but will not fire.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the runner is active. Used by the readiness probe.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Schedule registers a one-shot job. Past-due times are accepted and fire on
// the runner's next pass.
func (s *Scheduler) Schedule(platform, text string, dueAt time.Time, action Action) (Job, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return Job{}, ErrNotRunning
	}
	j := &job{
		Job: Job{
			ID:        uuid.New(),
			Platform:  platform,
			Text:      text,
			DueAt:     dueAt,
			Status:    StatusPending,
			CreatedAt: s.clock.Now(),
		},
		action: action,
	}
	s.jobs[j.ID] = j
	s.mu.Unlock()

	metrics.ScheduledJobsPending.Inc()
	s.logger.Info("scheduled publish job",
		"job_id", j.ID, "platform", platform, "due_at", dueAt)
	s.signal()
	return j.Job, nil
}

// Cancel removes a pending job so it never fires.
func (s *Scheduler) Cancel(id uuid.UUID) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok || j.Status != StatusPending {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	j.Status = StatusCancelled
	delete(s.jobs, id)
	s.mu.Unlock()

	metrics.ScheduledJobsPending.Dec()
	s.logger.Info("cancelled publish job", "job_id", id)
	s.signal()
	return nil
}

// List returns pending jobs ordered by due time.
func (s *Scheduler) List() []Job {
	s.mu.Lock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.Status == StatusPending {
			out = append(out, j.Job)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, k int) bool { return out[i].DueAt.Before(out[k].DueAt) })
	return out
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run sleeps until the nearest due time, fires everything due, and repeats.
// Schedule and Cancel poke it through the wake channel so it re-evaluates.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	for {
		due := s.takeDue()
		for _, j := range due {
			s.fire(ctx, j)
		}

		wait := s.untilNext()
		timer := s.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.Chan():
		}
	}
}

// takeDue atomically marks every due pending job as fired and returns them.
// Marking before invoking is what guarantees exactly-once.
func (s *Scheduler) takeDue() []*job {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*job
	for _, j := range s.jobs {
		if j.Status == StatusPending && !j.DueAt.After(now) {
			j.Status = StatusFired
			delete(s.jobs, j.ID)
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].DueAt.Before(due[k].DueAt) })
	return due
}

// untilNext returns the wait before the nearest pending job, or a long idle
// interval when nothing is queued.
func (s *Scheduler) untilNext() time.Duration {
	const idle = time.Hour

	s.mu.Lock()
	defer s.mu.Unlock()

	next := time.Duration(-1)
	now := s.clock.Now()
	for _, j := range s.jobs {
		if j.Status != StatusPending {
			continue
		}
		d := j.DueAt.Sub(now)
		if d < 0 {
			d = 0
		}
		if next < 0 || d < next {
			next = d
		}
	}
	if next < 0 {
		return idle
	}
	return next
}

func (s *Scheduler) fire(ctx context.Context, j *job) {
	metrics.ScheduledJobsPending.Dec()

	fireCtx, cancel := context.WithTimeout(ctx, fireTimeout)
	err := j.action(fireCtx)
	cancel()

	firedAt := s.clock.Now()
	result := "success"
	errMsg := ""
	if err != nil {
		result = "failure"
		errMsg = err.Error()
		s.logger.Error("scheduled publish failed",
			"job_id", j.ID, "platform", j.Platform, "due_at", j.DueAt, "error", err)
	} else {
		s.logger.Info("scheduled publish fired",
			"job_id", j.ID, "platform", j.Platform, "due_at", j.DueAt)
	}
	metrics.ScheduledJobsFiredTotal.WithLabelValues(result).Inc()

	if pubErr := s.publisher.PublishJobFired(ctx, events.JobFiredEvent{
		JobID:     j.ID,
		Platform:  j.Platform,
		DueAt:     j.DueAt,
		FiredAt:   firedAt,
		Succeeded: err == nil,
		Error:     errMsg,
	}); pubErr != nil {
		s.logger.Warn("publishing job fired event failed", "job_id", j.ID, "error", pubErr)
	}
}
