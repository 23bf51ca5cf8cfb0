// Package jobs runs the engine's periodic tasks (detector tick, keep-alive
// refresh) on a gocron scheduler.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/uyan/internal/logging"
)

// Task is the body of a periodic job.
type Task func(ctx context.Context) error

// FaultHandler is told about a task that returned an error or panicked.
type FaultHandler func(name string, err error)

// Scheduler wraps a gocron scheduler. Jobs run in singleton mode: a run
// that is still busy when the next one is due causes that run to be
// skipped rather than stacked.
type Scheduler struct {
	scheduler gocron.Scheduler
	clock     clockwork.Clock
	onFault   FaultHandler
	logger    zerolog.Logger
}

// NewScheduler creates a scheduler driven by clock, or the real clock
// when clock is nil.
func NewScheduler(clock clockwork.Clock) (*Scheduler, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: s,
		clock:     clock,
		logger:    logging.GetLogger("jobs"),
	}, nil
}

// Clock returns the clock the scheduler runs on.
func (s *Scheduler) Clock() clockwork.Clock { return s.clock }

// OnFault registers a handler for failed runs.
func (s *Scheduler) OnFault(h FaultHandler) { s.onFault = h }

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.logger.Debug().Msg("Starting scheduler")
	s.scheduler.Start()
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	s.logger.Debug().Msg("Stopping scheduler")
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	return nil
}

// Every schedules task to run every interval, starting immediately.
// ctx is handed to every run; cancel it or call Remove to stop the job.
func (s *Scheduler) Every(ctx context.Context, name string, interval time.Duration, task Task) (uuid.UUID, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.run(ctx, name, task) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create %s job: %w", name, err)
	}
	s.logger.Debug().Str("job", name).Dur("interval", interval).Str("id", job.ID().String()).Msg("Scheduled job")
	return job.ID(), nil
}

// Remove unschedules a job. Removing an unknown id is not an error.
func (s *Scheduler) Remove(id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	if err := s.scheduler.RemoveJob(id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		return fmt.Errorf("remove job %s: %w", id, err)
	}
	return nil
}

// Jobs returns the names of the scheduled jobs.
func (s *Scheduler) Jobs() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

// run executes one invocation. A panic or error is reported and swallowed
// so the next run still happens.
func (s *Scheduler) run(ctx context.Context, name string, task Task) {
	if ctx.Err() != nil {
		return
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = task(ctx)
	}()

	if err == nil {
		return
	}
	s.logger.Error().Err(err).Str("job", name).Msg("Job run failed")
	if s.onFault != nil {
		s.onFault(name, err)
	}
}
