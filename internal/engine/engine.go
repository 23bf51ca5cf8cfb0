// Package engine wires the time source, the alarm detector, the dispatcher
// and the keep-alive strategy into one running prayer alarm.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/smokyabdulrahman/uyan/internal/alarm"
	"github.com/smokyabdulrahman/uyan/internal/geo"
	"github.com/smokyabdulrahman/uyan/internal/jobs"
	"github.com/smokyabdulrahman/uyan/internal/keepalive"
	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/metrics"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
	"github.com/smokyabdulrahman/uyan/internal/timesource"
)

const (
	tickInterval  = time.Second
	tickJobName   = "alarm-tick"
	retryInterval = time.Minute
)

// ErrNotStarted is returned by operations that need a running engine.
var ErrNotStarted = errors.New("engine not started")

// DayFetcher loads one day of prayer times. *timesource.Source implements it.
type DayFetcher interface {
	FetchDay(ctx context.Context, place timesource.Place, date time.Time) (*timesource.Day, error)
}

// Scheduler runs the tick job. *jobs.Scheduler implements it.
type Scheduler interface {
	Every(ctx context.Context, name string, interval time.Duration, task jobs.Task) (uuid.UUID, error)
	Remove(id uuid.UUID) error
	OnFault(h jobs.FaultHandler)
	Clock() clockwork.Clock
	Start()
	Shutdown() error
}

// Options wires an Engine. Dispatcher, KeepAlive and Recorder are optional.
type Options struct {
	Source     DayFetcher
	Place      timesource.Place
	Location   *time.Location
	Detector   *alarm.Detector
	Dispatcher *alarm.Dispatcher
	KeepAlive  keepalive.Strategy
	Scheduler  Scheduler
	Recorder   metrics.Recorder
}

// Engine runs the one-second alarm loop and keeps the armed schedule on
// the current day.
type Engine struct {
	source    DayFetcher
	loc       *time.Location
	detector  *alarm.Detector
	dispatch  *alarm.Dispatcher
	keepAlive keepalive.Strategy
	sched     Scheduler
	clock     clockwork.Clock
	recorder  metrics.Recorder
	logger    zerolog.Logger

	day atomic.Pointer[timesource.Day]

	mu        sync.Mutex
	place     timesource.Place
	pinned    bool // a date other than today is shown; no rollover
	tickID    uuid.UUID
	lastRetry time.Time
	started   bool
	stale     bool // warned that the armed day is missing today's alerts
}

// New creates an engine. It does nothing until Start.
func New(opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Detector == nil {
		opts.Detector = alarm.NewDetector(opts.Recorder)
	}
	if opts.KeepAlive == nil {
		opts.KeepAlive = keepalive.Noop{}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Dispatcher != nil {
		opts.Dispatcher.Attach(opts.Detector)
	}
	return &Engine{
		source:    opts.Source,
		loc:       opts.Location,
		detector:  opts.Detector,
		dispatch:  opts.Dispatcher,
		keepAlive: opts.KeepAlive,
		sched:     opts.Scheduler,
		clock:     opts.Scheduler.Clock(),
		recorder:  opts.Recorder,
		logger:    logging.GetLogger("engine"),
		place:     opts.Place,
	}
}

// Start loads today's schedule, arms the detector and starts ticking.
// A time source failure is returned unchanged and nothing is started.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}

	day, err := e.source.FetchDay(ctx, e.place, e.now())
	if err != nil {
		return err
	}
	e.arm(day)

	e.sched.OnFault(func(name string, err error) {
		if name == tickJobName {
			e.recorder.IncTickFault()
		}
	})
	id, err := e.sched.Every(ctx, tickJobName, tickInterval, e.tick)
	if err != nil {
		return fmt.Errorf("failed to start alarm loop: %w", err)
	}
	e.tickID = id
	e.sched.Start()
	e.started = true

	e.logger.Info().
		Str("date", day.Schedule.Date().Format("2006-01-02")).
		Str("timezone", day.Timezone).
		Bool("cached", day.Cached).
		Msg("Alarm engine started")
	return nil
}

// Stop halts the loop, tears down keep-alive and waits for in-flight
// alerts. Errors from each step are combined.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	id := e.tickID
	e.tickID = uuid.Nil
	e.mu.Unlock()

	var result *multierror.Error
	if err := e.sched.Remove(id); err != nil {
		result = multierror.Append(result, err)
	}
	if err := e.keepAlive.Disable(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("keep-alive: %w", err))
	}
	if e.dispatch != nil {
		e.dispatch.Wait()
	}
	if err := e.sched.Shutdown(); err != nil {
		result = multierror.Append(result, err)
	}
	e.detector.Disarm()
	e.logger.Info().Msg("Alarm engine stopped")
	return result.ErrorOrNil()
}

// Relocate switches to a new coordinate and re-arms with today's schedule
// there. On failure the previous schedule stays armed.
func (e *Engine) Relocate(ctx context.Context, c geo.Coordinate) error {
	if !e.isStarted() {
		return ErrNotStarted
	}
	place := timesource.Place{Coordinate: c}
	day, err := e.source.FetchDay(ctx, place, e.now())
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.place = place
	e.pinned = false
	e.arm(day)
	e.logger.Info().Float64("lat", c.Lat).Float64("lon", c.Lon).Msg("Relocated")
	return nil
}

// ShowDate arms the schedule of another calendar day. While a day other
// than today is shown the engine does not roll over on its own; showing
// today again resumes it.
func (e *Engine) ShowDate(ctx context.Context, date time.Time) error {
	e.mu.Lock()
	place, started := e.place, e.started
	e.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	day, err := e.source.FetchDay(ctx, place, date)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.pinned = !day.Schedule.SameDay(e.now())
	e.arm(day)
	return nil
}

// Next returns the next prayer at now, or false when nothing is armed.
func (e *Engine) Next(now time.Time) (prayer.NextEvent, bool) {
	return e.detector.Next(now)
}

// Schedule returns the armed day, or nil.
func (e *Engine) Schedule() *timesource.Day {
	return e.day.Load()
}

// Place returns where the schedule is computed for.
func (e *Engine) Place() timesource.Place {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.place
}

// Detector exposes the detector so shells can listen for Entered events.
func (e *Engine) Detector() *alarm.Detector { return e.detector }

// KeepAlive returns the keep-alive strategy.
func (e *Engine) KeepAlive() keepalive.Strategy { return e.keepAlive }

// Now returns the engine clock's time in the configured zone.
func (e *Engine) Now() time.Time { return e.now() }

func (e *Engine) isStarted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

func (e *Engine) now() time.Time {
	return e.clock.Now().In(e.loc)
}

// arm must be called with mu held.
func (e *Engine) arm(day *timesource.Day) {
	e.day.Store(day)
	e.detector.Arm(day.Schedule)
	e.lastRetry = time.Time{}
	e.stale = false
}

// tick is one run of the alarm loop.
func (e *Engine) tick(ctx context.Context) error {
	now := e.now()
	e.rollover(ctx, now)
	e.detector.Tick(ctx, now)
	return nil
}

// warnStale logs once per armed day when now has passed the rolled-over
// first prayer. From then on the old schedule resolves to that instant and
// no alert fires until a fetch succeeds.
func (e *Engine) warnStale(day *timesource.Day, now time.Time) {
	first := day.Schedule.First().Time.AddDate(0, 0, 1)
	if now.Before(first) {
		return
	}
	e.mu.Lock()
	warned := e.stale || e.day.Load() != day
	e.stale = true
	e.mu.Unlock()
	if warned {
		return
	}
	e.logger.Warn().
		Str("schedule_date", day.Schedule.Date().Format("2006-01-02")).
		Time("missed_since", first).
		Msg("Schedule is out of date, prayer alerts are being missed")
}

// rollover re-arms with the new day's schedule once the date changes. A
// failed fetch keeps the old schedule and is retried at most once a minute.
func (e *Engine) rollover(ctx context.Context, now time.Time) {
	e.mu.Lock()
	day := e.day.Load()
	if day == nil || e.pinned || day.Schedule.SameDay(now) || now.Before(day.Schedule.Date()) {
		e.mu.Unlock()
		return
	}
	if !e.lastRetry.IsZero() && now.Sub(e.lastRetry) < retryInterval {
		e.mu.Unlock()
		return
	}
	e.lastRetry = now
	place := e.place
	e.mu.Unlock()

	next, err := e.source.FetchDay(ctx, place, now)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Failed to load the new day, keeping the previous schedule")
		e.warnStale(day, now)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Relocate or ShowDate may have replaced the day meanwhile.
	if e.day.Load() != day {
		return
	}
	e.arm(next)
	e.logger.Info().Str("date", next.Schedule.Date().Format("2006-01-02")).Msg("New day armed")
}
