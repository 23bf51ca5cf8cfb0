package keepalive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/smokyabdulrahman/uyan/internal/jobs"
	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/metrics"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
)

const (
	refreshInterval = time.Second
	refreshJobName  = "keepalive-refresh"
	summaryLayout   = "15:04"
)

// Scheduler runs the refresh task. *jobs.Scheduler satisfies it.
type Scheduler interface {
	Every(ctx context.Context, name string, interval time.Duration, task jobs.Task) (uuid.UUID, error)
	Remove(id uuid.UUID) error
}

// Options wires a Controller. Surface and Recorder may be nil.
type Options struct {
	Notifier  Notifier
	Surface   Surface
	Audio     KeepAliver
	Scheduler Scheduler
	Schedule  ScheduleSource
	Labels    LabelSource
	Clock     clockwork.Clock
	Recorder  metrics.Recorder
	// Notice receives informational messages for the user.
	Notice func(msg string)
}

// Controller owns at most one keep-alive Session.
type Controller struct {
	opts   Options
	logger zerolog.Logger

	feature atomic.Bool
	active  atomic.Bool

	mu      sync.Mutex
	session *Session
	epoch   uint64 // bumped by every Disable
}

var _ Strategy = (*Controller)(nil)

// New creates a controller with the feature flag set to featureOn.
func New(opts Options, featureOn bool) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	c := &Controller{
		opts:   opts,
		logger: logging.GetLogger("keepalive"),
	}
	c.feature.Store(featureOn)
	return c
}

// Active reports whether a session is open.
func (c *Controller) Active() bool { return c.active.Load() }

// Feature reports the feature flag.
func (c *Controller) Feature() bool { return c.feature.Load() }

// Session returns a copy of the open session, if any.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Enable opens a session. It does nothing when the feature is off, and only
// reports a notice when a session is already open.
func (c *Controller) Enable(ctx context.Context) error {
	if !c.feature.Load() {
		c.logger.Debug().Msg("Background mode is off, not enabling")
		return nil
	}
	if !c.active.CompareAndSwap(false, true) {
		c.notice(NoticeAlreadyActive)
		return nil
	}

	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	s, err := c.open(ctx)
	if err != nil {
		c.active.Store(false)
		return err
	}

	c.mu.Lock()
	if epoch != c.epoch || !c.feature.Load() {
		// Disable or SetFeature(false) ran while the session was opening.
		c.mu.Unlock()
		defer c.active.Store(false)
		c.logger.Debug().Msg("Background mode switched off during enable")
		return c.teardown(ctx, s)
	}
	c.session = s
	c.mu.Unlock()

	c.opts.Recorder.SetKeepAliveActive(true)
	c.logger.Info().Str("session", s.ID.String()).Msg("Background mode enabled")
	return nil
}

func (c *Controller) open(ctx context.Context) (*Session, error) {
	if c.opts.Notifier == nil || !c.opts.Notifier.Ready() {
		return nil, ErrPermissionRequired
	}
	if c.opts.Audio == nil || !c.opts.Audio.Supported() {
		return nil, ErrUnsupportedPlatform
	}

	handle, err := c.opts.Audio.StartSilentKeepAlive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPlatform, err)
	}

	// The refresh task lives until Disable, not until the caller's ctx ends.
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	jobID, err := c.opts.Scheduler.Every(taskCtx, refreshJobName, refreshInterval, c.refresh)
	if err != nil {
		cancel()
		_ = handle.Close()
		return nil, fmt.Errorf("failed to start refresh task: %w", err)
	}

	return &Session{
		ID:        uuid.New(),
		StartedAt: c.opts.Clock.Now(),
		handle:    handle,
		jobID:     jobID,
		cancel:    cancel,
	}, nil
}

// Disable tears the session down. Calling it with no session is a no-op.
func (c *Controller) Disable(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.epoch++
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	defer c.active.Store(false)

	err := c.teardown(ctx, s)
	c.opts.Recorder.SetKeepAliveActive(false)
	c.logger.Info().
		Str("session", s.ID.String()).
		Dur("duration", c.opts.Clock.Since(s.StartedAt)).
		Msg("Background mode disabled")
	return err
}

// teardown stops everything s started and combines the errors.
func (c *Controller) teardown(ctx context.Context, s *Session) error {
	var result *multierror.Error
	s.cancel()
	if err := c.opts.Scheduler.Remove(s.jobID); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.handle.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop keep-alive: %w", err))
	}
	if err := c.opts.Notifier.Clear(ctx, NotificationTag); err != nil {
		result = multierror.Append(result, fmt.Errorf("clear notification: %w", err))
	}
	if c.opts.Surface != nil {
		if err := c.opts.Surface.ResetNowPlaying(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("reset surface: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// SetFeature flips the feature flag. Turning it off disables any session.
func (c *Controller) SetFeature(ctx context.Context, on bool) error {
	c.feature.Store(on)
	if on {
		return nil
	}
	return c.Disable(ctx)
}

// refresh republishes the countdown. Sink failures are logged; the task
// keeps running.
func (c *Controller) refresh(ctx context.Context) error {
	sched := c.opts.Schedule.Schedule()
	if sched.Len() == 0 {
		return nil
	}
	ev, err := prayer.Resolve(sched, c.opts.Clock.Now())
	if err != nil {
		return err
	}
	labels := c.opts.Labels.Labels()
	np := SurfaceMetadata(ev, labels)

	if c.opts.Surface != nil {
		if err := c.opts.Surface.SetNowPlaying(ctx, np); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update surface")
		}
	}
	if err := c.opts.Notifier.ShowPersistent(ctx, NotificationTag, np.Title+" "+prayer.FormatCountdown(ev.Remaining), sched.Summary(labels, summaryLayout)); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to refresh countdown notification")
	}
	return nil
}

func (c *Controller) notice(msg string) {
	c.logger.Info().Msg(msg)
	if c.opts.Notice != nil {
		c.opts.Notice(msg)
	}
}
