// Package alarm turns a ticking clock into exactly-once "prayer entered"
// events and dispatches them to notification and audio sinks.
package alarm

import (
	"context"
	"sync"
	"time"

	"github.com/maniartech/signals"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/metrics"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
)

// State is the detector's lifecycle state.
type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Entered reports that a prayer time has begun.
type Entered struct {
	Name       prayer.Name
	At         time.Time // the prayer's scheduled instant
	DetectedAt time.Time // the tick that noticed the transition
}

// Detector samples the next prayer on every tick and emits Entered when
// the identity of "what is next" changes. Comparing identities instead of
// waiting for a zero countdown means a late or skipped tick still fires
// once, and only once.
type Detector struct {
	schedule atomic.Pointer[prayer.DaySchedule]

	mu        sync.Mutex
	lastKnown prayer.Name // "" until the first tick after arming
	lastAt    time.Time

	entered  signals.Signal[Entered]
	recorder metrics.Recorder
	logger   zerolog.Logger
}

// NewDetector returns an idle detector.
func NewDetector(rec metrics.Recorder) *Detector {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Detector{
		entered:  signals.New[Entered](),
		recorder: rec,
		logger:   logging.GetLogger("alarm"),
	}
}

// OnEntered registers a listener. A non-empty key allows RemoveListener.
func (d *Detector) OnEntered(handler func(ctx context.Context, e Entered), key ...string) {
	if len(key) > 0 {
		d.entered.AddListener(handler, key[0])
		return
	}
	d.entered.AddListener(handler)
}

// RemoveListener drops the listener registered under key.
func (d *Detector) RemoveListener(key string) {
	d.entered.RemoveListener(key)
}

// Arm swaps in s and forgets the previously seen prayer, so the next tick
// only records a baseline. Arming with nil disarms.
func (d *Detector) Arm(s *prayer.DaySchedule) {
	if s.Len() == 0 {
		d.Disarm()
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.schedule.Store(s)
	d.lastKnown = ""
	d.lastAt = time.Time{}
	d.logger.Debug().Str("date", s.Date().Format("2006-01-02")).Msg("Detector armed")
}

// Disarm drops the schedule; ticks become no-ops until the next Arm.
func (d *Detector) Disarm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.schedule.Store(nil)
	d.lastKnown = ""
	d.lastAt = time.Time{}
}

// State reports whether a schedule is loaded.
func (d *Detector) State() State {
	if d.schedule.Load() == nil {
		return Idle
	}
	return Armed
}

// Schedule returns the armed schedule or nil.
func (d *Detector) Schedule() *prayer.DaySchedule {
	return d.schedule.Load()
}

// Next resolves the next prayer against the armed schedule without
// touching the edge state.
func (d *Detector) Next(now time.Time) (prayer.NextEvent, bool) {
	s := d.schedule.Load()
	if s == nil {
		return prayer.NextEvent{}, false
	}
	ev, err := prayer.Resolve(s, now)
	if err != nil {
		return prayer.NextEvent{}, false
	}
	return ev, true
}

// Tick samples the schedule at now. When the next prayer differs from the
// one seen on the previous tick, the previous one has begun: Entered is
// emitted to listeners and also returned.
func (d *Detector) Tick(ctx context.Context, now time.Time) (Entered, bool) {
	start := time.Now()
	defer func() { d.recorder.ObserveTick(time.Since(start)) }()

	ev, fired, ok := d.step(now)
	if !ok {
		return Entered{}, false
	}
	d.recorder.SetNextRemaining(float64(ev.RemainingSeconds()))
	if !fired.Name.Valid() {
		return Entered{}, false
	}

	d.recorder.IncEntered(string(fired.Name))
	d.logger.Info().
		Str("prayer", string(fired.Name)).
		Time("at", fired.At).
		Time("detected_at", fired.DetectedAt).
		Msg("Prayer time entered")
	d.entered.Emit(ctx, fired)
	return fired, true
}

// step performs one edge-detection step under the lock. The emission
// decision is taken before lastKnown is overwritten.
func (d *Detector) step(now time.Time) (prayer.NextEvent, Entered, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.schedule.Load()
	if s == nil {
		return prayer.NextEvent{}, Entered{}, false
	}
	ev, err := prayer.Resolve(s, now)
	if err != nil {
		return prayer.NextEvent{}, Entered{}, false
	}

	var fired Entered
	if d.lastKnown != "" && ev.Name != d.lastKnown {
		fired = Entered{Name: d.lastKnown, At: d.lastAt, DetectedAt: now}
	}

	d.lastKnown = ev.Name
	d.lastAt = ev.At
	return ev, fired, true
}
