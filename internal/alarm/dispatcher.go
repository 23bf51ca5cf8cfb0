package alarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/metrics"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
)

const (
	alertBody   = "Namaz vakti geldi."
	sinkTimeout = 30 * time.Second
)

// Notifier sends a one-time notification.
type Notifier interface {
	NotifyOnce(ctx context.Context, title, body string) error
}

// Player plays a short sound.
type Player interface {
	PlayOneShot(ctx context.Context, soundID string) error
}

// EnabledSet maps a prayer's display label or canonical name to whether
// its alert is on.
type EnabledSet map[string]bool

// Allows looks up the active display label first so Ramadan aliases such
// as "İftar" are honoured, then the canonical name. Missing means off.
func (e EnabledSet) Allows(name prayer.Name, labels prayer.Labels) bool {
	if on, ok := e[labels.Label(name)]; ok {
		return on
	}
	return e[string(name)]
}

// Preferences is a read-only view of the user's settings at dispatch time.
type Preferences interface {
	EnabledSet() EnabledSet
	Labels() prayer.Labels
	SoundID() string
}

// Dispatcher turns Entered events into one notification and one sound for
// enabled prayers. Sinks run on their own goroutines; their failures are
// logged and counted, never returned or retried.
type Dispatcher struct {
	prefs    Preferences
	notifier Notifier
	player   Player
	recorder metrics.Recorder
	logger   zerolog.Logger

	wg sync.WaitGroup
}

// NewDispatcher wires the sinks. Either sink may be nil.
func NewDispatcher(prefs Preferences, n Notifier, p Player, rec metrics.Recorder) *Dispatcher {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Dispatcher{
		prefs:    prefs,
		notifier: n,
		player:   p,
		recorder: rec,
		logger:   logging.GetLogger("dispatcher"),
	}
}

// Attach subscribes the dispatcher to det's Entered events.
func (d *Dispatcher) Attach(det *Detector) {
	det.OnEntered(d.OnEntered, "dispatcher")
}

// AlertTitle returns the notification title for a label, e.g. "Akşam Vakti Girdi!".
func AlertTitle(label string) string {
	return label + " Vakti Girdi!"
}

// OnEntered dispatches the alert for e if the prayer is enabled. It does
// not deduplicate; the detector calls it once per transition.
func (d *Dispatcher) OnEntered(ctx context.Context, e Entered) {
	labels := d.prefs.Labels()
	if !d.prefs.EnabledSet().Allows(e.Name, labels) {
		d.recorder.IncDispatch("all", metrics.ResultSkipped)
		d.logger.Debug().Str("prayer", string(e.Name)).Msg("Alert disabled, skipping")
		return
	}

	title := AlertTitle(labels.Label(e.Name))
	sound := d.prefs.SoundID()
	// Sinks outlive the tick that triggered them.
	base := context.WithoutCancel(ctx)

	if d.notifier != nil {
		d.spawn(base, "notify", func(ctx context.Context) error {
			return d.notifier.NotifyOnce(ctx, title, alertBody)
		})
	}
	if d.player != nil {
		d.spawn(base, "audio", func(ctx context.Context) error {
			return d.player.PlayOneShot(ctx, sound)
		})
	}
}

// Wait blocks until in-flight sink calls finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) spawn(ctx context.Context, sink string, fn func(context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		defer cancel()

		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("sink panicked: %v", r)
				}
			}()
			return fn(ctx)
		}()
		if err != nil {
			d.recorder.IncDispatch(sink, metrics.ResultFailed)
			d.logger.Warn().Err(err).Str("sink", sink).Msg("Alert sink failed")
			return
		}
		d.recorder.IncDispatch(sink, metrics.ResultSuccess)
	}()
}
