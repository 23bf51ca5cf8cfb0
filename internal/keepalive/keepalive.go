// Package keepalive keeps the countdown sampling alive while the host would
// otherwise suspend timers, and mirrors the next prayer onto a lock-screen
// style surface and a persistent notification.
package keepalive

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/smokyabdulrahman/uyan/internal/notify"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
)

// NotificationTag identifies the persistent countdown notification, so each
// refresh replaces the previous one.
const NotificationTag = "uyan-countdown"

// Album is the fixed album line on the lock-screen surface.
const Album = "Uyan! Namaz Vakitleri"

// NoticeAlreadyActive is reported when Enable is called with a session open.
const NoticeAlreadyActive = "Arka plan modu zaten aktif."

var (
	// ErrPermissionRequired means the notification sink is not allowed to
	// deliver yet. Background mode stays off.
	ErrPermissionRequired = errors.New("notification permission required")
	// ErrUnsupportedPlatform means no keep-alive primitive is available.
	ErrUnsupportedPlatform = errors.New("background keep-alive not supported on this platform")
)

// Strategy is how the engine keeps sampling alive. Controller is the real
// one; Noop suits hosts that never suspend timers.
type Strategy interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	SetFeature(ctx context.Context, on bool) error
	Active() bool
}

// Notifier is the persistent notification sink.
type Notifier interface {
	ShowPersistent(ctx context.Context, id, title, body string) error
	Clear(ctx context.Context, id string) error
	Ready() bool
}

// Surface is a "now playing" style display.
type Surface interface {
	SetNowPlaying(ctx context.Context, np notify.NowPlaying) error
	ResetNowPlaying(ctx context.Context) error
}

// KeepAliver holds the low-level keep-alive resource.
type KeepAliver interface {
	Supported() bool
	StartSilentKeepAlive(ctx context.Context) (io.Closer, error)
}

// ScheduleSource returns the schedule currently armed, or nil.
type ScheduleSource interface {
	Schedule() *prayer.DaySchedule
}

// LabelSource returns the display labels in effect.
type LabelSource interface {
	Labels() prayer.Labels
}

// Session is one active keep-alive period.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	handle io.Closer
	jobID  uuid.UUID
	cancel context.CancelFunc
}

// SurfaceMetadata builds the lock-screen metadata for ev.
func SurfaceMetadata(ev prayer.NextEvent, labels prayer.Labels) notify.NowPlaying {
	return notify.NowPlaying{
		Title:  labels.Label(ev.Name) + " Vaktine Kalan",
		Artist: "Kalan Süre: " + prayer.FormatCountdown(ev.Remaining),
		Album:  Album,
	}
}

// Noop satisfies Strategy without doing anything.
type Noop struct{}

var _ Strategy = Noop{}

func (Noop) Enable(context.Context) error           { return nil }
func (Noop) Disable(context.Context) error          { return nil }
func (Noop) SetFeature(context.Context, bool) error { return nil }
func (Noop) Active() bool                           { return false }
