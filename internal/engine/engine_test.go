package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/uyan/internal/alarm"
	"github.com/smokyabdulrahman/uyan/internal/api"
	"github.com/smokyabdulrahman/uyan/internal/geo"
	"github.com/smokyabdulrahman/uyan/internal/jobs"
	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
	"github.com/smokyabdulrahman/uyan/internal/timesource"
)

type fakeSource struct {
	mu    sync.Mutex
	err   error
	calls []time.Time
	place []timesource.Place
	// per-date clock offset in minutes, to tell days apart
	shift map[string]int
}

func (f *fakeSource) FetchDay(_ context.Context, place timesource.Place, date time.Time) (*timesource.Day, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, date)
	f.place = append(f.place, place)
	if f.err != nil {
		return nil, f.err
	}
	m := f.shift[date.Format("2006-01-02")]
	raw := map[prayer.Name]string{
		prayer.Fajr:    fmt.Sprintf("05:%02d", m),
		prayer.Sunrise: "06:30",
		prayer.Dhuhr:   "12:30",
		prayer.Asr:     "15:45",
		prayer.Maghrib: "18:20",
		prayer.Isha:    "19:45",
	}
	s, err := prayer.Normalize(raw, date, time.UTC)
	if err != nil {
		return nil, err
	}
	return &timesource.Day{Schedule: s, Timezone: "UTC", Hijri: api.HijriDate{Year: "1447"}}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeScheduler struct {
	clock    clockwork.Clock
	task     jobs.Task
	onFault  jobs.FaultHandler
	started  bool
	removed  []uuid.UUID
	shutdown bool
}

func (s *fakeScheduler) Every(_ context.Context, _ string, _ time.Duration, task jobs.Task) (uuid.UUID, error) {
	s.task = task
	return uuid.New(), nil
}

func (s *fakeScheduler) Remove(id uuid.UUID) error {
	s.removed = append(s.removed, id)
	return nil
}

func (s *fakeScheduler) OnFault(h jobs.FaultHandler) { s.onFault = h }
func (s *fakeScheduler) Clock() clockwork.Clock      { return s.clock }
func (s *fakeScheduler) Start()                      { s.started = true }
func (s *fakeScheduler) Shutdown() error {
	s.shutdown = true
	return nil
}

type fakeStrategy struct {
	disabled int
}

func (f *fakeStrategy) Enable(context.Context) error           { return nil }
func (f *fakeStrategy) SetFeature(context.Context, bool) error { return nil }
func (f *fakeStrategy) Active() bool                           { return false }

func (f *fakeStrategy) Disable(context.Context) error {
	f.disabled++
	return nil
}

type harness struct {
	src     *fakeSource
	sched   *fakeScheduler
	clock   *clockwork.FakeClock
	ka      *fakeStrategy
	engine  *Engine
	mu      sync.Mutex
	entered []prayer.Name
}

func newHarness(t *testing.T, start time.Time) *harness {
	t.Helper()
	h := &harness{
		src:   &fakeSource{shift: map[string]int{}},
		clock: clockwork.NewFakeClockAt(start),
		ka:    &fakeStrategy{},
	}
	h.sched = &fakeScheduler{clock: h.clock}
	h.engine = New(Options{
		Source:    h.src,
		Place:     timesource.Place{Coordinate: geo.Coordinate{Lat: 41.0, Lon: 28.97}},
		Location:  time.UTC,
		KeepAlive: h.ka,
		Scheduler: h.sched,
	})
	h.engine.Detector().OnEntered(func(_ context.Context, e alarm.Entered) {
		h.mu.Lock()
		h.entered = append(h.entered, e.Name)
		h.mu.Unlock()
	}, "test")
	return h
}

func (h *harness) tickAt(t *testing.T, at time.Time) {
	t.Helper()
	h.clock.Advance(at.Sub(h.clock.Now()))
	require.NoError(t, h.sched.task(context.Background()))
}

func (h *harness) got() []prayer.Name {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]prayer.Name(nil), h.entered...)
}

func day(d, hh, mm, ss int) time.Time {
	return time.Date(2026, 3, d, hh, mm, ss, 0, time.UTC)
}

func TestEngine_StartArmsAndTicks(t *testing.T) {
	h := newHarness(t, day(2, 18, 19, 58))
	require.NoError(t, h.engine.Start(context.Background()))

	assert.True(t, h.sched.started)
	require.NotNil(t, h.sched.task)
	assert.Equal(t, alarm.Armed, h.engine.Detector().State())
	require.NotNil(t, h.engine.Schedule())
	assert.Equal(t, "1447", h.engine.Schedule().Hijri.Year)

	h.tickAt(t, day(2, 18, 19, 59))
	ev, ok := h.engine.Next(h.engine.Now())
	require.True(t, ok)
	assert.Equal(t, prayer.Maghrib, ev.Name)
	assert.Equal(t, int64(1), ev.RemainingSeconds())

	h.tickAt(t, day(2, 18, 20, 0))
	h.tickAt(t, day(2, 18, 20, 1))
	assert.Equal(t, []prayer.Name{prayer.Maghrib}, h.got())
}

func TestEngine_StartFailsWithSourceError(t *testing.T) {
	h := newHarness(t, day(2, 9, 0, 0))
	h.src.err = api.ErrNotFound

	err := h.engine.Start(context.Background())
	require.ErrorIs(t, err, api.ErrNotFound)
	assert.False(t, h.sched.started)
	assert.Equal(t, alarm.Idle, h.engine.Detector().State())
}

func TestEngine_StartTwiceIsNoop(t *testing.T) {
	h := newHarness(t, day(2, 9, 0, 0))
	ctx := context.Background()
	require.NoError(t, h.engine.Start(ctx))
	require.NoError(t, h.engine.Start(ctx))
	assert.Equal(t, 1, h.src.callCount())
}

func TestEngine_RolloverAtMidnight(t *testing.T) {
	h := newHarness(t, day(2, 23, 59, 58))
	h.src.shift["2026-03-03"] = 2
	require.NoError(t, h.engine.Start(context.Background()))

	h.tickAt(t, day(2, 23, 59, 59))
	h.tickAt(t, day(3, 0, 0, 0))

	sched := h.engine.Schedule().Schedule
	assert.True(t, sched.SameDay(day(3, 12, 0, 0)))
	fajr, _ := sched.Get(prayer.Fajr)
	assert.Equal(t, day(3, 5, 2, 0), fajr.Time)

	// Re-arming suppresses the first tick; Fajr still fires on the new day.
	h.tickAt(t, day(3, 5, 2, 0))
	h.tickAt(t, day(3, 5, 2, 1))
	assert.Equal(t, []prayer.Name{prayer.Fajr}, h.got())
}

func TestEngine_RolloverFailureKeepsScheduleAndRetriesPerMinute(t *testing.T) {
	h := newHarness(t, day(2, 23, 59, 59))
	require.NoError(t, h.engine.Start(context.Background()))
	h.tickAt(t, day(2, 23, 59, 59))
	before := h.engine.Schedule()

	h.src.mu.Lock()
	h.src.err = errors.New("network down")
	h.src.mu.Unlock()

	for s := 0; s < 30; s++ {
		h.tickAt(t, day(3, 0, 0, s))
	}
	assert.Same(t, before, h.engine.Schedule())
	assert.Equal(t, 2, h.src.callCount(), "one start fetch plus one retry in the first minute")

	h.src.mu.Lock()
	h.src.err = nil
	h.src.mu.Unlock()

	h.tickAt(t, day(3, 0, 0, 59))
	assert.Equal(t, 2, h.src.callCount())
	h.tickAt(t, day(3, 0, 1, 0))
	assert.Equal(t, 3, h.src.callCount())
	assert.True(t, h.engine.Schedule().Schedule.SameDay(day(3, 0, 1, 0)))
}

func TestEngine_RolloverFailureWarnsOncePastFirstPrayer(t *testing.T) {
	var buf bytes.Buffer
	logging.InitializeWriter(false, &buf)
	t.Cleanup(func() { logging.InitializeWriter(false, io.Discard) })

	h := newHarness(t, day(2, 23, 59, 59))
	require.NoError(t, h.engine.Start(context.Background()))
	h.src.mu.Lock()
	h.src.err = errors.New("network down")
	h.src.mu.Unlock()

	const msg = "Schedule is out of date, prayer alerts are being missed"
	h.tickAt(t, day(3, 4, 59, 0))
	assert.NotContains(t, buf.String(), msg)

	for m := 0; m < 5; m++ {
		h.tickAt(t, day(3, 5, m, 0))
	}
	assert.Equal(t, 1, strings.Count(buf.String(), msg))
	assert.Empty(t, h.got())
}

func TestEngine_Relocate(t *testing.T) {
	h := newHarness(t, day(2, 12, 0, 0))
	ctx := context.Background()
	require.NoError(t, h.engine.Start(ctx))
	h.tickAt(t, day(2, 12, 0, 1))

	c := geo.Coordinate{Lat: 39.93, Lon: 32.85}
	require.NoError(t, h.engine.Relocate(ctx, c))
	assert.Equal(t, c, h.engine.Place().Coordinate)

	// The first tick after relocating is a baseline even across a prayer.
	h.tickAt(t, day(2, 12, 30, 0))
	assert.Empty(t, h.got())
	h.tickAt(t, day(2, 15, 45, 0))
	assert.Equal(t, []prayer.Name{prayer.Asr}, h.got())
}

func TestEngine_RelocateFailureKeepsSchedule(t *testing.T) {
	h := newHarness(t, day(2, 12, 0, 0))
	ctx := context.Background()
	require.NoError(t, h.engine.Start(ctx))
	before := h.engine.Schedule()
	placeBefore := h.engine.Place()

	h.src.err = errors.New("boom")
	require.Error(t, h.engine.Relocate(ctx, geo.Coordinate{Lat: 1, Lon: 1}))
	assert.Same(t, before, h.engine.Schedule())
	assert.Equal(t, placeBefore, h.engine.Place())
}

func TestEngine_ShowDatePinsUntilToday(t *testing.T) {
	h := newHarness(t, day(2, 23, 59, 0))
	ctx := context.Background()
	require.NoError(t, h.engine.Start(ctx))

	require.NoError(t, h.engine.ShowDate(ctx, day(10, 0, 0, 0)))
	assert.True(t, h.engine.Schedule().Schedule.SameDay(day(10, 12, 0, 0)))

	calls := h.src.callCount()
	h.tickAt(t, day(3, 0, 0, 5))
	assert.Equal(t, calls, h.src.callCount(), "pinned day must not roll over")
	assert.True(t, h.engine.Schedule().Schedule.SameDay(day(10, 12, 0, 0)))

	require.NoError(t, h.engine.ShowDate(ctx, h.engine.Now()))
	assert.True(t, h.engine.Schedule().Schedule.SameDay(day(3, 0, 0, 0)))
}

func TestEngine_RequiresStart(t *testing.T) {
	h := newHarness(t, day(2, 12, 0, 0))
	ctx := context.Background()

	assert.ErrorIs(t, h.engine.Relocate(ctx, geo.Coordinate{Lat: 1, Lon: 1}), ErrNotStarted)
	assert.ErrorIs(t, h.engine.ShowDate(ctx, day(3, 0, 0, 0)), ErrNotStarted)
	assert.Equal(t, 0, h.src.callCount())
}

func TestEngine_Stop(t *testing.T) {
	h := newHarness(t, day(2, 12, 0, 0))
	ctx := context.Background()
	require.NoError(t, h.engine.Start(ctx))

	require.NoError(t, h.engine.Stop(ctx))
	assert.Len(t, h.sched.removed, 1)
	assert.True(t, h.sched.shutdown)
	assert.Equal(t, 1, h.ka.disabled)
	assert.Equal(t, alarm.Idle, h.engine.Detector().State())

	// Stopping again is harmless.
	require.NoError(t, h.engine.Stop(ctx))
	assert.Equal(t, 1, h.ka.disabled)
}

func TestEngine_TickFaultCounted(t *testing.T) {
	h := newHarness(t, day(2, 12, 0, 0))
	require.NoError(t, h.engine.Start(context.Background()))
	require.NotNil(t, h.sched.onFault)
	// The handler only counts faults of the tick job; just make sure it
	// tolerates both.
	h.sched.onFault(tickJobName, errors.New("x"))
	h.sched.onFault("other", errors.New("y"))
}
