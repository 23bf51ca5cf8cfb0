package alarm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/uyan/internal/prayer"
)

type fakePrefs struct {
	mu      sync.Mutex
	enabled EnabledSet
	labels  prayer.Labels
	sound   string
}

func (f *fakePrefs) EnabledSet() EnabledSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(EnabledSet, len(f.enabled))
	for k, v := range f.enabled {
		out[k] = v
	}
	return out
}

func (f *fakePrefs) Labels() prayer.Labels { return f.labels }
func (f *fakePrefs) SoundID() string       { return f.sound }

func (f *fakePrefs) set(key string, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled[key] = on
}

type notification struct{ title, body string }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (f *fakeNotifier) NotifyOnce(_ context.Context, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{title, body})
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakePlayer struct {
	mu     sync.Mutex
	played []string
	panic  bool
}

func (f *fakePlayer) PlayOneShot(_ context.Context, id string) error {
	f.mu.Lock()
	f.played = append(f.played, id)
	f.mu.Unlock()
	if f.panic {
		panic("audio device vanished")
	}
	return nil
}

func (f *fakePlayer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.played)
}

func defaultPrefs() *fakePrefs {
	return &fakePrefs{
		enabled: EnabledSet{"İmsak": true, "Güneş": false, "Öğle": true, "İkindi": true, "Akşam": true, "Yatsı": true},
		labels:  prayer.DefaultLabels(),
		sound:   "chime",
	}
}

func TestEnabledSet_Allows(t *testing.T) {
	tests := []struct {
		name   string
		set    EnabledSet
		labels prayer.Labels
		prayer prayer.Name
		want   bool
	}{
		{"label enabled", EnabledSet{"Akşam": true}, prayer.DefaultLabels(), prayer.Maghrib, true},
		{"label disabled", EnabledSet{"Akşam": false}, prayer.DefaultLabels(), prayer.Maghrib, false},
		{"missing is off", EnabledSet{}, prayer.DefaultLabels(), prayer.Maghrib, false},
		{"canonical name fallback", EnabledSet{"Maghrib": true}, prayer.DefaultLabels(), prayer.Maghrib, true},
		{"ramadan alias wins", EnabledSet{"İftar": true, "Maghrib": false}, prayer.RamadanLabels(), prayer.Maghrib, true},
		{"ramadan alias off", EnabledSet{"İftar": false, "Maghrib": true}, prayer.RamadanLabels(), prayer.Maghrib, false},
		{"nil set", nil, prayer.DefaultLabels(), prayer.Fajr, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.set.Allows(tt.prayer, tt.labels))
		})
	}
}

func TestDispatcher_EnabledSendsOneOfEach(t *testing.T) {
	prefs := defaultPrefs()
	n, p := &fakeNotifier{}, &fakePlayer{}
	d := NewDispatcher(prefs, n, p, nil)

	d.OnEntered(context.Background(), Entered{Name: prayer.Maghrib, At: at(18, 20, 0)})
	d.Wait()

	require.Len(t, n.sent, 1)
	assert.Equal(t, "Akşam Vakti Girdi!", n.sent[0].title)
	assert.Equal(t, "Namaz vakti geldi.", n.sent[0].body)
	assert.Equal(t, []string{"chime"}, p.played)
}

func TestDispatcher_DisabledOrMissingDoesNothing(t *testing.T) {
	for _, name := range []prayer.Name{prayer.Sunrise, prayer.Isha} {
		prefs := defaultPrefs()
		delete(prefs.enabled, "Yatsı")
		n, p := &fakeNotifier{}, &fakePlayer{}
		d := NewDispatcher(prefs, n, p, nil)

		d.OnEntered(context.Background(), Entered{Name: name})
		d.Wait()

		assert.Zero(t, n.count(), name)
		assert.Zero(t, p.count(), name)
	}
}

func TestDispatcher_RamadanLabel(t *testing.T) {
	prefs := defaultPrefs()
	prefs.labels = prayer.RamadanLabels()
	prefs.enabled["İftar"] = true
	prefs.enabled["Akşam"] = false
	n := &fakeNotifier{}
	d := NewDispatcher(prefs, n, nil, nil)

	d.OnEntered(context.Background(), Entered{Name: prayer.Maghrib})
	d.Wait()

	require.Len(t, n.sent, 1)
	assert.Equal(t, "İftar Vakti Girdi!", n.sent[0].title)
}

func TestDispatcher_SinkFailuresAreSwallowed(t *testing.T) {
	n := &fakeNotifier{err: errors.New("permission revoked")}
	p := &fakePlayer{panic: true}
	d := NewDispatcher(defaultPrefs(), n, p, nil)

	assert.NotPanics(t, func() {
		d.OnEntered(context.Background(), Entered{Name: prayer.Asr})
		d.Wait()
	})
	assert.Equal(t, 1, n.count())
	assert.Equal(t, 1, p.count())
}

func TestDispatcher_CanceledTickContextDoesNotCancelSinks(t *testing.T) {
	var gotErr error
	n := &ctxNotifier{fn: func(ctx context.Context) { gotErr = ctx.Err() }}
	d := NewDispatcher(defaultPrefs(), n, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.OnEntered(ctx, Entered{Name: prayer.Asr})
	d.Wait()

	assert.NoError(t, gotErr)
}

type ctxNotifier struct{ fn func(context.Context) }

func (c *ctxNotifier) NotifyOnce(ctx context.Context, _, _ string) error {
	c.fn(ctx)
	return nil
}

// Disabling before the transition suppresses it; enabling afterwards does
// not replay it.
func TestDispatcher_WithDetector_ToggleIsNotRetroactive(t *testing.T) {
	prefs := defaultPrefs()
	n, p := &fakeNotifier{}, &fakePlayer{}
	disp := NewDispatcher(prefs, n, p, nil)
	det := armedDetector(t)
	disp.Attach(det)
	ctx := context.Background()

	prefs.set("Akşam", false)
	det.Tick(ctx, at(18, 19, 59))
	det.Tick(ctx, at(18, 20, 0))
	disp.Wait()
	assert.Zero(t, n.count())
	assert.Zero(t, p.count())

	prefs.set("Akşam", true)
	det.Tick(ctx, at(18, 20, 1))
	det.Tick(ctx, at(18, 30, 0))
	disp.Wait()
	assert.Zero(t, n.count())
	assert.Zero(t, p.count())

	det.Tick(ctx, at(19, 45, 0))
	disp.Wait()
	assert.Equal(t, 1, n.count(), "Isha still fires")
	assert.Equal(t, 1, p.count())
}

func TestAlertTitle(t *testing.T) {
	assert.Equal(t, "Yatsı Vakti Girdi!", AlertTitle("Yatsı"))
}
