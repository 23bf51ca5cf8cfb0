package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smokyabdulrahman/uyan/internal/api"
	"github.com/smokyabdulrahman/uyan/internal/geo"
)

func sampleDay() *api.Day {
	return &api.Day{
		Timings: api.Timings{
			Fajr:    "06:11",
			Sunrise: "07:38",
			Dhuhr:   "13:09",
			Asr:     "16:14",
			Maghrib: "18:20",
			Isha:    "19:41",
		},
		Meta: api.Meta{
			Latitude:  41.0,
			Longitude: 28.97,
			Timezone:  "Europe/Istanbul",
			Method:    api.MethodInfo{ID: 13, Name: "Diyanet"},
		},
	}
}

func sampleKey() Key {
	return Key{
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Lat:    41.0,
		Lon:    28.97,
		Method: 13,
		School: -1,
	}
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	c, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return c
}

// ---------------------------------------------------------------------------
// NewFileStore
// ---------------------------------------------------------------------------

func TestNewFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "subdir", "cache")
	c, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore(%q) error: %v", dir, err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Errorf("directory %q was not created", dir)
	}
	if c.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", c.Dir(), dir)
	}
}

// ---------------------------------------------------------------------------
// SaveTimings / LoadTimings
// ---------------------------------------------------------------------------

func TestTimings_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t)

	if err := c.SaveTimings(ctx, sampleKey(), sampleDay()); err != nil {
		t.Fatalf("SaveTimings error: %v", err)
	}

	entry := c.LoadTimings(ctx, sampleKey())
	if entry == nil {
		t.Fatal("LoadTimings returned nil after save")
	}
	if entry.Day.Timings.Maghrib != "18:20" {
		t.Errorf("Maghrib = %q, want %q", entry.Day.Timings.Maghrib, "18:20")
	}
	if entry.Day.Meta.Timezone != "Europe/Istanbul" {
		t.Errorf("Timezone = %q, want %q", entry.Day.Meta.Timezone, "Europe/Istanbul")
	}
	if entry.Date != "2026-03-02" || entry.Method != 13 {
		t.Errorf("entry metadata = %q/%d", entry.Date, entry.Method)
	}
}

func TestTimings_Misses(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t)
	_ = c.SaveTimings(ctx, sampleKey(), sampleDay())

	tests := []struct {
		name   string
		mutate func(*Key)
	}{
		{"next day", func(k *Key) { k.Date = k.Date.AddDate(0, 0, 1) }},
		{"different method", func(k *Key) { k.Method = 3 }},
		{"different coordinates", func(k *Key) { k.Lat = 39.93 }},
		{"city instead of coordinates", func(k *Key) { k.City, k.Country = "Istanbul", "Turkey" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := sampleKey()
			tt.mutate(&k)
			if entry := c.LoadTimings(ctx, k); entry != nil {
				t.Error("expected nil, got entry")
			}
		})
	}
}

func TestTimings_StaleDateInFile(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t)
	k := sampleKey()

	entry := newTimingsEntry(k, sampleDay())
	entry.Date = "2026-03-01"
	data, _ := json.Marshal(entry)
	os.WriteFile(c.timingsPath(k), data, 0o644)

	if got := c.LoadTimings(ctx, k); got != nil {
		t.Error("expected nil for mismatched date, got entry")
	}
}

func TestTimings_CorruptedFile(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t)
	k := sampleKey()

	_ = c.SaveTimings(ctx, k, sampleDay())
	os.WriteFile(c.timingsPath(k), []byte("not-json"), 0o644)

	if entry := c.LoadTimings(ctx, k); entry != nil {
		t.Error("expected nil for corrupted cache file, got entry")
	}
}

// ---------------------------------------------------------------------------
// SaveGeo / LoadGeo
// ---------------------------------------------------------------------------

func TestGeo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t)

	loc := &geo.Location{Latitude: 41.0, Longitude: 28.97, City: "Istanbul", Country: "Turkey", Timezone: "Europe/Istanbul"}
	if err := c.SaveGeo(ctx, loc); err != nil {
		t.Fatalf("SaveGeo error: %v", err)
	}

	got := c.LoadGeo(ctx)
	if got == nil {
		t.Fatal("LoadGeo returned nil after save")
	}
	if got.City != "Istanbul" || got.Latitude != 41.0 {
		t.Errorf("LoadGeo() = %+v", got)
	}
}

func TestGeo_CacheMiss(t *testing.T) {
	c := newTestStore(t)
	if got := c.LoadGeo(context.Background()); got != nil {
		t.Error("expected nil for geo cache miss, got entry")
	}
}

func TestGeo_ExpiredTTL(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t)

	saved := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return saved }
	_ = c.SaveGeo(ctx, &geo.Location{City: "Istanbul"})

	c.now = func() time.Time { return saved.Add(23 * time.Hour) }
	if c.LoadGeo(ctx) == nil {
		t.Error("expected entry within TTL")
	}

	c.now = func() time.Time { return saved.Add(25 * time.Hour) }
	if c.LoadGeo(ctx) != nil {
		t.Error("expected nil for expired geo cache, got entry")
	}
}

func TestGeo_CorruptedFile(t *testing.T) {
	c := newTestStore(t)
	os.WriteFile(filepath.Join(c.Dir(), geoFile), []byte("{bad json"), 0o644)

	if got := c.LoadGeo(context.Background()); got != nil {
		t.Error("expected nil for corrupted geo cache, got entry")
	}
}
