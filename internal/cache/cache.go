// Package cache stores fetched prayer days and the detected location so
// the time source is hit at most once per (location, method, day).
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/smokyabdulrahman/uyan/internal/api"
	"github.com/smokyabdulrahman/uyan/internal/geo"
)

const geoTTL = 24 * time.Hour

// Store is implemented by the file and redis backends. Loads return nil on
// a miss or any read failure; callers fall back to the time source.
type Store interface {
	LoadTimings(ctx context.Context, k Key) *TimingsEntry
	SaveTimings(ctx context.Context, k Key, day *api.Day) error
	LoadGeo(ctx context.Context) *geo.Location
	SaveGeo(ctx context.Context, loc *geo.Location) error
}

// Key holds the request parameters that change the timings.
type Key struct {
	Date    time.Time
	Lat     float64
	Lon     float64
	City    string
	Country string
	Method  int
	School  int
}

// DateString returns the key's date as YYYY-MM-DD.
func (k Key) DateString() string {
	return k.Date.Format("2006-01-02")
}

// Hash returns a short deterministic digest of the key.
func (k Key) Hash() string {
	raw := fmt.Sprintf("%s|%.6f|%.6f|%s|%s|%d|%d",
		k.DateString(), k.Lat, k.Lon, k.City, k.Country, k.Method, k.School)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}

// TimingsEntry is one cached day plus the parameters it was fetched with.
type TimingsEntry struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Method int     `json:"method"`
	School int     `json:"school"`
	Day    api.Day `json:"day"`
}

func newTimingsEntry(k Key, day *api.Day) TimingsEntry {
	return TimingsEntry{
		Date:   k.DateString(),
		Method: k.Method,
		School: k.School,
		Day:    *day,
	}
}

// GeoCacheEntry stores a detected location with the time it was cached.
type GeoCacheEntry struct {
	Location geo.Location `json:"location"`
	CachedAt time.Time    `json:"cached_at"`
}
