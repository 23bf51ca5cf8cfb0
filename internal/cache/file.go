package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smokyabdulrahman/uyan/internal/api"
	"github.com/smokyabdulrahman/uyan/internal/geo"
)

const (
	timingsFile = "timings_%s.json"
	geoFile     = "geolocation.json"
)

// FileStore keeps one JSON file per cached day under a directory.
type FileStore struct {
	dir string
	now func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at dir.
// If dir is empty, it defaults to ~/.cache/uyan/.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".cache", "uyan")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the cache directory.
func (c *FileStore) Dir() string { return c.dir }

func (c *FileStore) timingsPath(k Key) string {
	return filepath.Join(c.dir, fmt.Sprintf(timingsFile, k.Hash()))
}

// LoadTimings reads the cached day for k.
func (c *FileStore) LoadTimings(_ context.Context, k Key) *TimingsEntry {
	data, err := os.ReadFile(c.timingsPath(k))
	if err != nil {
		return nil
	}

	var entry TimingsEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}
	if entry.Date != k.DateString() {
		return nil
	}

	return &entry
}

// SaveTimings writes day to the cache under k.
func (c *FileStore) SaveTimings(_ context.Context, k Key, day *api.Day) error {
	data, err := json.Marshal(newTimingsEntry(k, day))
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := os.WriteFile(c.timingsPath(k), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// LoadGeo reads the cached location, or nil when older than 24 hours.
func (c *FileStore) LoadGeo(_ context.Context) *geo.Location {
	data, err := os.ReadFile(filepath.Join(c.dir, geoFile))
	if err != nil {
		return nil
	}

	var entry GeoCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}
	if c.now().Sub(entry.CachedAt) > geoTTL {
		return nil
	}

	return &entry.Location
}

// SaveGeo writes a detected location to the cache.
func (c *FileStore) SaveGeo(_ context.Context, loc *geo.Location) error {
	data, err := json.Marshal(GeoCacheEntry{Location: *loc, CachedAt: c.now()})
	if err != nil {
		return fmt.Errorf("failed to marshal geo cache: %w", err)
	}

	if err := os.WriteFile(filepath.Join(c.dir, geoFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write geo cache: %w", err)
	}
	return nil
}
