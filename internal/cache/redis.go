package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smokyabdulrahman/uyan/internal/api"
	"github.com/smokyabdulrahman/uyan/internal/geo"
)

// timingsTTL keeps a day around long enough to survive a restart near midnight.
const timingsTTL = 48 * time.Hour

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string // key prefix, defaults to "uyan"
}

// RedisStore keeps cache entries in redis with expiring keys, so several
// instances on one host or LAN share fetched days.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a client for opts. It does not dial; use Ping to
// check connectivity.
func NewRedisStore(opts RedisOptions) *RedisStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "uyan"
	}
	return &RedisStore{
		rdb: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Username: opts.Username,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		prefix: prefix,
	}
}

// Ping checks that the server is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client's connections.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func (r *RedisStore) timingsKey(k Key) string {
	return r.prefix + ":timings:" + k.Hash()
}

func (r *RedisStore) geoKey() string {
	return r.prefix + ":geo"
}

// LoadTimings reads the cached day for k.
func (r *RedisStore) LoadTimings(ctx context.Context, k Key) *TimingsEntry {
	data, err := r.rdb.Get(ctx, r.timingsKey(k)).Bytes()
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

// SaveTimings stores day under k for two days.
func (r *RedisStore) SaveTimings(ctx context.Context, k Key, day *api.Day) error {
	data, err := json.Marshal(newTimingsEntry(k, day))
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := r.rdb.Set(ctx, r.timingsKey(k), data, timingsTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.timingsKey(k), err)
	}
	return nil
}

// LoadGeo reads the cached location. Expiry is left to redis.
func (r *RedisStore) LoadGeo(ctx context.Context) *geo.Location {
	data, err := r.rdb.Get(ctx, r.geoKey()).Bytes()
	if err != nil {
		return nil
	}

	var entry GeoCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}
	return &entry.Location
}

// SaveGeo stores loc for 24 hours.
func (r *RedisStore) SaveGeo(ctx context.Context, loc *geo.Location) error {
	data, err := json.Marshal(GeoCacheEntry{Location: *loc, CachedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal geo cache: %w", err)
	}
	if err := r.rdb.Set(ctx, r.geoKey(), data, geoTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.geoKey(), err)
	}
	return nil
}
