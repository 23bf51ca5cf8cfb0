package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/smokyabdulrahman/uyan/internal/cache"
	"github.com/smokyabdulrahman/uyan/internal/config"
	"github.com/smokyabdulrahman/uyan/internal/geo"
	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/metrics"
	"github.com/smokyabdulrahman/uyan/internal/timesource"
)

// resolvedPlace is where timings are fetched for, plus the timezone hint
// from geo-detection.
type resolvedPlace struct {
	timesource.Place
	Timezone string
	Detected bool
}

// String builds a "City, Country" string, or coordinates.
func (p resolvedPlace) String() string {
	if p.City != "" && p.Country != "" {
		return p.City + ", " + p.Country
	}
	return fmt.Sprintf("%.4f, %.4f", p.Coordinate.Lat, p.Coordinate.Lon)
}

// detectLocation is a variable so tests never touch the network.
var detectLocation = geo.DetectLocation

// resolvePlace determines the effective location.
// Priority: coordinates > city > cached geolocation > IP auto-detect.
func resolvePlace(ctx context.Context, cfg *config.Config, store cache.Store) (resolvedPlace, error) {
	switch {
	case cfg.HasCoordinates():
		return resolvedPlace{Place: timesource.Place{
			Coordinate: geo.Coordinate{Lat: cfg.Latitude, Lon: cfg.Longitude},
		}}, nil
	case cfg.City != "":
		if cfg.Country == "" {
			return resolvedPlace{}, errors.New("--country is required when using --city")
		}
		return resolvedPlace{Place: timesource.Place{City: cfg.City, Country: cfg.Country}}, nil
	}

	if store != nil {
		if cached := store.LoadGeo(ctx); cached != nil {
			return placeFromGeo(cached), nil
		}
	}

	detected, err := detectLocation(ctx)
	if err != nil {
		return resolvedPlace{}, fmt.Errorf("no location specified and auto-detection failed: %w", err)
	}
	if store != nil {
		_ = store.SaveGeo(ctx, detected) // best-effort
	}
	return placeFromGeo(detected), nil
}

func placeFromGeo(l *geo.Location) resolvedPlace {
	return resolvedPlace{
		Place:    timesource.Place{Coordinate: l.Coordinate()},
		Timezone: l.Timezone,
		Detected: true,
	}
}

// location returns the zone timings are interpreted in: the configured
// timezone, then the geo-detected one, then the local zone.
func (p resolvedPlace) location(cfg *config.Config) *time.Location {
	if cfg.Timezone == "" && p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
	}
	return cfg.Location()
}

// openStore opens the configured cache backend. Failures are not fatal:
// the command runs uncached. The returned closer is never nil.
func openStore(ctx context.Context, cfg *config.Config) (cache.Store, io.Closer) {
	logger := logging.GetLogger("cli")

	if cfg.Cache.Backend == "redis" {
		rs := cache.NewRedisStore(cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   cfg.Cache.RedisPrefix,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := rs.Ping(pingCtx)
		if err == nil {
			return rs, rs
		}
		logger.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Redis cache unavailable, falling back to file cache")
		_ = rs.Close()
	}

	fs, err := cache.NewFileStore(cfg.CacheDir)
	if err != nil {
		logger.Warn().Err(err).Msg("Cache disabled")
		return nil, nopCloser{}
	}
	return fs, nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newSource builds the cached time source.
func (a *app) newSource(store cache.Store, loc *time.Location, rec metrics.Recorder) *timesource.Source {
	return timesource.New(a.timeFetcher(), timesource.Options{
		Method:   a.cfg.Method,
		School:   a.cfg.School,
		Location: loc,
		Store:    store,
		Recorder: rec,
	})
}

// fetchDay resolves the place and loads the schedule for the calendar
// day of date.
func (a *app) fetchDay(ctx context.Context, date time.Time) (*timesource.Day, resolvedPlace, error) {
	store, closer := openStore(ctx, a.cfg)
	defer closer.Close()

	place, err := resolvePlace(ctx, a.cfg, store)
	if err != nil {
		return nil, resolvedPlace{}, err
	}
	loc := place.location(a.cfg)

	src := a.newSource(store, loc, nil)
	day, err := src.FetchDay(ctx, place.Place, date.In(loc))
	if err != nil {
		return nil, place, err
	}
	logger := logging.GetLogger("cli")
	logger.Debug().
		Str("place", place.String()).
		Bool("cached", day.Cached).
		Msg("Loaded schedule")
	return day, place, nil
}
