// Package timesource fetches one day of prayer times for a place, going to
// the cache first and the Al Adhan API on a miss, and normalizes the
// result into a prayer.DaySchedule.
package timesource

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/uyan/internal/api"
	"github.com/smokyabdulrahman/uyan/internal/cache"
	"github.com/smokyabdulrahman/uyan/internal/geo"
	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/metrics"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
)

// Fetcher is the remote side of the time source. *api.Client implements it.
type Fetcher interface {
	FetchDay(ctx context.Context, q api.Query) (*api.Day, error)
}

// Place selects where to compute timings for. City takes precedence over
// the coordinate when set.
type Place struct {
	Coordinate geo.Coordinate
	City       string
	Country    string
}

// Day is a normalized schedule plus the metadata shells display.
type Day struct {
	Schedule *prayer.DaySchedule
	Hijri    api.HijriDate
	Timezone string
	Method   api.MethodInfo
	Cached   bool
}

// Options configures a Source.
type Options struct {
	Method int // -1 lets the API choose
	School int // -1 lets the API choose
	// Location is used when the API's timezone is missing or unknown.
	Location *time.Location
	Store    cache.Store // nil disables caching
	Recorder metrics.Recorder
}

// Source implements the time source the engine consumes.
type Source struct {
	fetcher  Fetcher
	opts     Options
	recorder metrics.Recorder
	logger   zerolog.Logger
}

// New creates a Source.
func New(f Fetcher, opts Options) *Source {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Source{
		fetcher:  f,
		opts:     opts,
		recorder: rec,
		logger:   logging.GetLogger("timesource"),
	}
}

// FetchDay returns the schedule for place on date's calendar day. Errors
// from the API (*api.NetworkError, api.ErrNotFound) are returned as is.
func (s *Source) FetchDay(ctx context.Context, place Place, date time.Time) (*Day, error) {
	date = date.In(s.opts.Location)
	key := cache.Key{
		Date:    date,
		Lat:     place.Coordinate.Lat,
		Lon:     place.Coordinate.Lon,
		City:    place.City,
		Country: place.Country,
		Method:  s.opts.Method,
		School:  s.opts.School,
	}

	if s.opts.Store != nil {
		if entry := s.opts.Store.LoadTimings(ctx, key); entry != nil {
			day, err := s.normalize(&entry.Day, date)
			if err == nil {
				s.recorder.IncFetch(metrics.FetchCacheHit)
				day.Cached = true
				return day, nil
			}
			s.logger.Warn().Err(err).Str("date", key.DateString()).Msg("Discarding unusable cache entry")
		}
	}

	raw, err := s.fetcher.FetchDay(ctx, api.Query{
		Date:    date,
		Lat:     place.Coordinate.Lat,
		Lon:     place.Coordinate.Lon,
		City:    place.City,
		Country: place.Country,
		Method:  s.opts.Method,
		School:  s.opts.School,
	})
	if err != nil {
		s.recorder.IncFetch(metrics.FetchError)
		return nil, err
	}

	day, err := s.normalize(raw, date)
	if err != nil {
		s.recorder.IncFetch(metrics.FetchError)
		return nil, err
	}
	s.recorder.IncFetch(metrics.FetchRemote)

	if s.opts.Store != nil {
		if err := s.opts.Store.SaveTimings(ctx, key, raw); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to write timings cache")
		}
	}
	return day, nil
}

func (s *Source) normalize(raw *api.Day, date time.Time) (*Day, error) {
	loc := s.location(raw.Meta.Timezone)
	// Keep the requested calendar day even when the API zone differs.
	day := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, loc)
	sched, err := prayer.ParseTimings(raw.Timings, day, loc)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", date.Format("2006-01-02"), err)
	}
	return &Day{
		Schedule: sched,
		Hijri:    raw.Date.Hijri,
		Timezone: loc.String(),
		Method:   raw.Meta.Method,
	}, nil
}

func (s *Source) location(tz string) *time.Location {
	if tz == "" {
		return s.opts.Location
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.logger.Debug().Str("timezone", tz).Msg("Unknown timezone from API, using configured location")
		return s.opts.Location
	}
	return loc
}
