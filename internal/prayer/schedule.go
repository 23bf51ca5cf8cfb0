package prayer

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smokyabdulrahman/uyan/internal/api"
)

// Prayer is a single prayer with its absolute start instant.
type Prayer struct {
	Name Name
	Time time.Time
}

// DaySchedule holds the six prayers of one calendar day, sorted ascending.
// It is never mutated after construction; callers replace it wholesale.
type DaySchedule struct {
	date    time.Time
	entries []Prayer
}

// Normalize builds a DaySchedule from raw "HH:MM[:SS][ extra]" strings.
// Only the HH:MM prefix is used; it is combined with date's year, month
// and day in loc.
func Normalize(raw map[Name]string, date time.Time, loc *time.Location) (*DaySchedule, error) {
	if loc == nil {
		loc = time.Local
	}
	date = date.In(loc)

	entries := make([]Prayer, 0, len(Names))
	for _, name := range Names {
		s, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrIncompleteSchedule, name)
		}
		t, err := parseTimeStr(s, date, loc)
		if err != nil {
			return nil, &MalformedTimeError{Name: name, Raw: s, Err: err}
		}
		entries = append(entries, Prayer{Name: name, Time: t})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	for i := 1; i < len(entries); i++ {
		if entries[i].Time.Equal(entries[i-1].Time) {
			return nil, fmt.Errorf("%w: %s and %s at %s", ErrDuplicateTime,
				entries[i-1].Name, entries[i].Name, entries[i].Time.Format("15:04"))
		}
	}

	return &DaySchedule{
		date:    time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc),
		entries: entries,
	}, nil
}

// ParseTimings converts Al Adhan timings into a DaySchedule for date.
func ParseTimings(timings api.Timings, date time.Time, loc *time.Location) (*DaySchedule, error) {
	return Normalize(map[Name]string{
		Fajr:    timings.Fajr,
		Sunrise: timings.Sunrise,
		Dhuhr:   timings.Dhuhr,
		Asr:     timings.Asr,
		Maghrib: timings.Maghrib,
		Isha:    timings.Isha,
	}, date, loc)
}

// Date returns local midnight of the schedule's day.
func (s *DaySchedule) Date() time.Time { return s.date }

// Location returns the zone the instants were built in.
func (s *DaySchedule) Location() *time.Location { return s.date.Location() }

// Len returns the number of entries.
func (s *DaySchedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns a copy of the ordered entries.
func (s *DaySchedule) Entries() []Prayer {
	out := make([]Prayer, len(s.entries))
	copy(out, s.entries)
	return out
}

// First returns the earliest prayer of the day.
func (s *DaySchedule) First() Prayer { return s.entries[0] }

// Get returns the entry for name.
func (s *DaySchedule) Get(name Name) (Prayer, bool) {
	for _, p := range s.entries {
		if p.Name == name {
			return p, true
		}
	}
	return Prayer{}, false
}

// SameDay reports whether t falls on the schedule's calendar day.
func (s *DaySchedule) SameDay(t time.Time) bool {
	t = t.In(s.date.Location())
	y, m, d := t.Date()
	return y == s.date.Year() && m == s.date.Month() && d == s.date.Day()
}

// Summary renders the day as "İmsak 05:00 · Güneş 06:30 · ...".
func (s *DaySchedule) Summary(labels Labels, layout string) string {
	parts := make([]string, 0, len(s.entries))
	for _, p := range s.entries {
		parts = append(parts, labels.Label(p.Name)+" "+p.Time.Format(layout))
	}
	return strings.Join(parts, " · ")
}

var errTimeFormat = errors.New("expected HH:MM")

// parseTimeStr parses "15:02", "15:02:30" or "15:02 (+03)" on date in loc.
func parseTimeStr(raw string, date time.Time, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " "); idx != -1 {
		s = s[:idx]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return time.Time{}, errTimeFormat
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour %q", parts[0])
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || min < 0 || min > 59 {
		return time.Time{}, fmt.Errorf("invalid minute %q", parts[1])
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, loc), nil
}
