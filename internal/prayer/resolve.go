package prayer

import (
	"slices"
	"time"
)

// NextEvent is the soonest prayer that has not started yet.
type NextEvent struct {
	Name      Name
	At        time.Time
	Remaining time.Duration // whole seconds, never negative
	// Rollover is set when every prayer of the schedule's day has passed
	// and At is the first prayer shifted to the following day.
	Rollover bool
}

// RemainingSeconds returns Remaining as an integer second count.
func (e NextEvent) RemainingSeconds() int64 {
	return int64(e.Remaining / time.Second)
}

// Resolve returns the first entry strictly after now. Once the last prayer
// has passed it returns the first prayer advanced by one calendar day.
//
// The rolled-over instant reuses today's clock time; tomorrow's real Fajr
// can differ by a minute or two until the next day's schedule is loaded.
func Resolve(s *DaySchedule, now time.Time) (NextEvent, error) {
	return ResolveAmong(s, now, nil)
}

// ResolveAmong is Resolve restricted to the prayers in only. A nil or empty
// filter considers every prayer.
func ResolveAmong(s *DaySchedule, now time.Time, only []Name) (NextEvent, error) {
	if s.Len() == 0 {
		return NextEvent{}, ErrEmptySchedule
	}

	var first *Prayer
	for i, p := range s.entries {
		if len(only) > 0 && !slices.Contains(only, p.Name) {
			continue
		}
		if first == nil {
			first = &s.entries[i]
		}
		if p.Time.After(now) {
			return newEvent(p.Name, p.Time, now, false), nil
		}
	}
	if first == nil {
		return NextEvent{}, ErrEmptySchedule
	}
	return newEvent(first.Name, first.Time.AddDate(0, 0, 1), now, true), nil
}

// Current returns the prayer whose time most recently began, or false
// before the first prayer of the day.
func Current(s *DaySchedule, now time.Time) (Prayer, bool) {
	var cur Prayer
	found := false
	if s.Len() == 0 {
		return cur, false
	}
	for _, p := range s.entries {
		if p.Time.After(now) {
			break
		}
		cur, found = p, true
	}
	return cur, found
}

func newEvent(name Name, at, now time.Time, rollover bool) NextEvent {
	d := at.Sub(now).Truncate(time.Second)
	if d < 0 {
		d = 0
	}
	return NextEvent{Name: name, At: at, Remaining: d, Rollover: rollover}
}
