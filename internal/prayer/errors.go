package prayer

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySchedule is returned when resolving against a schedule with no entries.
	ErrEmptySchedule = errors.New("empty prayer schedule")

	// ErrIncompleteSchedule is returned when one of the six prayers is missing.
	ErrIncompleteSchedule = errors.New("incomplete prayer schedule")

	// ErrDuplicateTime is returned when two prayers share the same clock time.
	ErrDuplicateTime = errors.New("duplicate prayer time")
)

// MalformedTimeError reports a time-of-day value that is not "HH:MM".
type MalformedTimeError struct {
	Name Name
	Raw  string
	Err  error
}

func (e *MalformedTimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed time for %s (%q): %v", e.Name, e.Raw, e.Err)
	}
	return fmt.Sprintf("malformed time for %s (%q)", e.Name, e.Raw)
}

func (e *MalformedTimeError) Unwrap() error { return e.Err }
