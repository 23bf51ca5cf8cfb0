package config

import (
	"time"
	_ "time/tzdata"
)

// loadLocation accepts an IANA name or "Local".
func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// Location returns the configured time zone, or time.Local when unset or
// invalid.
func (c *Config) Location() *time.Location {
	loc, err := loadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
