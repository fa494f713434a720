// Package timezone converts wall-clock instants into the show's local civil
// time. Every window comparison in the voting state machine goes through
// this conversion exactly once per request.
package timezone

import (
	"fmt"
	"time"
)

type Clock struct {
	loc *time.Location
}

// NewClock loads the named IANA timezone (e.g. "America/Denver").
func NewClock(name string) (*Clock, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return &Clock{loc: loc}, nil
}

// Now returns the current instant in show-local time.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// ToLocal converts t into show-local time.
func (c *Clock) ToLocal(t time.Time) time.Time {
	return t.In(c.loc)
}

// TodayStart returns midnight of the local day containing now.
func (c *Clock) TodayStart(now time.Time) time.Time {
	local := now.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}

// TomorrowStart returns midnight of the local day after now.
func (c *Clock) TomorrowStart(now time.Time) time.Time {
	return c.TodayStart(now).AddDate(0, 0, 1)
}

// Location exposes the underlying location for storage round-trips.
func (c *Clock) Location() *time.Location {
	return c.loc
}
