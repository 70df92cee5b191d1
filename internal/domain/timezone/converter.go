// internal/domain/timezone/converter.go
package timezone

import (
	"fmt"
	"time"
)

// ErrInvalidTime is returned for any date or clock value that does not parse
// as a valid calendar/time value. Callers must reject the input; nothing is
// ever clamped to the nearest valid value.
var ErrInvalidTime = fmt.Errorf("invalid date or time value")

// DefaultOffsetMinutes is the deployment's civil time zone offset from UTC
// (Asia/Kolkata, UTC+5:30). The zone has no DST rules, so a constant offset
// is sufficient.
const DefaultOffsetMinutes = 330

// Converter translates between the deployment's fixed civil time zone and
// absolute instants. All "HH:MM" strings in the system are interpreted
// through a single Converter instance.
type Converter struct {
	loc *time.Location
}

func NewConverter(offsetMinutes int) *Converter {
	name := fmt.Sprintf("UTC%+03d:%02d", offsetMinutes/60, abs(offsetMinutes%60))
	return &Converter{loc: time.FixedZone(name, offsetMinutes*60)}
}

// Location returns the fixed zone used by this converter.
func (c *Converter) Location() *time.Location {
	return c.loc
}

// ParseClock parses a 24-hour "HH:MM" string into hour and minute components.
func (c *Converter) ParseClock(clock string) (hour, minute int, err error) {
	t, perr := time.Parse("15:04", clock)
	if perr != nil {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrInvalidTime, clock)
	}
	return t.Hour(), t.Minute(), nil
}

// ToAbsolute interprets a calendar date plus an "HH:MM" clock string as a
// wall-clock time in the fixed zone and returns the corresponding instant.
func (c *Converter) ToAbsolute(year int, month time.Month, day int, clock string) (time.Time, error) {
	hour, minute, err := c.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	t := time.Date(year, month, day, hour, minute, 0, 0, c.loc)
	// time.Date normalizes out-of-range components (e.g. Feb 30 -> Mar 2).
	// Normalization means the input was not a real calendar date.
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: date %04d-%02d-%02d", ErrInvalidTime, year, month, day)
	}
	return t, nil
}

// ToLocal returns the instant expressed as wall-clock time in the fixed zone.
func (c *Converter) ToLocal(t time.Time) time.Time {
	return t.In(c.loc)
}

// ParseDate parses a "YYYY-MM-DD" calendar date in the fixed zone.
func (c *Converter) ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", date, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidTime, date)
	}
	return t, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
