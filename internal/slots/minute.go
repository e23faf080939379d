// Package slots holds the time-window rules for table reservations.  It is
// pure logic: callers load existing claims and ask whether a candidate time
// is bookable, which canonical slots are free, or which nearby times could
// serve a party instead.
//
// All times live on a service-day axis measured in minutes from the
// midnight that starts the service date.  Wall times before 03:00 belong to
// the previous evening and are shifted past 24:00, so 01:00 is minute 1500
// and the 19:00–02:30 service window is one continuous range.
package slots

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Minute is a position on the service-day axis.
type Minute int

const (
	// Open is the first bookable minute (19:00).
	Open Minute = 19 * 60
	// Close is the last bookable minute (02:30 the next morning).
	Close Minute = 26*60 + 30
	// Cadence separates the canonical slots offered to clients.
	Cadence = 45
	// BlockWindow is the half-width of the interval an existing claim blocks.
	BlockWindow = 45

	day             = 24 * 60
	lateNightCutoff = 3 * 60
)

// DateLayout is the wire format of service dates.
const DateLayout = "2006-01-02"

// ErrBadTime is returned for malformed HH:MM strings.
var ErrBadTime = errors.New("time must be formatted as HH:MM")

// ErrBadDate is returned for malformed service dates.
var ErrBadDate = errors.New("date must be formatted as YYYY-MM-DD")

// Parse converts an HH:MM wall time into a service-day minute.
func Parse(s string) (Minute, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, ErrBadTime
	}
	return FromWall(t.Hour(), t.Minute()), nil
}

// FromWall maps a wall-clock hour and minute onto the service-day axis.
func FromWall(hour, minute int) Minute {
	v := hour*60 + minute
	if v < lateNightCutoff {
		v += day
	}
	return Minute(v)
}

// String renders the minute as an HH:MM wall time.
func (m Minute) String() string {
	v := int(m) % day
	if v < 0 {
		v += day
	}
	return fmt.Sprintf("%02d:%02d", v/60, v%60)
}

// InService reports whether m falls inside operating hours (inclusive).
func (m Minute) InService() bool {
	return m >= Open && m <= Close
}

// LateNight reports whether m is an early-morning continuation (past 24:00).
func (m Minute) LateNight() bool {
	return m >= day
}

// Canonical returns the fixed slot list offered to clients:
// 19:00, 19:45, ... 02:30.
func Canonical() []Minute {
	out := make([]Minute, 0, int(Close-Open)/Cadence+1)
	for m := Open; m <= Close; m += Cadence {
		out = append(out, m)
	}
	return out
}

// ParseDate validates a service date.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, ErrBadDate
	}
	return d, nil
}

// ServiceDay returns the service date and axis minute of a wall-clock
// instant.  01:10 on March 2 belongs to the service day of March 1 and sits
// at minute 25:10.
func ServiceDay(t time.Time) (string, Minute) {
	wall := t.Hour()*60 + t.Minute()
	d := t
	if wall < lateNightCutoff {
		d = t.AddDate(0, 0, -1)
		wall += day
	}
	return d.Format(DateLayout), Minute(wall)
}

// Instant converts a service date and axis minute back into a wall-clock
// instant in loc.
func Instant(date string, m Minute, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, int(m), 0, 0, d.Location()), nil
}

// DayStart returns the wall-clock instant at which the service day of date
// begins (03:00 local).
func DayStart(date string, loc *time.Location) (time.Time, error) {
	return Instant(date, lateNightCutoff, loc)
}
