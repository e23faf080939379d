package service

import "time"

// Clock supplies the current instant.  Every time-based rule reads it so
// tests can move through the 45-minute windows deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the restaurant's time zone.
type SystemClock struct {
	Loc *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Loc == nil {
		return time.Now()
	}
	return time.Now().In(c.Loc)
}
