package clock

import "time"

// Clock supplies the current time. Every time-dependent rule reads it through this interface.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
