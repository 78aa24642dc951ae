package engine

import "time"

// Clock reports wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// NowMs returns the clock reading as Unix milliseconds.
func NowMs(c Clock) int64 {
	return c.Now().UnixMilli()
}
