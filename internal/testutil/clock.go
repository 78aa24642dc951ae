package testutil

import (
	"sync"
	"time"
)

// FakeClock is a settable wall clock for tests.
//
// It satisfies engine.Clock. Time only moves when the test moves it, so the
// same scenario always sees the same instants.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock reading start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// NewFakeClockMs creates a clock reading the given Unix milliseconds.
func NewFakeClockMs(ms int64) *FakeClock {
	return NewFakeClock(time.UnixMilli(ms).UTC())
}

// Now returns the current reading.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowMs returns the current reading as Unix milliseconds.
func (c *FakeClock) NowMs() int64 {
	return c.Now().UnixMilli()
}

// Set moves the clock to t. Going backwards is allowed.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new reading.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
