package usecase

import (
	"sync"
	"time"
)

// Clock yields creation timestamps
type Clock interface {
	Now() time.Time
}

// MonotonicClock hands out strictly increasing millisecond timestamps.
// Mongo stores dates at millisecond precision, so two saves in the same
// millisecond would otherwise tie.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewMonotonicClock creates a clock backed by time.Now
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{now: time.Now}
}

// Now returns a UTC millisecond timestamp later than every previous result
func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}

// Observe raises the clock floor, e.g. to the newest stored snapshot at startup
func (c *MonotonicClock) Observe(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.last) {
		c.last = t.UTC().Truncate(time.Millisecond)
	}
}
