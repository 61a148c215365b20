package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic zapcore.Clock for tests.
//
// Now returns start on the first call and advances by step on every
// subsequent call, so consecutive audit lines get distinct, predictable
// timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewStepClock creates a clock starting at start. A zero step freezes time.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{next: start, step: step}
}

// Now returns the current time and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// NewTicker returns a real ticker; zap only uses it for sampling.
func (c *StepClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// Reset rewinds the clock to start.
func (c *StepClock) Reset(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = start
}
