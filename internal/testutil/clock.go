package testutil

import (
	"sync"
	"time"
)

// ManualClock is a thread-safe wall clock that only moves when told to.
//
// Implements ledger.Clock. Tests use it to place transitions before or
// after a poll's end time without sleeping.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock reading unix seconds.
func NewManualClock(unix int64) *ManualClock {
	return &ManualClock{now: time.Unix(unix, 0).UTC()}
}

// Now returns the current reading.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Unix returns the current reading in Unix seconds.
func (c *ManualClock) Unix() int64 {
	return c.Now().Unix()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to unix seconds. Moving backwards is allowed.
func (c *ManualClock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(unix, 0).UTC()
}
