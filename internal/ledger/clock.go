package ledger

import (
	"sync"
	"time"
)

// Clock provides the host time reading for the mechanism.
// Implementations must be monotonically non-decreasing.
type Clock interface {
	Now() uint64
}

// WallClock reads the system clock in unix seconds.
type WallClock struct{}

func (WallClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock is a deterministic clock for tests and simulations.
// It only ever moves forward; attempts to set an earlier time are ignored.
type ManualClock struct {
	mu sync.Mutex
	t  uint64
}

func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{t: start}
}

func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d units.
func (c *ManualClock) Advance(d uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t += d
}

// Set moves the clock to t. Earlier times are ignored.
func (c *ManualClock) Set(t uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.t {
		c.t = t
	}
}
