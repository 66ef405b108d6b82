// Package playback plays the selected track and reports how far into it
// playback is. The clock is authoritative; audio output is optional.
package playback

import (
	"sync"
	"time"
)

// Clock measures elapsed playback time across pauses.
type Clock struct {
	mu      sync.Mutex
	now     func() time.Time
	started time.Time
	offset  time.Duration
	running bool
}

// NewClock returns a stopped clock at zero.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Start resets the clock to at and runs it.
func (c *Clock) Start(at time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = at
	c.started = c.now()
	c.running = true
}

// Pause freezes the clock.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.offset += c.now().Sub(c.started)
	c.running = false
}

// Resume continues a paused clock.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.started = c.now()
	c.running = true
}

// Reset stops the clock at zero.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = 0
	c.running = false
}

// Elapsed returns the playback position.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return c.offset
	}
	return c.offset + c.now().Sub(c.started)
}
