// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"sync"
	"time"
)

// FakeClock is a clock whose time only moves when Advance or Set is called.
// It satisfies the Now/Since clock interface used by the mods package.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock creates a FakeClock at initial, or at a fixed reference time
// when initial is zero.
func NewFakeClock(initial time.Time) *FakeClock {
	if initial.IsZero() {
		initial = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &FakeClock{current: initial}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Since returns the fake time elapsed since t.
func (c *FakeClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Sub(t)
}

// Advance moves the fake time forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set sets the fake time to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
