// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package delaytest is meant to be used to test drivers using a
// delay.Sleeper without waiting for real time to pass.
package delaytest

import (
	"sync"
	"time"
)

// Clock is a virtual monotonic clock. Sleep advances it instantly.
//
// Simulated peripherals read Now() to decide the level of a line, so they
// observe the exact timing the driver asked for.
//
// The zero value is ready to use.
type Clock struct {
	mu     sync.Mutex
	now    time.Duration
	sleeps []time.Duration
	// DontRecord disables the recording of individual sleeps. Elapsed time is
	// still tracked.
	DontRecord bool
}

// Sleep implements delay.Sleeper.
func (c *Clock) Sleep(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	if !c.DontRecord {
		c.sleeps = append(c.sleeps, d)
	}
}

// Now returns the virtual time elapsed since the clock was created or reset.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Elapsed is an alias of Now.
func (c *Clock) Elapsed() time.Duration {
	return c.Now()
}

// Sleeps returns a copy of the recorded sleeps.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// Reset forgets the recorded sleeps and rewinds the clock to zero.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = 0
	c.sleeps = nil
}

func (c *Clock) String() string {
	return "delaytest.Clock(" + c.Now().String() + ")"
}
