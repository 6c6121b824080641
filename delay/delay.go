// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package delay implements the blocking delays used by the bit-banged drivers.
//
// The one-wire and LCD protocols encode information in the length of the
// pulses on their lines, down to a single microsecond. The scheduler sleep of
// time.Sleep is far too coarse for that, so short delays busy-wait on the
// calling goroutine. This is a hard real-time requirement: a delay that
// returns early corrupts the time slot it is part of.
//
// Drivers take a Sleeper so host-side tests can substitute the virtual clock
// of package delaytest.
package delay

import (
	"sync/atomic"
	"time"
)

// Sleeper blocks the caller for approximately d.
type Sleeper interface {
	Sleep(d time.Duration)
}

// CoarseThreshold is the duration from which Spin yields to the scheduler
// instead of busy-waiting. Power-on and clear-display waits are in this range.
const CoarseThreshold = time.Millisecond

// Default is the Sleeper used by drivers when none is provided.
var Default Sleeper = Spin{}

// Spin busy-waits on the platform monotonic timer.
//
// Delays of CoarseThreshold or more use time.Sleep.
type Spin struct{}

// Sleep implements Sleeper.
func (Spin) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if d >= CoarseThreshold {
		time.Sleep(d)
		return
	}
	end := monotonic() + int64(d)
	for monotonic() < end {
	}
}

// Loop is a calibrated counter loop: PerMicrosecond iterations make one
// microsecond.
//
// It is useful on targets where reading the timer is slow relative to the
// delay wanted. The iteration count is empirical and must be tuned to the CPU
// clock, see Calibrate.
type Loop struct {
	PerMicrosecond int
}

// DefaultLoop is the iteration count measured on a 48MHz Cortex-M0.
var DefaultLoop = Loop{PerMicrosecond: 3}

// Sleep implements Sleeper.
func (l Loop) Sleep(d time.Duration) {
	spin(int64(l.PerMicrosecond) * int64(d/time.Microsecond))
}

// Calibrate measures how many Loop iterations run in sample and returns a
// Loop tuned to the current host.
func Calibrate(sample time.Duration) Loop {
	if sample < time.Millisecond {
		sample = time.Millisecond
	}
	const probe = 1 << 16
	var iterations int64
	start := monotonic()
	elapsed := int64(0)
	for elapsed < int64(sample) {
		spin(probe)
		iterations += probe
		elapsed = monotonic() - start
	}
	per := int(iterations * int64(time.Microsecond) / elapsed)
	if per < 1 {
		per = 1
	}
	return Loop{PerMicrosecond: per}
}

// Microseconds is a shorthand for Sleep(n µs).
func Microseconds(s Sleeper, n int) {
	s.Sleep(time.Duration(n) * time.Microsecond)
}

// Milliseconds is a shorthand for Sleep(n ms).
func Milliseconds(s Sleeper, n int) {
	s.Sleep(time.Duration(n) * time.Millisecond)
}

// spin counts n down on a counter owned by the call. The accesses are atomic
// so the loop is not optimized away.
func spin(n int64) {
	var counter atomic.Int64
	for counter.Store(n); counter.Add(-1) >= 0; {
	}
}

var _ Sleeper = Spin{}
var _ Sleeper = Loop{}
