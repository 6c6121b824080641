// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package delay

import (
	"time"

	"golang.org/x/sys/unix"
)

// monotonic returns CLOCK_MONOTONIC_RAW in nanoseconds. It is not slewed by
// NTP, so a busy-wait never stretches or shrinks while the clock is adjusted.
//
// The time source is selected once: when the raw clock is not available the
// runtime monotonic clock is used for the life of the process.
func monotonic() int64 {
	if !rawClock {
		return int64(time.Since(epoch))
	}
	var ts unix.Timespec
	_ = unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts)
	return ts.Nano()
}

var epoch = time.Now()

var rawClock = func() bool {
	var ts unix.Timespec
	return unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts) == nil
}()
