// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onewirebb

import (
	"fmt"
	"time"
)

// TimeoutError is returned by WaitRelease when the device keeps the line low
// for longer than Opts.ReleaseTimeout.
//
// It implements onewire.BusError.
type TimeoutError struct {
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("onewirebb: line still held low after %s", e.Waited)
}

// BusError implements onewire.BusError.
func (e *TimeoutError) BusError() bool { return true }

// Timeout reports that the error is a timeout.
func (e *TimeoutError) Timeout() bool { return true }

// busError implements error and onewire.BusError.
type busError string

func (e busError) Error() string  { return string(e) }
func (e busError) BusError() bool { return true }
