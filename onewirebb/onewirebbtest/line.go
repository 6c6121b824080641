// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package onewirebbtest is meant to be used to test drivers over a simulated
// bit-banged 1-wire line.
//
// A Line is a gpio.PinIO that models the open-drain data line: the master
// drives it low or releases it, an attached Device answers in the time slots,
// and the pull-up makes everything else read high. Time comes from a shared
// delaytest.Clock, so no real time passes.
package onewirebbtest

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/GermanBionicSystems/weatherstation/delay/delaytest"
)

// Device timings as seen from the line.
const (
	// ResetMin is the shortest low pulse a device takes as a reset.
	ResetMin = 480 * time.Microsecond
	// WriteZeroMin is the shortest low pulse a device samples as a 0 bit.
	WriteZeroMin = 15 * time.Microsecond
	// PresenceDelay is the time between the end of a reset and the start of
	// the presence pulse.
	PresenceDelay = 15 * time.Microsecond
	// PresenceLength is how long the presence pulse lasts.
	PresenceLength = 120 * time.Microsecond
	// ReadHold is how long a device holds the line low from the start of a
	// read slot to transmit a 0.
	ReadHold = 30 * time.Microsecond
)

// Device is a simulated 1-wire slave attached to a Line.
type Device interface {
	// Reset is called at the end of a reset pulse and reports whether the
	// device answers with a presence pulse.
	Reset() bool
	// Transmitting reports whether the next time slot is a read slot.
	Transmitting() bool
	// WriteBit is called at the end of a write slot with the bit sampled.
	WriteBit(now time.Duration, bit byte)
	// ReadBit returns the bit to transmit in the current read slot.
	ReadBit() byte
	// Busy reports whether the device holds the line low on its own.
	Busy(now time.Duration) bool
}

// Line is a simulated 1-wire data line. It implements gpio.PinIO.
//
// Out(gpio.Low) drives the line, In() or Out(gpio.High) releases it.
type Line struct {
	*gpiotest.Pin
	Clock  *delaytest.Clock
	Device Device // nil when nothing is connected

	mu            sync.Mutex
	driven        bool
	fell          time.Duration // start of the current master low pulse
	holdUntil     time.Duration // device transmits a 0 until then
	presenceFrom  time.Duration
	presenceUntil time.Duration
	pulses        []time.Duration
	resets        int
}

// NewLine returns a Line named "OW" timed by c with d attached.
func NewLine(c *delaytest.Clock, d Device) *Line {
	return &Line{Pin: &gpiotest.Pin{N: "OW", Num: 4}, Clock: c, Device: d}
}

// Out implements gpio.PinOut.
func (l *Line) Out(level gpio.Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level == gpio.High {
		l.release()
		return nil
	}
	if !l.driven {
		l.driven = true
		l.fell = l.Clock.Now()
	}
	return nil
}

// In implements gpio.PinIn. It releases the line.
func (l *Line) In(pull gpio.Pull, edge gpio.Edge) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.release()
	return nil
}

// Read implements gpio.PinIn.
func (l *Line) Read() gpio.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.Clock.Now()
	switch {
	case l.driven:
		return gpio.Low
	case now < l.holdUntil:
		return gpio.Low
	case now >= l.presenceFrom && now < l.presenceUntil:
		return gpio.Low
	case l.Device != nil && l.Device.Busy(now):
		return gpio.Low
	}
	return gpio.High
}

// Pulses returns the length of every low pulse the master drove, resets
// included.
func (l *Line) Pulses() []time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]time.Duration(nil), l.pulses...)
}

// Resets returns the number of reset pulses seen.
func (l *Line) Resets() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resets
}

// ClearPulses forgets the recorded pulses.
func (l *Line) ClearPulses() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pulses = nil
}

func (l *Line) release() {
	if !l.driven {
		return
	}
	l.driven = false
	now := l.Clock.Now()
	low := now - l.fell
	l.pulses = append(l.pulses, low)
	if low >= ResetMin {
		l.resets++
		l.holdUntil = 0
		l.presenceFrom, l.presenceUntil = 0, 0
		if l.Device != nil && l.Device.Reset() {
			l.presenceFrom = now + PresenceDelay
			l.presenceUntil = l.presenceFrom + PresenceLength
		}
		return
	}
	if l.Device == nil {
		return
	}
	if l.Device.Transmitting() {
		if l.Device.ReadBit()&1 == 0 {
			l.holdUntil = l.fell + ReadHold
		}
		return
	}
	var bit byte = 1
	if low >= WriteZeroMin {
		bit = 0
	}
	l.Device.WriteBit(now, bit)
}

var _ gpio.PinIO = &Line{}
