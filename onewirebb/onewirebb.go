// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package onewirebb implements a 1-wire bus master by bit-banging a single
// GPIO line.
//
// The master drives the line low and releases it to a pull-up resistor. Every
// bit is a time slot whose meaning is carried by how long the line is held
// low, so all the timings below are the datasheet minimums and maximums of
// the devices on the bus and must be honoured by the delay.Sleeper in use.
//
// Only a single device per bus is supported: there is no search-ROM.
//
// # Datasheet
//
// https://www.analog.com/media/en/technical-documentation/data-sheets/DS18S20.pdf
package onewirebb

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/onewire"

	"github.com/GermanBionicSystems/weatherstation/delay"
)

// Protocol timings.
const (
	ResetLow       = 500 * time.Microsecond // reset pulse
	ResetHigh      = 500 * time.Microsecond // release after reset, covers the presence pulse
	PresenceWait   = 30 * time.Microsecond  // release to presence sampling
	PresenceSettle = 400 * time.Microsecond // quiet time after presence sampling
	SlotLong       = 60 * time.Microsecond  // write 0 low time, write 1 high time
	SlotShort      = 5 * time.Microsecond   // write 1 low time, write 0 high time
	ReadLow        = 1 * time.Microsecond   // read slot low time
	ReadWait       = 10 * time.Microsecond  // read slot release to sampling
	ReadRecovery   = 40 * time.Microsecond  // rest of the read slot after sampling
)

// Opts contains options to pass to the constructor.
type Opts struct {
	ResetLow       time.Duration
	ResetHigh      time.Duration
	PresenceWait   time.Duration
	PresenceSettle time.Duration
	SlotLong       time.Duration
	SlotShort      time.Duration
	ReadLow        time.Duration
	ReadWait       time.Duration
	ReadRecovery   time.Duration

	// PollInterval is the delay between two samples of the line in
	// WaitRelease.
	PollInterval time.Duration
	// ReleaseTimeout bounds WaitRelease. 0 waits forever.
	ReleaseTimeout time.Duration

	// Sleeper times the slots. Defaults to delay.Default.
	Sleeper delay.Sleeper
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	ResetLow:       ResetLow,
	ResetHigh:      ResetHigh,
	PresenceWait:   PresenceWait,
	PresenceSettle: PresenceSettle,
	SlotLong:       SlotLong,
	SlotShort:      SlotShort,
	ReadLow:        ReadLow,
	ReadWait:       ReadWait,
	ReadRecovery:   ReadRecovery,
	PollInterval:   10 * time.Microsecond,
	ReleaseTimeout: time.Second,
}

// New returns a 1-wire bus master that bit-bangs p.
//
// p must be wired to the data line with a pull-up resistor. The line is
// released before New returns.
func New(p gpio.PinIO, opts *Opts) (*Bus, error) {
	if p == nil {
		return nil, errors.New("onewirebb: no pin")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	for _, d := range []time.Duration{o.ResetLow, o.SlotLong, o.SlotShort, o.ReadLow, o.ReadWait, o.PollInterval} {
		if d <= 0 {
			return nil, errors.New("onewirebb: invalid timing options")
		}
	}
	if o.ReleaseTimeout < 0 {
		return nil, errors.New("onewirebb: invalid ReleaseTimeout")
	}
	if o.Sleeper == nil {
		o.Sleeper = delay.Default
	}
	b := &Bus{pin: p, opts: o}
	b.release()
	if b.err != nil {
		return nil, b.err
	}
	return b, nil
}

// Bus is a bit-banged 1-wire bus master. It implements onewire.Bus.
//
// Every operation holds the bus for its whole duration: an interrupted time
// slot corrupts the framing for the device.
//
// Bus implements a persistent error model: once the GPIO pin returns an error
// all subsequent calls return it. A fresh Bus must be created to proceed.
// Errors on the 1-wire side implement onewire.BusError and are not
// persistent.
type Bus struct {
	mu   sync.Mutex
	pin  gpio.PinIO
	opts Opts
	err  error // persistent error
}

func (b *Bus) String() string {
	return fmt.Sprintf("onewirebb{%s}", b.pin)
}

// Halt implements conn.Resource.
//
// It releases the line.
func (b *Bus) Halt() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.release()
	return b.err
}

// Presence issues a reset pulse and reports whether a device answered with a
// presence pulse.
//
// A disconnected bus reads high and is reported as no device, not as an
// error. Presence always leaves PresenceSettle of quiet time on the bus
// before returning.
func (b *Bus) Presence() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pulse(b.opts.ResetLow, b.opts.PresenceWait)
	present := b.pin.Read() == gpio.Low
	b.sleep(b.opts.PresenceSettle)
	if b.err != nil {
		return false, b.err
	}
	return present, nil
}

// Reset issues a reset pulse without sampling for the presence pulse.
func (b *Bus) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
	return b.err
}

// Tx performs a bus transaction: a reset, the bytes in w, then len(r) bytes
// read into r.
//
// A bit-banged line can't provide a strong pull-up; power is accepted so Bus
// satisfies onewire.Bus, and the line is left released on the weak pull-up.
func (b *Bus) Tx(w, r []byte, power onewire.Pullup) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
	for _, c := range w {
		b.writeByte(c)
	}
	for i := range r {
		r[i] = b.readByte()
	}
	return b.err
}

// Search is not supported: a bit-banged bus carries a single device that is
// addressed with skip-ROM.
func (b *Bus) Search(alarmOnly bool) ([]onewire.Address, error) {
	return nil, busError("onewirebb: search is not supported")
}

// WriteBit writes the lowest bit of bit in a write time slot.
func (b *Bus) WriteBit(bit byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeBit(bit)
	return b.err
}

// WriteByte writes c, least significant bit first.
func (b *Bus) WriteByte(c byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeByte(c)
	return b.err
}

// ReadBit reads one bit in a read time slot: 1 if the line is high at the
// sampling point, 0 if a device holds it low.
func (b *Bus) ReadBit() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.readBit()
	return v, b.err
}

// ReadByte reads a byte, least significant bit first.
func (b *Bus) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.readByte()
	return v, b.err
}

// WaitRelease waits for after, then polls the line until a device stops
// holding it low, e.g. at the end of a temperature conversion.
//
// If the line is still low once ReleaseTimeout has been waited, a
// *TimeoutError is returned. With a ReleaseTimeout of 0 WaitRelease blocks
// until the line goes high.
func (b *Bus) WaitRelease(after time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sleep(after)
	var waited time.Duration
	for b.err == nil && b.pin.Read() == gpio.Low {
		if b.opts.ReleaseTimeout > 0 && waited >= b.opts.ReleaseTimeout {
			return &TimeoutError{Waited: waited}
		}
		b.sleep(b.opts.PollInterval)
		waited += b.opts.PollInterval
	}
	return b.err
}

//

func (b *Bus) reset() {
	b.pulse(b.opts.ResetLow, b.opts.ResetHigh)
}

func (b *Bus) writeBit(bit byte) {
	if bit&1 == 0 {
		b.pulse(b.opts.SlotLong, b.opts.SlotShort)
	} else {
		b.pulse(b.opts.SlotShort, b.opts.SlotLong)
	}
}

func (b *Bus) writeByte(c byte) {
	for i := range 8 {
		b.writeBit(c >> i & 1)
	}
}

func (b *Bus) readBit() byte {
	b.pulse(b.opts.ReadLow, b.opts.ReadWait)
	var v byte
	if b.pin.Read() == gpio.High {
		v = 1
	}
	b.sleep(b.opts.ReadRecovery)
	return v
}

func (b *Bus) readByte() byte {
	var c byte
	for i := range 8 {
		c |= b.readBit() << i
	}
	return c
}

// pulse drives the line low for low, then releases it for high. It creates
// reset pulses, write slots and the start of read slots.
func (b *Bus) pulse(low, high time.Duration) {
	if b.err != nil {
		return
	}
	if err := b.pin.Out(gpio.Low); err != nil {
		b.err = fmt.Errorf("onewirebb: %w", err)
		return
	}
	b.sleep(low)
	b.release()
	b.sleep(high)
}

// release lets the pull-up (or a device) set the level of the line.
func (b *Bus) release() {
	if b.err != nil {
		return
	}
	if err := b.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		b.err = fmt.Errorf("onewirebb: %w", err)
	}
}

func (b *Bus) sleep(d time.Duration) {
	if b.err == nil && d > 0 {
		b.opts.Sleeper.Sleep(d)
	}
}

var _ conn.Resource = &Bus{}
var _ onewire.Bus = &Bus{}
