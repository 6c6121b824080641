// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onewirebbtest

import (
	"sync"
	"time"

	"github.com/GermanBionicSystems/weatherstation/common"
)

// Loopback is a Device that transmits back every byte as soon as it has been
// written. The master has to read each byte before writing the next one.
type Loopback struct {
	mu      sync.Mutex
	in      byte
	nin     int
	out     byte
	nout    int
	Written []byte // all the bytes received
}

// Reset implements Device.
func (l *Loopback) Reset() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.in, l.nin, l.out, l.nout = 0, 0, 0, 0
	return true
}

// Transmitting implements Device.
func (l *Loopback) Transmitting() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nout > 0
}

// WriteBit implements Device.
func (l *Loopback) WriteBit(now time.Duration, bit byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.in |= (bit & 1) << l.nin
	if l.nin++; l.nin == 8 {
		l.Written = append(l.Written, l.in)
		l.out, l.nout = l.in, 8
		l.in, l.nin = 0, 0
	}
}

// ReadBit implements Device.
func (l *Loopback) ReadBit() byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.out & 1
	l.out >>= 1
	l.nout--
	return b
}

// Busy implements Device.
func (l *Loopback) Busy(time.Duration) bool { return false }

type state int

const (
	stateIdle state = iota
	stateROM
	stateFunction
	stateTransmit
)

// DS1820 simulates a DS1820/DS18S20 thermometer addressed with skip-ROM.
//
// Convert T holds the line low for ConversionTime, then releases it. Read
// Scratchpad transmits Scratchpad, LSB first.
type DS1820 struct {
	Scratchpad     [9]byte
	ConversionTime time.Duration
	// Absent makes the device ignore resets, like an unplugged sensor.
	Absent bool
	// Hang makes a conversion never complete.
	Hang bool

	mu           sync.Mutex
	state        state
	in           byte
	nin          int
	tx           []byte
	ntx          int
	convertUntil time.Duration
	converting   bool
	commands     []byte
}

// Reset implements Device.
func (d *DS1820) Reset() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Absent {
		d.state = stateIdle
		return false
	}
	d.state = stateROM
	d.in, d.nin = 0, 0
	d.tx, d.ntx = nil, 0
	return true
}

// Transmitting implements Device.
func (d *DS1820) Transmitting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == stateTransmit && d.ntx < 8*len(d.tx)
}

// WriteBit implements Device.
func (d *DS1820) WriteBit(now time.Duration, bit byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateROM && d.state != stateFunction {
		return
	}
	d.in |= (bit & 1) << d.nin
	if d.nin++; d.nin < 8 {
		return
	}
	cmd := d.in
	d.in, d.nin = 0, 0
	d.commands = append(d.commands, cmd)
	switch {
	case d.state == stateROM && cmd == 0xcc:
		d.state = stateFunction
	case d.state == stateFunction && cmd == 0x44:
		d.state = stateIdle
		d.converting = true
		d.convertUntil = now + d.ConversionTime
	case d.state == stateFunction && cmd == 0xbe:
		d.state = stateTransmit
		d.tx = append([]byte(nil), d.Scratchpad[:]...)
		d.ntx = 0
	default:
		d.state = stateIdle
	}
}

// ReadBit implements Device.
func (d *DS1820) ReadBit() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.tx[d.ntx/8] >> (d.ntx % 8) & 1
	d.ntx++
	return b
}

// Busy implements Device.
func (d *DS1820) Busy(now time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.converting {
		return false
	}
	if d.Hang || now < d.convertUntil {
		return true
	}
	d.converting = false
	return false
}

// Commands returns every command byte received since the device was created.
func (d *DS1820) Commands() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.commands...)
}

var _ Device = &Loopback{}
var _ Device = &DS1820{}

// SetTemperature replaces the scratchpad with the one of a device measuring
// tenths of a degree Celsius.
func (d *DS1820) SetTemperature(tenths int) {
	p := ScratchpadFor(tenths)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Scratchpad = p
}

// ScratchpadFor returns a DS1820 scratchpad, with a valid CRC, that decodes
// to tenths of a degree Celsius. COUNT PER °C is 16.
func ScratchpadFor(tenths int) [9]byte {
	// Temperature in 1/16 °C, rounded up so the decoder truncation lands on
	// tenths.
	t16 := ceilDiv(tenths*16, 10)
	half := ceilDiv(t16-12, 16)
	remain := half*16 + 12 - t16
	raw := int16(half << 1)
	var p [9]byte
	copy(p[:], common.AppendCRC8([]byte{byte(raw), byte(raw >> 8), 0x4b, 0x46, 0xff, 0xff, byte(remain), 16}))
	return p
}

func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a > 0 {
		q++
	}
	return q
}
