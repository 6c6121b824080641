// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim simulates a HD44780 character LCD controller on GPIO pins.
//
// The Controller decodes what a driver does to the RS, E and D4-D7 lines the
// same way the chip does, nibble by nibble on the falling edge of E, and
// keeps the resulting display RAM and cursor state. It lets display drivers
// be tested on the host and the station be previewed in a terminal or as a
// PNG.
package lcdsim

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/GermanBionicSystems/weatherstation/delay/delaytest"
)

// Geometry of the display RAM of a 2 lines controller.
const (
	LineLength = 40   // characters per line in DDRAM
	Line2      = 0x40 // DDRAM address of line 2
	Cols       = 16   // visible columns
)

// Controller is a simulated HD44780.
//
// Its zero value is not usable, use New.
type Controller struct {
	// Clock, when set, is used to measure the enable pulses.
	Clock *delaytest.Clock

	mu       sync.Mutex
	rs       bool
	e        bool
	d        [4]bool
	eRose    time.Duration
	minE     time.Duration
	fourBit  bool
	pending  bool
	high     byte
	nibbles  int
	ddram    [2][LineLength]byte
	ac       byte
	inc      bool
	on       bool
	cursor   bool
	blink    bool
	twoLines bool
	instr    []byte
	data     []byte

	rsPin   *Pin
	ePin    *Pin
	dataPin [4]*Pin
}

// New returns a controller as it is after power-on: 8-bit mode, display off,
// RAM filled with spaces.
func New() *Controller {
	c := &Controller{inc: true}
	for l := range c.ddram {
		for i := range c.ddram[l] {
			c.ddram[l][i] = ' '
		}
	}
	c.rsPin = &Pin{Pin: &gpiotest.Pin{N: "RS", Num: 0}, c: c, line: lineRS}
	c.ePin = &Pin{Pin: &gpiotest.Pin{N: "E", Num: 1}, c: c, line: lineE}
	for i := range c.dataPin {
		c.dataPin[i] = &Pin{Pin: &gpiotest.Pin{N: "D" + string(rune('4'+i)), Num: 4 + i}, c: c, line: i}
	}
	return c
}

// RS returns the register select pin.
func (c *Controller) RS() gpio.PinOut { return c.rsPin }

// E returns the enable pin.
func (c *Controller) E() gpio.PinOut { return c.ePin }

// Data returns the D4 to D7 pins.
func (c *Controller) Data() [4]gpio.PinOut {
	return [4]gpio.PinOut{c.dataPin[0], c.dataPin[1], c.dataPin[2], c.dataPin[3]}
}

// Instructions returns the instructions executed since the last ClearLog.
func (c *Controller) Instructions() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.instr...)
}

// Written returns the character codes written since the last ClearLog.
func (c *Controller) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.data...)
}

// Nibbles returns the number of nibbles latched since power-on.
func (c *Controller) Nibbles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nibbles
}

// ClearLog forgets the recorded instructions and data.
func (c *Controller) ClearLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instr, c.data = nil, nil
}

// Line returns the visible characters of line 0 or 1.
func (c *Controller) Line(n int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.ddram[n&1][:Cols]...)
}

// Text returns the visible characters of a line as a string, with the
// character ROM degree sign translated.
func (c *Controller) Text(n int) string {
	l := c.Line(n)
	r := make([]rune, len(l))
	for i, b := range l {
		r[i] = Glyph(b)
	}
	return string(r)
}

// CursorAddress returns the DDRAM address counter.
func (c *Controller) CursorAddress() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ac
}

// DisplayOn reports whether the display is on.
func (c *Controller) DisplayOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on
}

// CursorOn reports whether the underline cursor is shown.
func (c *Controller) CursorOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Blinking reports whether the cursor position blinks.
func (c *Controller) Blinking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blink
}

// FourBit reports whether the interface is in 4-bit mode.
func (c *Controller) FourBit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fourBit
}

// TwoLines reports whether the display was configured for 2 lines.
func (c *Controller) TwoLines() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.twoLines
}

// MinEnablePulse returns the shortest enable pulse seen. It needs Clock.
func (c *Controller) MinEnablePulse() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minE
}

// Glyph returns the rune the A00 character ROM shows for a character code.
func Glyph(b byte) rune {
	switch {
	case b == 0xdf:
		return '°'
	case b < 0x20 || b > 0x7e:
		return '?'
	}
	return rune(b)
}

//

const (
	lineRS = 4 + iota
	lineE
)

func (c *Controller) set(line int, l gpio.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := bool(l)
	switch line {
	case lineRS:
		c.rs = v
	case lineE:
		if v && !c.e && c.Clock != nil {
			c.eRose = c.Clock.Now()
		}
		if !v && c.e {
			if c.Clock != nil {
				if w := c.Clock.Now() - c.eRose; c.minE == 0 || w < c.minE {
					c.minE = w
				}
			}
			c.latch()
		}
		c.e = v
	default:
		c.d[line] = v
	}
}

func (c *Controller) latch() {
	var n byte
	for i, v := range c.d {
		if v {
			n |= 1 << i
		}
	}
	c.nibbles++
	if !c.fourBit {
		// D0-D3 are not connected and read as 0.
		c.execute(c.rs, n<<4)
		return
	}
	if !c.pending {
		c.high, c.pending = n, true
		return
	}
	c.pending = false
	c.execute(c.rs, c.high<<4|n)
}

func (c *Controller) execute(rs bool, b byte) {
	if rs {
		c.data = append(c.data, b)
		c.ddram[c.ac>>6&1][c.ac&0x3f%LineLength] = b
		c.step(c.inc)
		return
	}
	c.instr = append(c.instr, b)
	switch {
	case b&0x80 != 0:
		c.ac = b & 0x7f
		if c.ac&0x3f >= LineLength {
			c.ac &= Line2
		}
	case b&0x40 != 0:
		// CGRAM is not simulated.
	case b&0x20 != 0:
		c.fourBit = b&0x10 == 0
		c.twoLines = b&0x08 != 0
		c.pending = false
	case b&0x10 != 0:
		if b&0x08 == 0 {
			c.step(b&0x04 != 0)
		}
	case b&0x08 != 0:
		c.on = b&0x04 != 0
		c.cursor = b&0x02 != 0
		c.blink = b&0x01 != 0
	case b&0x04 != 0:
		c.inc = b&0x02 != 0
	case b&0x02 != 0:
		c.ac = 0
	case b&0x01 != 0:
		for l := range c.ddram {
			for i := range c.ddram[l] {
				c.ddram[l][i] = ' '
			}
		}
		c.ac = 0
		c.inc = true
	}
}

// step moves the address counter by one, wrapping from the end of a line to
// the start of the other one.
func (c *Controller) step(forward bool) {
	line, col := c.ac&Line2, c.ac&0x3f
	if forward {
		if col++; col == LineLength {
			col = 0
			line ^= Line2
		}
	} else {
		if col == 0 {
			col = LineLength
			line ^= Line2
		}
		col--
	}
	c.ac = line | col
}

// Pin is one of the controller input lines. It implements gpio.PinIO.
type Pin struct {
	*gpiotest.Pin
	c    *Controller
	line int
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	p.c.set(p.line, l)
	return nil
}

// Read implements gpio.PinIn. It returns the level last driven.
func (p *Pin) Read() gpio.Level {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	switch p.line {
	case lineRS:
		return gpio.Level(p.c.rs)
	case lineE:
		return gpio.Level(p.c.e)
	}
	return gpio.Level(p.c.d[p.line])
}
