// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls a Hitachi HD44780 character LCD wired in 4-bit
// mode: register select, enable and the four data lines D4-D7 on GPIO pins.
// R/W is tied low, so nothing is ever read back and every instruction is
// given its datasheet execution time instead of polling the busy flag.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/weatherstation/delay"
)

// Instructions.
const (
	ClearDisplay    byte = 0x01
	ReturnHome      byte = 0x02
	DisplayOff      byte = 0x08
	DisplayOn       byte = 0x0c // display on, cursor off
	CursorOff       byte = 0x0c
	CursorOn        byte = 0x0e
	CursorBlinking  byte = 0x0f
	Mode4Bit        byte = 0x20
	TwoLines5x8     byte = 0x28 // 4-bit, 2 lines, 5x8 dots
	Mode8Bit        byte = 0x30
	SetDDRAMAddress byte = 0x80

	// SecondLine is the DDRAM address of the first character of line 2.
	SecondLine byte = 0x40
)

// Timings.
const (
	PowerOnDelay     = 50 * time.Millisecond
	ModeDelay        = 4100 * time.Microsecond // after the first 8-bit mode nibble, datasheet figure 24 (4-bit initialization)
	InstructionDelay = 50 * time.Microsecond
	ClearDelay       = 2 * time.Millisecond // clear display and return home
	EnablePulse      = 1 * time.Microsecond
	EnableHold       = 1 * time.Microsecond
)

// Pins is the wiring of the display.
type Pins struct {
	RS   gpio.PinOut    // register select: low for instructions, high for data
	E    gpio.PinOut    // enable, latches on the falling edge
	Data [4]gpio.PinOut // D4, D5, D6, D7
}

// Opts contains options to pass to the constructor.
type Opts struct {
	Rows, Cols int
	// Sleeper defaults to delay.Default.
	Sleeper delay.Sleeper
}

// DefaultOpts is a 2x16 display.
var DefaultOpts = Opts{Rows: 2, Cols: 16}

// Dev is a HD44780 display in 4-bit mode.
//
// Implements periph.io/x/conn/v3/display.TextDisplay.
type Dev struct {
	mu     sync.Mutex
	pins   Pins
	rows   int
	cols   int
	s      delay.Sleeper
	on     bool
	cursor bool
	blink  bool
}

// New returns the display on p, initialized and ready for use.
func New(p Pins, opts *Opts) (*Dev, error) {
	if p.RS == nil || p.E == nil {
		return nil, errors.New("hd44780: RS and E pins are required")
	}
	for i, d := range p.Data {
		if d == nil {
			return nil, fmt.Errorf("hd44780: data pin D%d is missing", i+4)
		}
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Rows < 1 || opts.Rows > 4 || opts.Cols < 1 || opts.Cols > 40 {
		return nil, fmt.Errorf("hd44780: unsupported geometry %dx%d", opts.Rows, opts.Cols)
	}
	dev := &Dev{pins: p, rows: opts.Rows, cols: opts.Cols, s: opts.Sleeper}
	if dev.s == nil {
		dev.s = delay.Default
	}
	return dev, dev.Init()
}

// Init runs the controller bring-up sequence: power-on wait, 8-bit mode
// forced twice, switch to 4-bit mode, 2 lines of 5x8 characters, display
// off, clear, display on.
//
// The mode switch is sent as single nibbles, following the 4-bit interface
// initialization flow of datasheet figure 24: until the controller is in 4-bit
// mode it latches one complete instruction per enable pulse.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.s.Sleep(PowerOnDelay)
	if err := d.pins.RS.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.pins.E.Out(gpio.Low); err != nil {
		return err
	}
	for i, n := range []byte{Mode8Bit >> 4, Mode8Bit >> 4, Mode4Bit >> 4} {
		if err := d.nibble(n); err != nil {
			return err
		}
		if i == 0 {
			d.s.Sleep(ModeDelay)
		} else {
			d.s.Sleep(InstructionDelay)
		}
	}
	for _, b := range []byte{TwoLines5x8, DisplayOff, ClearDisplay, DisplayOn} {
		if err := d.instruction(b); err != nil {
			return err
		}
	}
	d.on, d.cursor, d.blink = true, false, false
	return nil
}

// Instruction sends an instruction byte and waits for it to execute.
func (d *Dev) Instruction(b byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.instruction(b)
}

// Data sends a character code to the current DDRAM address.
func (d *Dev) Data(b byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data(b)
}

// SendByte sends b as its high nibble then its low nibble, each latched by an
// enable pulse. The register select line is left as is.
func (d *Dev) SendByte(b byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sendByte(b)
}

// SetAddress moves the cursor to a DDRAM address.
func (d *Dev) SetAddress(addr byte) error {
	return d.Instruction(SetDDRAMAddress | addr&0x7f)
}

// AutoScroll is not supported by this device. Returns
// display.ErrNotImplemented.
func (d *Dev) AutoScroll(enabled bool) error {
	return display.ErrNotImplemented
}

// Clear clears the screen and moves the cursor to the first position.
func (d *Dev) Clear() error {
	return d.Instruction(ClearDisplay)
}

// Cols returns the number of columns the display supports.
func (d *Dev) Cols() int {
	return d.cols
}

// Cursor sets the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (d *Dev) Cursor(modes ...display.CursorMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			d.cursor, d.blink = false, false
		case display.CursorBlink:
			d.cursor, d.blink = true, true
		case display.CursorUnderline:
			d.cursor = true
		case display.CursorBlock:
			d.blink = true
		default:
			return fmt.Errorf("hd44780: unexpected cursor: %d", mode)
		}
	}
	return d.instruction(d.control())
}

// Home moves the cursor home (MinRow(),MinCol()).
func (d *Dev) Home() error {
	return d.Instruction(ReturnHome)
}

// MinCol returns the min column position.
func (d *Dev) MinCol() int {
	return 1
}

// MinRow returns the min row position.
func (d *Dev) MinRow() int {
	return 1
}

// Move moves the cursor forward or backward.
func (d *Dev) Move(dir display.CursorDirection) error {
	var val byte = 0x10
	switch dir {
	case display.Backward:
	case display.Forward:
		val |= 0x04
	default:
		return fmt.Errorf("hd44780: %w", display.ErrNotImplemented)
	}
	return d.Instruction(val)
}

// MoveTo moves the cursor to an arbitrary position.
func (d *Dev) MoveTo(row, col int) error {
	if row < d.MinRow() || row > d.rows || col < d.MinCol() || col > d.cols {
		return fmt.Errorf("hd44780: MoveTo(%d,%d) value out of range", row, col)
	}
	return d.SetAddress(d.rowOffset(row) + byte(col-1))
}

// Rows returns the number of rows the display supports.
func (d *Dev) Rows() int {
	return d.rows
}

// String returns info about the display.
func (d *Dev) String() string {
	return fmt.Sprintf("HD44780{RS:%s, E:%s} - Rows: %d, Cols: %d", d.pins.RS, d.pins.E, d.rows, d.cols)
}

// Display turns the display on / off.
func (d *Dev) Display(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.on = on
	return d.instruction(d.control())
}

// Write writes a set of character codes at the cursor.
func (d *Dev) Write(p []byte) (n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range p {
		if err = d.data(b); err != nil {
			return
		}
		n++
	}
	return
}

// WriteString writes a string at the cursor.
func (d *Dev) WriteString(text string) (int, error) {
	return d.Write([]byte(text))
}

// Halt clears the display and turns it off.
func (d *Dev) Halt() error {
	err := d.Clear()
	if err2 := d.Display(false); err == nil {
		err = err2
	}
	return err
}

// rowOffset returns the DDRAM address of the first character of a 1-based row.
func (d *Dev) rowOffset(row int) byte {
	var offset byte
	if row%2 == 0 {
		offset = SecondLine
	}
	if row > 2 {
		offset += byte(d.cols)
	}
	return offset
}

func (d *Dev) control() byte {
	val := DisplayOff
	if d.on {
		val |= 0x04
	}
	if d.cursor {
		val |= 0x02
	}
	if d.blink {
		val |= 0x01
	}
	return val
}

func (d *Dev) instruction(b byte) error {
	if err := d.pins.RS.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.sendByte(b); err != nil {
		return err
	}
	if b == ClearDisplay || b == ReturnHome {
		d.s.Sleep(ClearDelay)
	} else {
		d.s.Sleep(InstructionDelay)
	}
	return nil
}

func (d *Dev) data(b byte) error {
	if err := d.pins.RS.Out(gpio.High); err != nil {
		return err
	}
	if err := d.sendByte(b); err != nil {
		return err
	}
	d.s.Sleep(InstructionDelay)
	return nil
}

func (d *Dev) sendByte(b byte) error {
	if err := d.nibble(b >> 4); err != nil {
		return err
	}
	return d.nibble(b & 0x0f)
}

// nibble drives D4-D7 with the low 4 bits of v and latches them.
func (d *Dev) nibble(v byte) error {
	for i, p := range d.pins.Data {
		if err := p.Out(gpio.Level(v>>i&1 == 1)); err != nil {
			return err
		}
	}
	if err := d.pins.E.Out(gpio.High); err != nil {
		return err
	}
	d.s.Sleep(EnablePulse)
	if err := d.pins.E.Out(gpio.Low); err != nil {
		return err
	}
	d.s.Sleep(EnableHold)
	return nil
}

var _ display.TextDisplay = &Dev{}
var _ conn.Resource = &Dev{}
