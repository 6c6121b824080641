// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package station

import (
	"errors"
	"fmt"

	"github.com/GermanBionicSystems/weatherstation/hd44780"
)

// LCD is the part of a character display the station needs.
//
// It is implemented by *hd44780.Dev.
type LCD interface {
	Instruction(b byte) error
	Data(b byte) error
}

// Display renders views on an LCD.
type Display struct {
	lcd LCD
}

// NewDisplay returns a Display on lcd. The display must already be
// initialized.
func NewDisplay(lcd LCD) *Display {
	return &Display{lcd: lcd}
}

// WriteToDisplay renders both rows of v for r, then shows a blinking cursor
// on field f or hides the cursor when f is FieldNone.
//
// Every call rewrites the whole display.
func (d *Display) WriteToDisplay(r Reading, v View, f Field, toggle bool) error {
	if v == nil {
		return errors.New("station: nil view")
	}
	if f != FieldNone && f.Address() == 0 {
		return fmt.Errorf("station: invalid cursor field %s", f)
	}
	if err := d.lcd.Instruction(hd44780.ReturnHome); err != nil {
		return err
	}
	first, second := Rows(v, r, toggle)
	if err := d.row(first); err != nil {
		return err
	}
	if err := d.lcd.Instruction(hd44780.SetDDRAMAddress | hd44780.SecondLine); err != nil {
		return err
	}
	if err := d.row(second); err != nil {
		return err
	}
	if f == FieldNone {
		return d.lcd.Instruction(hd44780.CursorOff)
	}
	if err := d.lcd.Instruction(hd44780.CursorBlinking); err != nil {
		return err
	}
	return d.lcd.Instruction(f.Address())
}

func (d *Display) row(r Row) error {
	for _, b := range r {
		if err := d.lcd.Data(b); err != nil {
			return err
		}
	}
	return nil
}
