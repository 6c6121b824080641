// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package station

import (
	"strconv"

	"github.com/GermanBionicSystems/weatherstation/ds1820"
)

// Width is the number of characters in a row.
const Width = 16

// Degree is the degree sign in the HD44780 A00 character ROM.
const Degree = 0xdf

// Row is a row of character codes.
type Row [Width]byte

func (r Row) String() string {
	return string(r[:])
}

var emptyRow = fit("")

// fit pads s with spaces or truncates it to Width characters.
func fit(s string) Row {
	var r Row
	n := copy(r[:], s)
	for ; n < len(r); n++ {
		r[n] = ' '
	}
	return r
}

// FormatTemperature returns t with a leading sign (a space when positive) and
// one decimal, e.g. " 20.5" or "-0.5".
func FormatTemperature(t ds1820.Temperature) string {
	neg, whole, tenth := t.Parts()
	sign := " "
	if neg {
		sign = "-"
	}
	return sign + strconv.Itoa(whole) + "." + strconv.Itoa(tenth)
}

// Rows returns the two rows v shows for r. toggle selects the alternative
// templates of TempHumiAndClock.
func Rows(v View, r Reading, toggle bool) (Row, Row) {
	return v.rows(r, toggle)
}

func timeFirstRow(t TimeOfDay) Row {
	return fit("    " + t.String())
}

func timeSecondRow(t TimeOfDay) Row {
	return fit("        " + t.String())
}

func tempRow(t ds1820.Temperature) Row {
	return fit("    " + FormatTemperature(t) + string([]byte{Degree}) + "C")
}

func humidityRow(h uint16) Row {
	return fit("       " + strconv.Itoa(int(h)) + "%")
}
