// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds1820

import (
	"strconv"

	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// Temperature is a temperature in tenths of a degree Celsius.
type Temperature int16

// Parts splits t into its sign, whole degrees and tenth of a degree.
func (t Temperature) Parts() (negative bool, whole, tenth int) {
	v := int(t)
	if v < 0 {
		negative = true
		v = -v
	}
	return negative, v / 10, v % 10
}

// String returns t in degrees Celsius, e.g. "-0.5°C".
func (t Temperature) String() string {
	neg, whole, tenth := t.Parts()
	s := strconv.Itoa(whole) + "." + strconv.Itoa(tenth) + "°C"
	if neg {
		return "-" + s
	}
	return s
}

// Physic converts t to a physic.Temperature.
func (t Temperature) Physic() physic.Temperature {
	return physic.Temperature(t)*physic.Kelvin/10 + physic.ZeroCelsius
}

// Scratchpad is the 9 bytes memory read from the device:
//
//	0: temperature LSB
//	1: temperature MSB
//	2: TH register
//	3: TL register
//	4, 5: reserved
//	6: COUNT REMAIN
//	7: COUNT PER °C
//	8: CRC
type Scratchpad [9]byte

// Valid reports whether the CRC in the last byte matches.
func (s *Scratchpad) Valid() bool {
	return onewire.CheckCRC(s[:])
}

// Temperature decodes the extended resolution temperature, datasheet p.3:
//
//	TEMPERATURE = TEMP_READ - 0.25 + (COUNT_PER_C - COUNT_REMAIN) / COUNT_PER_C
//
// COUNT_PER_C is 16 on the DS1820, so the counts are already in 1/16°C and no
// division is done. The computation is done in int16, with its wrap-around
// and arithmetic shifts, so any scratchpad decodes to a defined value.
func (s *Scratchpad) Temperature() Temperature {
	v := int16(uint16(s[1])<<8 | uint16(s[0]))
	v >>= 1                        // whole degrees, drops the 0.5°C bit
	v <<= 4                        // 1/16°C
	v -= 4                         // -0.25°C
	v += int16(s[7]) - int16(s[6]) // count per °C - count remain
	v *= 10                        // tenths
	v >>= 4                        // back from 1/16
	return Temperature(v)
}
