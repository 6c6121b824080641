// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the CRC8 of a one-wire scratchpad.
package common

// CRC8 calculates the Dallas/Maxim 8-bit CRC (polynomial x^8+x^5+x^4+1,
// reflected, initial value 0) of the byte slice parameter and returns the
// calculated value. One-wire devices append it to their ROM code and
// scratchpad, shifted out LSB first like every other byte on the bus.
//
// A buffer that ends with its own CRC has a CRC8 of 0.
func CRC8(bytes []byte) byte {
	var crc byte
	for _, val := range bytes {
		crc ^= val
		for range 8 {
			if (crc & 0x01) == 0 {
				crc >>= 1
			} else {
				crc = (crc >> 1) ^ 0x8c
			}
		}
	}
	return crc
}

// AppendCRC8 returns bytes followed by their CRC8.
func AppendCRC8(bytes []byte) []byte {
	return append(bytes, CRC8(bytes))
}
