// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package weatherstation is a container for the drivers of a small weather
// station: a DS1820 thermometer bit-banged on a single GPIO line and a 2x16
// HD44780 character LCD driven over four data lines.
//
// The drivers live in their own packages: delay, onewirebb, ds1820, hd44780
// and station. lcdsim and the *test packages simulate the hardware on a host.
// cmd/weatherstation wires them to real pins, or to the simulators with -sim.
package weatherstation
