// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onewirebbtest_test

import (
	"testing"
	"time"

	"github.com/GermanBionicSystems/weatherstation/delay/delaytest"
	"github.com/GermanBionicSystems/weatherstation/ds1820"
	"github.com/GermanBionicSystems/weatherstation/onewirebb"
	"github.com/GermanBionicSystems/weatherstation/onewirebb/onewirebbtest"
)

func TestScratchpadFor(t *testing.T) {
	for tenths := -550; tenths <= 1250; tenths++ {
		p := ds1820.Scratchpad(onewirebbtest.ScratchpadFor(tenths))
		if !p.Valid() {
			t.Fatalf("%d: invalid CRC", tenths)
		}
		if got := p.Temperature(); int(got) != tenths {
			t.Fatalf("ScratchpadFor(%d) decodes to %d", tenths, got)
		}
	}
}

func TestDS1820_SetTemperature(t *testing.T) {
	clk := &delaytest.Clock{DontRecord: true}
	sim := &onewirebbtest.DS1820{ConversionTime: 750 * time.Millisecond}
	sim.SetTemperature(-102)
	opts := onewirebb.DefaultOpts
	opts.Sleeper = clk
	bus, err := onewirebb.New(onewirebbtest.NewLine(clk, sim), &opts)
	if err != nil {
		t.Fatal(err)
	}
	d, err := ds1820.New(bus, &ds1820.Opts{CheckCRC: true, ConversionWait: 20 * time.Microsecond, SettleTime: 20 * time.Microsecond, Sleeper: clk})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []ds1820.Temperature{-102, 215} {
		sim.SetTemperature(int(want))
		got, err := d.Temperature()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("got %s; want %s", got, want)
		}
	}
}
