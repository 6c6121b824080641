// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onewirebb

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/onewire"

	"github.com/GermanBionicSystems/weatherstation/delay/delaytest"
	"github.com/GermanBionicSystems/weatherstation/onewirebb/onewirebbtest"
)

func newBus(t *testing.T, d onewirebbtest.Device) (*Bus, *onewirebbtest.Line, *delaytest.Clock) {
	c := &delaytest.Clock{DontRecord: true}
	l := onewirebbtest.NewLine(c, d)
	opts := DefaultOpts
	opts.Sleeper = c
	b, err := New(l, &opts)
	if err != nil {
		t.Fatal(err)
	}
	return b, l, c
}

func TestNew_fail(t *testing.T) {
	if b, err := New(nil, nil); b != nil || err == nil {
		t.Fatal("nil pin")
	}
	opts := DefaultOpts
	opts.SlotShort = 0
	if b, err := New(&gpiotest.Pin{N: "OW"}, &opts); b != nil || err == nil {
		t.Fatal("invalid timing")
	}
	opts = DefaultOpts
	opts.ReleaseTimeout = -time.Second
	if b, err := New(&gpiotest.Pin{N: "OW"}, &opts); b != nil || err == nil {
		t.Fatal("invalid timeout")
	}
}

func TestString(t *testing.T) {
	b, _, _ := newBus(t, nil)
	if s := b.String(); !strings.HasPrefix(s, "onewirebb{OW") {
		t.Fatal(s)
	}
	if err := b.Halt(); err != nil {
		t.Fatal(err)
	}
}

func TestPresence(t *testing.T) {
	for _, tc := range []struct {
		name   string
		device onewirebbtest.Device
		want   bool
	}{
		{"disconnected", nil, false},
		{"absent", &onewirebbtest.DS1820{Absent: true}, false},
		{"present", &onewirebbtest.DS1820{}, true},
		{"loopback", &onewirebbtest.Loopback{}, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b, l, c := newBus(t, tc.device)
			got, err := b.Presence()
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("Presence() = %t, want %t", got, tc.want)
			}
			if diff := cmp.Diff([]time.Duration{ResetLow}, l.Pulses()); diff != "" {
				t.Errorf("pulses (-want +got):\n%s", diff)
			}
			if want := ResetLow + PresenceWait + PresenceSettle; c.Elapsed() != want {
				t.Errorf("Presence() took %s, want %s", c.Elapsed(), want)
			}
		})
	}
}

func TestWriteByte_slots(t *testing.T) {
	b, l, c := newBus(t, nil)
	if err := b.WriteByte(0xa5); err != nil {
		t.Fatal(err)
	}
	// 0xa5 sent LSB first: 1 0 1 0 0 1 0 1.
	want := []time.Duration{
		SlotShort, SlotLong, SlotShort, SlotLong,
		SlotLong, SlotShort, SlotLong, SlotShort,
	}
	if diff := cmp.Diff(want, l.Pulses()); diff != "" {
		t.Errorf("pulses (-want +got):\n%s", diff)
	}
	if got := c.Elapsed(); got != 8*(SlotLong+SlotShort) {
		t.Errorf("WriteByte took %s", got)
	}
}

func TestReadBit(t *testing.T) {
	b, l, c := newBus(t, nil)
	// Nothing drives the line: the pull-up reads as 1.
	v, err := b.ReadBit()
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("ReadBit() = %d on an idle line", v)
	}
	if diff := cmp.Diff([]time.Duration{ReadLow}, l.Pulses()); diff != "" {
		t.Errorf("pulses (-want +got):\n%s", diff)
	}
	if got := c.Elapsed(); got != ReadLow+ReadWait+ReadRecovery {
		t.Errorf("ReadBit took %s", got)
	}
}

func TestRoundTrip(t *testing.T) {
	lb := &onewirebbtest.Loopback{}
	b, l, _ := newBus(t, lb)
	if err := b.Reset(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 256; i++ {
		if err := b.WriteByte(byte(i)); err != nil {
			t.Fatal(err)
		}
		got, err := b.ReadByte()
		if err != nil {
			t.Fatal(err)
		}
		if got != byte(i) {
			t.Fatalf("wrote %#02x, read back %#02x", i, got)
		}
	}
	if len(lb.Written) != 256 {
		t.Errorf("device received %d bytes", len(lb.Written))
	}
	if l.Resets() != 1 {
		t.Errorf("%d resets", l.Resets())
	}
}

func TestTx(t *testing.T) {
	lb := &onewirebbtest.Loopback{}
	b, l, _ := newBus(t, lb)
	r := make([]byte, 1)
	for i := 0; i < 256; i++ {
		if err := b.Tx([]byte{byte(i)}, r, onewire.WeakPullup); err != nil {
			t.Fatal(err)
		}
		if r[0] != byte(i) {
			t.Fatalf("Tx(%#02x) read %#02x", i, r[0])
		}
	}
	if l.Resets() != 256 {
		t.Errorf("%d resets", l.Resets())
	}
	// Strong pull-up is accepted.
	if err := b.Tx([]byte{0x42}, r, onewire.StrongPullup); err != nil {
		t.Fatal(err)
	}
}

func TestSearch(t *testing.T) {
	b, _, _ := newBus(t, nil)
	addrs, err := b.Search(false)
	if addrs != nil || err == nil {
		t.Fatal("search should not be supported")
	}
	var be onewire.BusError
	if !errors.As(err, &be) || !be.BusError() {
		t.Errorf("unexpected error type %T", err)
	}
}

func TestWaitRelease(t *testing.T) {
	d := &onewirebbtest.DS1820{ConversionTime: 750 * time.Millisecond}
	b, _, c := newBus(t, d)
	if err := b.Tx([]byte{0xcc, 0x44}, nil, onewire.WeakPullup); err != nil {
		t.Fatal(err)
	}
	start := c.Now()
	if err := b.WaitRelease(20 * time.Microsecond); err != nil {
		t.Fatal(err)
	}
	if got := c.Now() - start; got < 749*time.Millisecond || got > 751*time.Millisecond {
		t.Errorf("WaitRelease returned after %s", got)
	}
	// The line is already high now.
	start = c.Now()
	if err := b.WaitRelease(0); err != nil {
		t.Fatal(err)
	}
	if c.Now() != start {
		t.Errorf("WaitRelease on an idle line waited %s", c.Now()-start)
	}
}

func TestWaitRelease_timeout(t *testing.T) {
	d := &onewirebbtest.DS1820{Hang: true}
	b, _, _ := newBus(t, d)
	if err := b.Tx([]byte{0xcc, 0x44}, nil, onewire.WeakPullup); err != nil {
		t.Fatal(err)
	}
	err := b.WaitRelease(20 * time.Microsecond)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected a timeout, got %v", err)
	}
	if te.Waited != DefaultOpts.ReleaseTimeout {
		t.Errorf("waited %s", te.Waited)
	}
	if !te.BusError() {
		t.Error("timeout must be a bus error")
	}
}

func TestPersistentError(t *testing.T) {
	p := &failingPin{Pin: &gpiotest.Pin{N: "OW"}}
	c := &delaytest.Clock{}
	opts := DefaultOpts
	opts.Sleeper = c
	b, err := New(p, &opts)
	if err != nil {
		t.Fatal(err)
	}
	p.fail = true
	if _, err := b.Presence(); err == nil {
		t.Fatal("expected an error")
	}
	p.fail = false
	if err := b.WriteByte(0); err == nil {
		t.Fatal("expected the error to persist")
	}
	if _, err := b.ReadByte(); err == nil {
		t.Fatal("expected the error to persist")
	}
}

type failingPin struct {
	*gpiotest.Pin
	fail bool
}

func (p *failingPin) Out(l gpio.Level) error {
	if p.fail {
		return errors.New("pin broke")
	}
	return nil
}

func (p *failingPin) In(gpio.Pull, gpio.Edge) error {
	return nil
}
