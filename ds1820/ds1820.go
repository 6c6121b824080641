// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds1820 reads a Dallas Semi / Maxim DS1820 (DS18S20) temperature
// sensor that is alone on its 1-wire bus.
//
// The device is addressed with skip-ROM. A reading is always a full cycle:
// reset, Convert T, wait for the device to release the line, reset, Read
// Scratchpad, decode. Nothing is cached.
//
// # Datasheet
//
// https://www.analog.com/media/en/technical-documentation/data-sheets/DS18S20.pdf
package ds1820

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/weatherstation/delay"
)

// Function commands.
const (
	SkipROM        byte = 0xcc
	ConvertT       byte = 0x44
	ReadScratchpad byte = 0xbe
)

// Bus is the 1-wire bus the device is on. onewirebb.Bus implements it.
type Bus interface {
	onewire.Bus
	// Presence issues a reset and reports whether a device answered.
	Presence() (bool, error)
	// WaitRelease waits for after, then until the line reads high.
	WaitRelease(after time.Duration) error
}

// Opts contains options to pass to the constructor.
type Opts struct {
	// CheckCRC validates the scratchpad CRC on every reading. When false,
	// whatever was read is decoded.
	CheckCRC bool
	// ConversionWait is the delay between Convert T and the first sample of
	// the line.
	ConversionWait time.Duration
	// SettleTime is waited once the device released the line.
	SettleTime time.Duration
	// Sleeper defaults to delay.Default.
	Sleeper delay.Sleeper
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	ConversionWait: 20 * time.Microsecond,
	SettleTime:     20 * time.Microsecond,
}

// ErrTimeout is returned when a conversion did not complete in time.
var ErrTimeout = errors.New("ds1820: conversion timed out")

// ErrCRC is returned when the scratchpad CRC does not match.
var ErrCRC = busError("ds1820: incorrect scratchpad CRC")

// New returns an object that communicates over 1-wire to the DS1820 sensor
// on b.
func New(b Bus, opts *Opts) (*Dev, error) {
	if b == nil {
		return nil, errors.New("ds1820: no bus")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{bus: b, opts: *opts}
	if d.opts.Sleeper == nil {
		d.opts.Sleeper = delay.Default
	}
	return d, nil
}

// Dev is a handle to a DS1820 temperature sensor.
type Dev struct {
	bus  Bus
	opts Opts

	tx sync.Mutex // serializes full reading cycles

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func (d *Dev) String() string {
	return "DS1820{" + d.bus.String() + "}"
}

// Halt implements conn.Resource.
//
// It stops a SenseContinuous loop.
func (d *Dev) Halt() error {
	d.mu.Lock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}

// Presence reports whether the sensor answers a reset with a presence pulse.
//
// An unplugged sensor is reported as false, not as an error. It waits for a
// reading in progress to complete.
func (d *Dev) Presence() (bool, error) {
	d.tx.Lock()
	defer d.tx.Unlock()
	return d.bus.Presence()
}

// Temperature runs a conversion and returns its result.
func (d *Dev) Temperature() (Temperature, error) {
	d.tx.Lock()
	defer d.tx.Unlock()
	if err := d.bus.Tx([]byte{SkipROM, ConvertT}, nil, onewire.StrongPullup); err != nil {
		return 0, err
	}
	if err := d.bus.WaitRelease(d.opts.ConversionWait); err != nil {
		var t interface{ Timeout() bool }
		if errors.As(err, &t) && t.Timeout() {
			return 0, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return 0, err
	}
	d.opts.Sleeper.Sleep(d.opts.SettleTime)
	var spad Scratchpad
	if err := d.bus.Tx([]byte{SkipROM, ReadScratchpad}, spad[:], onewire.WeakPullup); err != nil {
		return 0, err
	}
	if d.opts.CheckCRC && !spad.Valid() {
		for _, s := range spad {
			if s != 0xff {
				return 0, ErrCRC
			}
		}
		return 0, busError("ds1820: device did not respond")
	}
	return spad.Temperature(), nil
}

// Sense implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	t, err := d.Temperature()
	if err != nil {
		return err
	}
	e.Temperature = t.Physic()
	return nil
}

// SenseContinuous implements physic.SenseEnv.
//
// A reading is made every interval until Halt is called, which closes the
// channel. Failed readings are skipped.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval <= 0 {
		return nil, errors.New("ds1820: invalid interval")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errors.New("ds1820: already sensing continuously")
	}
	stop := make(chan struct{})
	d.stop = stop
	c := make(chan physic.Env)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(c)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			var e physic.Env
			if err := d.Sense(&e); err == nil {
				select {
				case c <- e:
				case <-stop:
					return
				}
			}
			select {
			case <-stop:
				return
			case <-t.C:
			}
		}
	}()
	return c, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 10
}

// busError implements error and onewire.BusError.
type busError string

func (e busError) Error() string  { return string(e) }
func (e busError) BusError() bool { return true }

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
