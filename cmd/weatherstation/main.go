// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// weatherstation shows the time, the temperature of a DS1820 and the
// humidity on a 2x16 HD44780 display.
//
// With -sim, the display and the thermometer are simulated and the display is
// drawn on the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/weatherstation/delay"
	"github.com/GermanBionicSystems/weatherstation/delay/delaytest"
	"github.com/GermanBionicSystems/weatherstation/ds1820"
	"github.com/GermanBionicSystems/weatherstation/hd44780"
	"github.com/GermanBionicSystems/weatherstation/lcdsim"
	"github.com/GermanBionicSystems/weatherstation/onewirebb"
	"github.com/GermanBionicSystems/weatherstation/onewirebb/onewirebbtest"
	"github.com/GermanBionicSystems/weatherstation/station"
)

func mainImpl() error {
	owName := flag.String("ow", "GPIO4", "1-wire data pin")
	rsName := flag.String("rs", "GPIO17", "LCD register select pin")
	eName := flag.String("e", "GPIO18", "LCD enable pin")
	var dNames [4]*string
	for i, def := range []string{"GPIO22", "GPIO23", "GPIO24", "GPIO25"} {
		dNames[i] = flag.String(fmt.Sprintf("d%d", i+4), def, fmt.Sprintf("LCD D%d pin", i+4))
	}
	viewName := flag.String("view", "TimeAndTemp", "initial view")
	humidity := flag.Int("humidity", 50, "humidity to show, in %")
	refresh := flag.Duration("refresh", station.DefaultControllerOpts.RefreshInterval, "display refresh interval")
	poll := flag.Duration("poll", station.DefaultControllerOpts.PollInterval, "sensor poll interval")
	toggle := flag.Duration("toggle", station.DefaultControllerOpts.ToggleInterval, "TempHumiAndClock alternation interval")
	timeout := flag.Duration("timeout", onewirebb.DefaultOpts.ReleaseTimeout, "maximum temperature conversion time, 0 to wait forever")
	crc := flag.Bool("crc", false, "validate the scratchpad CRC")
	calibrate := flag.Bool("calibrate", false, "use a delay loop calibrated on this host instead of spinning on the clock")
	sim := flag.Bool("sim", false, "simulate the display and the thermometer")
	simTemp := flag.Int("simtemp", 215, "simulated temperature, in tenths of °C")
	pngPath := flag.String("png", "", "with -sim, write the display as a PNG on exit")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	view, err := station.ParseView(*viewName)
	if err != nil {
		return err
	}
	if *humidity < 0 || *humidity > 100 {
		return fmt.Errorf("invalid -humidity %d", *humidity)
	}

	var s delay.Sleeper = delay.Default
	var ow gpio.PinIO
	var pins hd44780.Pins
	var preview *lcdsim.Controller
	var term *lcdsim.Terminal
	if *sim {
		// Virtual time: the bit-banged protocols complete instantly.
		clk := &delaytest.Clock{DontRecord: true}
		s = clk
		therm := &onewirebbtest.DS1820{ConversionTime: 750 * time.Millisecond}
		therm.SetTemperature(*simTemp)
		ow = onewirebbtest.NewLine(clk, therm)
		preview = lcdsim.New()
		pins = hd44780.Pins{RS: preview.RS(), E: preview.E(), Data: preview.Data()}
		term = lcdsim.NewTerminal(nil, nil)
	} else {
		if _, err := host.Init(); err != nil {
			return err
		}
		if *calibrate {
			l := delay.Calibrate(100 * time.Millisecond)
			log.Printf("calibrated %d loops per µs", l.PerMicrosecond)
			s = l
		}
		if ow, err = pinByName(*owName); err != nil {
			return err
		}
		if pins.RS, err = pinByName(*rsName); err != nil {
			return err
		}
		if pins.E, err = pinByName(*eName); err != nil {
			return err
		}
		for i, n := range dNames {
			if pins.Data[i], err = pinByName(*n); err != nil {
				return err
			}
		}
	}

	busOpts := onewirebb.DefaultOpts
	busOpts.ReleaseTimeout = *timeout
	busOpts.Sleeper = s
	bus, err := onewirebb.New(ow, &busOpts)
	if err != nil {
		return err
	}
	defer bus.Halt()
	thermOpts := ds1820.DefaultOpts
	thermOpts.CheckCRC = *crc
	thermOpts.Sleeper = s
	therm, err := ds1820.New(bus, &thermOpts)
	if err != nil {
		return err
	}
	defer therm.Halt()
	if ok, err := therm.Presence(); err != nil {
		return err
	} else if !ok {
		log.Printf("%s: no presence pulse", therm)
	}

	lcd, err := hd44780.New(pins, &hd44780.Opts{Rows: 2, Cols: 16, Sleeper: s})
	if err != nil {
		return err
	}
	defer lcd.Halt()

	c, err := station.NewController(lcd, therm, station.FixedHumidity(physic.RelativeHumidity(*humidity)*physic.PercentRH), &station.ControllerOpts{
		RefreshInterval: *refresh,
		PollInterval:    *poll,
		ToggleInterval:  *toggle,
	})
	if err != nil {
		return err
	}
	if err := c.SetView(view); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if preview != nil {
		go func() {
			t := time.NewTicker(*refresh)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					if err := term.Render(preview); err != nil {
						log.Printf("preview: %v", err)
					}
				}
			}
		}()
	}
	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	if preview == nil {
		return nil
	}
	_ = term.Halt()
	if *pngPath == "" {
		return nil
	}
	f, err := os.Create(*pngPath)
	if err != nil {
		return err
	}
	if err := lcdsim.EncodePNG(preview, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("failed to find pin %q", name)
	}
	return p, nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "weatherstation: %s.\n", err)
		os.Exit(1)
	}
}
