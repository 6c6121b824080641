// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package delay_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/GermanBionicSystems/weatherstation/delay"
	"github.com/GermanBionicSystems/weatherstation/delay/delaytest"
)

func TestSpin(t *testing.T) {
	for _, d := range []time.Duration{0, time.Microsecond, 50 * time.Microsecond, 2 * time.Millisecond} {
		start := time.Now()
		delay.Spin{}.Sleep(d)
		if got := time.Since(start); got < d {
			t.Errorf("Spin.Sleep(%s) returned after %s", d, got)
		}
	}
}

func TestSpin_negative(t *testing.T) {
	start := time.Now()
	delay.Spin{}.Sleep(-time.Second)
	if got := time.Since(start); got > 100*time.Millisecond {
		t.Errorf("Spin.Sleep(-1s) blocked for %s", got)
	}
}

func TestLoop(t *testing.T) {
	// A zero loop must return at once whatever the duration.
	start := time.Now()
	delay.Loop{}.Sleep(time.Hour)
	if got := time.Since(start); got > 100*time.Millisecond {
		t.Errorf("Loop{}.Sleep blocked for %s", got)
	}
	delay.DefaultLoop.Sleep(100 * time.Microsecond)
}

func TestCalibrate(t *testing.T) {
	l := delay.Calibrate(0)
	if l.PerMicrosecond < 1 {
		t.Fatalf("Calibrate() = %+v", l)
	}
	start := time.Now()
	l.Sleep(2 * time.Millisecond)
	if got := time.Since(start); got < 500*time.Microsecond {
		t.Errorf("calibrated 2ms loop took %s", got)
	}
}

func TestLoop_concurrent(t *testing.T) {
	l := delay.Calibrate(10 * time.Millisecond)
	const d = 20 * time.Millisecond
	alone := time.Duration(1<<63 - 1)
	for range 3 {
		start := time.Now()
		l.Sleep(d)
		if e := time.Since(start); e < alone {
			alone = e
		}
	}

	// Another goroutine running short sleeps on the same Loop must not cut
	// this one short.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				l.Sleep(time.Microsecond)
			}
		}
	}()
	start := time.Now()
	l.Sleep(d)
	got := time.Since(start)
	close(stop)
	wg.Wait()
	if got < alone*8/10 {
		t.Fatalf("Sleep(%s) took %s with a concurrent sleeper, %s alone", d, got, alone)
	}
}

func TestHelpers(t *testing.T) {
	c := &delaytest.Clock{}
	delay.Microseconds(c, 500)
	delay.Milliseconds(c, 2)
	want := []time.Duration{500 * time.Microsecond, 2 * time.Millisecond}
	if diff := cmp.Diff(want, c.Sleeps()); diff != "" {
		t.Errorf("Sleeps() difference (-want +got):\n%s", diff)
	}
	if got := c.Elapsed(); got != 2500*time.Microsecond {
		t.Errorf("Elapsed() = %s", got)
	}
}
