// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package delay

import (
	"testing"
	"time"
)

func TestMonotonic(t *testing.T) {
	prev := monotonic()
	start := time.Now()
	for time.Since(start) < 2*time.Millisecond {
		now := monotonic()
		if now < prev {
			t.Fatalf("went back from %d to %d", prev, now)
		}
		prev = now
	}
	// The selected source advances at the same pace as the runtime clock.
	a, wallA := monotonic(), time.Now()
	time.Sleep(5 * time.Millisecond)
	b, wallB := monotonic(), time.Now()
	got, want := time.Duration(b-a), wallB.Sub(wallA)
	if got < want/2 || got > 2*want {
		t.Fatalf("monotonic advanced %s while %s passed", got, want)
	}
}
