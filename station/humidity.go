// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package station

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/physic"
)

// FixedHumidity is a humidity sensor that always reports the same value.
//
// It stands in for a humidity input when none is wired.
type FixedHumidity physic.RelativeHumidity

func (f FixedHumidity) String() string {
	return "FixedHumidity{" + physic.RelativeHumidity(f).String() + "}"
}

// Halt implements conn.Resource.
func (f FixedHumidity) Halt() error {
	return nil
}

// Sense implements physic.SenseEnv.
func (f FixedHumidity) Sense(e *physic.Env) error {
	e.Humidity = physic.RelativeHumidity(f)
	return nil
}

// SenseContinuous implements physic.SenseEnv. It is not supported.
func (f FixedHumidity) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	return nil, errors.New("station: continuous sensing not supported by FixedHumidity")
}

// Precision implements physic.SenseEnv.
func (f FixedHumidity) Precision(e *physic.Env) {
	e.Humidity = physic.PercentRH
}

var _ physic.SenseEnv = FixedHumidity(0)
