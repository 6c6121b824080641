// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package station

import (
	"fmt"
	"strings"
	"time"

	"github.com/GermanBionicSystems/weatherstation/ds1820"
)

// View selects the templates used for the two rows of the display.
//
// The set of views is closed: TimeAndTemp, TempAndHumidity, TimeOnly,
// TempHumiAndClock and TimeConf.
type View interface {
	fmt.Stringer
	rows(r Reading, toggle bool) (Row, Row)
}

// TimeAndTemp shows the temperature on the first row and the time on the
// second one.
type TimeAndTemp struct{}

// TempAndHumidity shows the temperature on the first row and the humidity on
// the second one.
type TempAndHumidity struct{}

// TimeOnly shows the time on the first row.
type TimeOnly struct{}

// TempHumiAndClock alternates between TempAndHumidity and TimeOnly, driven by
// the toggle flag.
type TempHumiAndClock struct{}

// TimeConf shows the time on the first row, for the cursor to select a field
// of it.
type TimeConf struct{}

func (TimeAndTemp) String() string      { return "TimeAndTemp" }
func (TempAndHumidity) String() string  { return "TempAndHumidity" }
func (TimeOnly) String() string         { return "TimeOnly" }
func (TempHumiAndClock) String() string { return "TempHumiAndClock" }
func (TimeConf) String() string         { return "TimeConf" }

func (TimeAndTemp) rows(r Reading, toggle bool) (Row, Row) {
	return tempRow(r.Temperature), timeSecondRow(r.Time)
}

func (TempAndHumidity) rows(r Reading, toggle bool) (Row, Row) {
	return tempRow(r.Temperature), humidityRow(r.Humidity)
}

func (TimeOnly) rows(r Reading, toggle bool) (Row, Row) {
	return timeFirstRow(r.Time), emptyRow
}

func (TempHumiAndClock) rows(r Reading, toggle bool) (Row, Row) {
	if toggle {
		return TempAndHumidity{}.rows(r, toggle)
	}
	return TimeOnly{}.rows(r, toggle)
}

func (TimeConf) rows(r Reading, toggle bool) (Row, Row) {
	return timeFirstRow(r.Time), emptyRow
}

// Views returns every view, in the order NextView cycles through them.
func Views() []View {
	return []View{TimeAndTemp{}, TempAndHumidity{}, TimeOnly{}, TempHumiAndClock{}, TimeConf{}}
}

// ParseView returns the view named name, ignoring case.
func ParseView(name string) (View, error) {
	for _, v := range Views() {
		if strings.EqualFold(v.String(), name) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("station: unknown view %q", name)
}

// Field is the part of the time the cursor is on.
type Field int

// Fields.
const (
	FieldNone Field = iota
	FieldHours
	FieldMinutes
	FieldSeconds
)

const fieldName = "FieldNoneFieldHoursFieldMinutesFieldSeconds"

var fieldIndex = [...]uint8{0, 9, 19, 31, 43}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldIndex)-1 {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldName[fieldIndex[f]:fieldIndex[f+1]]
}

// Address returns the set DDRAM address instruction that moves the cursor on
// the last digit of the field in the first row, or 0 for FieldNone.
func (f Field) Address() byte {
	switch f {
	case FieldHours:
		return 0x85
	case FieldMinutes:
		return 0x88
	case FieldSeconds:
		return 0x8B
	}
	return 0
}

// TimeOfDay is a time of the day as shown on the display.
type TimeOfDay struct {
	Hours, Minutes, Seconds int
}

// TimeOfDayOf returns the time of the day of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hours: t.Hour(), Minutes: t.Minute(), Seconds: t.Second()}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds)
}

// Reading is what is shown on the display.
type Reading struct {
	Humidity    uint16 // %
	Temperature ds1820.Temperature
	Time        TimeOfDay
}
