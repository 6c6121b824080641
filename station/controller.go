// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package station

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/weatherstation/ds1820"
)

// Thermometer reads a temperature. It is implemented by *ds1820.Dev.
type Thermometer interface {
	Temperature() (ds1820.Temperature, error)
}

// ControllerOpts contains the cadences of the Controller.
type ControllerOpts struct {
	RefreshInterval time.Duration // display refresh
	PollInterval    time.Duration // sensors read
	ToggleInterval  time.Duration // TempHumiAndClock alternation
	// Now defaults to time.Now.
	Now func() time.Time
	// Logger defaults to log.Default().
	Logger *log.Logger
}

// DefaultControllerOpts is the recommended cadence.
var DefaultControllerOpts = ControllerOpts{
	RefreshInterval: 500 * time.Millisecond,
	PollInterval:    2 * time.Second,
	ToggleInterval:  3 * time.Second,
}

// Controller owns the view and cursor selection and keeps the display up to
// date with the sensors.
type Controller struct {
	disp  *Display
	therm Thermometer
	humi  physic.SenseEnv
	opts  ControllerOpts

	mu      sync.Mutex
	view    View
	field   Field
	toggle  bool
	reading Reading
	polled  bool
}

// NewController returns a Controller showing TimeAndTemp on lcd.
//
// humi may be nil, the humidity is then shown as 0%.
func NewController(lcd LCD, therm Thermometer, humi physic.SenseEnv, opts *ControllerOpts) (*Controller, error) {
	if lcd == nil || therm == nil {
		return nil, errors.New("station: LCD and thermometer are required")
	}
	if opts == nil {
		opts = &DefaultControllerOpts
	}
	o := *opts
	if o.RefreshInterval <= 0 || o.PollInterval <= 0 || o.ToggleInterval <= 0 {
		return nil, fmt.Errorf("station: invalid intervals %s, %s, %s", o.RefreshInterval, o.PollInterval, o.ToggleInterval)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return &Controller{disp: NewDisplay(lcd), therm: therm, humi: humi, opts: o, view: TimeAndTemp{}}, nil
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// SetView selects the view to show.
func (c *Controller) SetView(v View) error {
	if v == nil {
		return errors.New("station: nil view")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
	return nil
}

// NextView switches to the next view in Views order and returns it.
func (c *Controller) NextView() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := Views()
	for i, v := range all {
		if v == c.view {
			c.view = all[(i+1)%len(all)]
			return c.view
		}
	}
	c.view = all[0]
	return c.view
}

// Field returns the selected time field.
func (c *Controller) Field() Field {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.field
}

// SetField selects the time field the cursor is on. The cursor is only shown
// in the TimeConf view.
func (c *Controller) SetField(f Field) error {
	if f != FieldNone && f.Address() == 0 {
		return fmt.Errorf("station: invalid cursor field %s", f)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.field = f
	return nil
}

// NextField moves the cursor to the next field: hours, minutes, seconds then
// none.
func (c *Controller) NextField() Field {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.field = (c.field + 1) % (FieldSeconds + 1)
	return c.field
}

// Toggle flips the alternation of TempHumiAndClock.
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toggle = !c.toggle
}

// Reading returns the last good sensor values.
func (c *Controller) Reading() Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reading
}

// Poll reads the sensors. On failure the previous values are kept.
func (c *Controller) Poll() error {
	t, err := c.therm.Temperature()
	if err != nil {
		return fmt.Errorf("station: temperature: %w", err)
	}
	c.mu.Lock()
	c.reading.Temperature = t
	c.polled = true
	c.mu.Unlock()
	if c.humi == nil {
		return nil
	}
	var e physic.Env
	if err := c.humi.Sense(&e); err != nil {
		return fmt.Errorf("station: humidity: %w", err)
	}
	c.mu.Lock()
	c.reading.Humidity = uint16(e.Humidity / physic.PercentRH)
	c.mu.Unlock()
	return nil
}

// Refresh renders the current view with the current time.
func (c *Controller) Refresh() error {
	now := c.opts.Now()
	c.mu.Lock()
	c.reading.Time = TimeOfDayOf(now)
	r, v, toggle := c.reading, c.view, c.toggle
	f := FieldNone
	if _, ok := v.(TimeConf); ok {
		f = c.field
	}
	c.mu.Unlock()
	return c.disp.WriteToDisplay(r, v, f, toggle)
}

// Run polls the sensors and refreshes the display until ctx is done.
//
// Errors are logged and do not stop the loop; the display keeps showing the
// last good reading.
func (c *Controller) Run(ctx context.Context) error {
	c.poll()
	c.refresh()
	refresh := time.NewTicker(c.opts.RefreshInterval)
	defer refresh.Stop()
	poll := time.NewTicker(c.opts.PollInterval)
	defer poll.Stop()
	toggle := time.NewTicker(c.opts.ToggleInterval)
	defer toggle.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			c.poll()
		case <-toggle.C:
			c.Toggle()
		case <-refresh.C:
			c.refresh()
		}
	}
}

func (c *Controller) String() string {
	return fmt.Sprintf("station.Controller{%s}", c.View())
}

func (c *Controller) poll() {
	if err := c.Poll(); err != nil {
		c.mu.Lock()
		stale := c.polled
		c.mu.Unlock()
		if stale {
			c.opts.Logger.Printf("%v; showing last reading", err)
		} else {
			c.opts.Logger.Printf("%v", err)
		}
	}
}

func (c *Controller) refresh() {
	if err := c.Refresh(); err != nil {
		c.opts.Logger.Printf("station: refresh: %v", err)
	}
}
