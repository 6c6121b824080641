// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/ansi256"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/weatherstation/delay/delaytest"
)

func nibble(t *testing.T, c *Controller, rs bool, n byte) {
	if err := c.RS().Out(gpio.Level(rs)); err != nil {
		t.Fatal(err)
	}
	for i, p := range c.Data() {
		if err := p.Out(gpio.Level(n>>i&1 == 1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.E().Out(gpio.High); err != nil {
		t.Fatal(err)
	}
	if c.Clock != nil {
		c.Clock.Sleep(time.Microsecond)
	}
	if err := c.E().Out(gpio.Low); err != nil {
		t.Fatal(err)
	}
}

func send(t *testing.T, c *Controller, rs bool, b byte) {
	nibble(t, c, rs, b>>4)
	nibble(t, c, rs, b&0x0f)
}

// ready returns a controller switched to 4-bit mode with the display on.
func ready(t *testing.T) *Controller {
	c := New()
	nibble(t, c, false, 0x3)
	nibble(t, c, false, 0x3)
	nibble(t, c, false, 0x2)
	send(t, c, false, 0x28)
	send(t, c, false, 0x0c)
	c.ClearLog()
	return c
}

func TestNew(t *testing.T) {
	c := New()
	if c.FourBit() || c.DisplayOn() || c.TwoLines() {
		t.Fatal("expected power-on state")
	}
	if got := c.Text(0); got != strings.Repeat(" ", Cols) {
		t.Fatalf("%q", got)
	}
	if got := c.Data()[3].String(); !strings.Contains(got, "D7") {
		t.Fatal(got)
	}
}

func TestController_modeSwitch(t *testing.T) {
	c := New()
	nibble(t, c, false, 0x3)
	nibble(t, c, false, 0x3)
	if c.FourBit() {
		t.Fatal("expected 8-bit mode")
	}
	nibble(t, c, false, 0x2)
	if !c.FourBit() {
		t.Fatal("expected 4-bit mode")
	}
	send(t, c, false, 0x28)
	if !c.TwoLines() {
		t.Fatal("expected 2 lines")
	}
	if diff := cmp.Diff([]byte{0x30, 0x30, 0x20, 0x28}, c.Instructions()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if n := c.Nibbles(); n != 5 {
		t.Fatal(n)
	}
}

func TestController_write(t *testing.T) {
	c := ready(t)
	for _, b := range []byte("Hi") {
		send(t, c, true, b)
	}
	if got := c.Text(0); got != "Hi              " {
		t.Fatalf("%q", got)
	}
	if a := c.CursorAddress(); a != 2 {
		t.Fatal(a)
	}
	send(t, c, false, 0xc0)
	send(t, c, true, 0xdf)
	if got := c.Text(1); got != "°               " {
		t.Fatalf("%q", got)
	}
	if diff := cmp.Diff([]byte{'H', 'i', 0xdf}, c.Written()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{0xc0}, c.Instructions()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestController_wrap(t *testing.T) {
	c := ready(t)
	send(t, c, false, 0x80|(LineLength-1))
	send(t, c, true, 'a')
	if a := c.CursorAddress(); a != Line2 {
		t.Fatalf("%#x", a)
	}
	send(t, c, true, 'b')
	if got := c.Line(1)[0]; got != 'b' {
		t.Fatalf("%q", got)
	}
	// Cursor shift left from the first position of line 2.
	send(t, c, false, 0x80|Line2)
	send(t, c, false, 0x10)
	if a := c.CursorAddress(); a != LineLength-1 {
		t.Fatalf("%#x", a)
	}
}

func TestController_homeClear(t *testing.T) {
	c := ready(t)
	send(t, c, false, 0x85)
	send(t, c, true, 'x')
	send(t, c, false, 0x02)
	if a := c.CursorAddress(); a != 0 {
		t.Fatal(a)
	}
	if got := c.Line(0)[5]; got != 'x' {
		t.Fatalf("%q", got)
	}
	send(t, c, false, 0x01)
	if got := c.Text(0); got != strings.Repeat(" ", Cols) {
		t.Fatalf("%q", got)
	}
}

func TestController_displayControl(t *testing.T) {
	c := ready(t)
	send(t, c, false, 0x0f)
	if !c.DisplayOn() || !c.CursorOn() || !c.Blinking() {
		t.Fatal("expected blinking cursor")
	}
	send(t, c, false, 0x08)
	if c.DisplayOn() || c.CursorOn() || c.Blinking() {
		t.Fatal("expected display off")
	}
}

func TestController_enablePulse(t *testing.T) {
	c := New()
	c.Clock = &delaytest.Clock{}
	nibble(t, c, false, 0x3)
	if d := c.MinEnablePulse(); d != time.Microsecond {
		t.Fatal(d)
	}
}

func TestPin_Read(t *testing.T) {
	c := New()
	if err := c.RS().Out(gpio.High); err != nil {
		t.Fatal(err)
	}
	if l := c.rsPin.Read(); l != gpio.High {
		t.Fatal(l)
	}
	if l := c.dataPin[2].Read(); l != gpio.Low {
		t.Fatal(l)
	}
}

func TestGlyph(t *testing.T) {
	data := []struct {
		b    byte
		want rune
	}{
		{'A', 'A'},
		{' ', ' '},
		{0xdf, '°'},
		{0x00, '?'},
		{0xff, '?'},
	}
	for _, line := range data {
		if got := Glyph(line.b); got != line.want {
			t.Errorf("Glyph(%#x) = %q; want %q", line.b, got, line.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	c := ready(t)
	for _, b := range []byte("Hello") {
		send(t, c, true, b)
	}
	buf := bytes.Buffer{}
	term := NewTerminal(&buf, ansi256.Default)
	if s := term.String(); s != "lcdsim.Terminal" {
		t.Fatal(s)
	}
	if err := term.Render(c); err != nil {
		t.Fatal(err)
	}
	first := buf.String()
	if !strings.Contains(first, "Hello           ") {
		t.Fatalf("%q", first)
	}
	if strings.HasPrefix(first, "\033[4A") {
		t.Fatal("first rendering must not move the cursor up")
	}
	if n := strings.Count(first, "\n"); n != 4 {
		t.Fatal(n)
	}
	buf.Reset()
	if err := term.Render(c); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "\033[4A") {
		t.Fatalf("%q", buf.String())
	}
	buf.Reset()
	if err := term.Halt(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "\033[0m" {
		t.Fatalf("%q", buf.String())
	}
}

func TestTerminal_cursor(t *testing.T) {
	c := ready(t)
	send(t, c, false, 0x0f)
	send(t, c, false, 0x83)
	buf := bytes.Buffer{}
	if err := NewTerminal(&buf, nil).Render(c); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\033[7m"); n != 1 {
		t.Fatalf("%d highlighted cells in %q", n, buf.String())
	}
}

func TestEncodePNG(t *testing.T) {
	c := ready(t)
	for _, b := range []byte("20.5\xdfC") {
		send(t, c, true, b)
	}
	buf := bytes.Buffer{}
	if err := EncodePNG(c, &buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Bounds, img.Bounds()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	// The frame corner is outside the backlight.
	if r, g, b, _ := img.At(0, 0).RGBA(); r == g && g == b && r > 0x8000 {
		t.Fatal("unexpected frame color")
	}
}
