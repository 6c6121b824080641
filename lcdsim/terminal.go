// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Backlight is the yellow-green of a common 1602 module.
var Backlight = color.NRGBA{R: 0x9c, G: 0xc2, B: 0x2e, A: 0xff}

// Terminal draws a Controller's visible lines on a terminal using ANSI color
// codes, framed with the backlight color.
type Terminal struct {
	w       io.Writer
	palette *ansi256.Palette
	buf     bytes.Buffer
	drawn   bool
}

// NewTerminal returns a Terminal writing to w, or to stdout when w is nil.
// palette defaults to ansi256.Default.
func NewTerminal(w io.Writer, palette *ansi256.Palette) *Terminal {
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	if palette == nil {
		palette = ansi256.Default
	}
	return &Terminal{w: w, palette: palette}
}

func (t *Terminal) String() string {
	return "lcdsim.Terminal"
}

// Render draws the display, over the previous drawing if any.
func (t *Terminal) Render(c *Controller) error {
	// This code is designed to minimize the amount of memory allocated per call.
	t.buf.Reset()
	if t.drawn {
		_, _ = t.buf.WriteString("\033[4A")
	}
	block := t.palette.Block(Backlight)
	border := strings.Repeat(block, Cols+2)
	_, _ = fmt.Fprintf(&t.buf, "\r\033[0m%s\033[0m\n", border)
	ac := c.CursorAddress()
	blink := c.Blinking() || c.CursorOn()
	on := c.DisplayOn()
	for n := range 2 {
		_, _ = t.buf.WriteString(block)
		_, _ = t.buf.WriteString("\033[0m")
		for i, r := range []rune(c.Text(n)) {
			switch {
			case !on:
				_ = t.buf.WriteByte(' ')
			case blink && ac == byte(n*Line2+i):
				_, _ = fmt.Fprintf(&t.buf, "\033[7m%c\033[0m", r)
			default:
				_, _ = t.buf.WriteRune(r)
			}
		}
		_, _ = t.buf.WriteString(block)
		_, _ = t.buf.WriteString("\033[0m\n")
	}
	_, _ = fmt.Fprintf(&t.buf, "%s\033[0m\n", border)
	_, err := t.buf.WriteTo(t.w)
	t.drawn = true
	return err
}

// Halt resets the terminal colors.
func (t *Terminal) Halt() error {
	_, err := t.w.Write([]byte("\033[0m"))
	return err
}
