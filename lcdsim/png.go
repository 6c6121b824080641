// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Character cell and frame of the rendered image, in pixels.
const (
	cellW  = 8
	cellH  = 16
	margin = 12
)

// Bounds is the size of the images produced by Draw.
var Bounds = image.Rect(0, 0, Cols*cellW+2*margin, 2*cellH+2*margin)

// Draw renders the visible lines of c as an image of a backlit LCD.
func Draw(c *Controller) image.Image {
	dc := gg.NewContext(Bounds.Dx(), Bounds.Dy())
	dc.SetRGB(0.15, 0.15, 0.15)
	dc.Clear()
	dc.SetColor(Backlight)
	dc.DrawRoundedRectangle(4, 4, float64(Bounds.Dx()-8), float64(Bounds.Dy()-8), 6)
	dc.Fill()
	if !c.DisplayOn() {
		return dc.Image()
	}

	ink := color.NRGBA{R: 0x1e, G: 0x2a, B: 0x10, A: 0xff}
	ac := c.CursorAddress()
	blink := c.Blinking() || c.CursorOn()
	for n := range 2 {
		for i := range Cols {
			if blink && ac == byte(n*Line2+i) {
				dc.SetColor(ink)
				dc.DrawRectangle(float64(margin+i*cellW), float64(margin+n*cellH), cellW-1, cellH-1)
				dc.Fill()
			}
		}
	}

	img := dc.Image().(draw.Image)
	f := basicfont.Face7x13
	for n := range 2 {
		drawer := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(ink),
			Face: f,
		}
		for i, r := range []rune(c.Text(n)) {
			if blink && ac == byte(n*Line2+i) {
				drawer.Src = image.NewUniform(Backlight)
			} else {
				drawer.Src = image.NewUniform(ink)
			}
			drawer.Dot = fixed.P(margin+i*cellW, margin+n*cellH+f.Ascent+2)
			drawer.DrawString(string(r))
		}
	}
	return img
}

// EncodePNG writes the rendering of c to w in PNG format.
func EncodePNG(c *Controller, w io.Writer) error {
	dc := gg.NewContextForImage(Draw(c))
	return dc.EncodePNG(w)
}
