// Package colorutil provides shared colors and the sequential colormap used
// for confusion-matrix heatmaps.
package colorutil

import (
	"image/color"
	"math"
)

// Common colors used throughout the application.
var (
	Black     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red       = color.RGBA{R: 220, G: 20, B: 20, A: 255}
	LightGray = color.RGBA{R: 224, G: 224, B: 224, A: 255}
)

// blues are the ColorBrewer sequential Blues stops, light to dark.
var blues = []color.RGBA{
	{0xf7, 0xfb, 0xff, 0xff},
	{0xde, 0xeb, 0xf7, 0xff},
	{0xc6, 0xdb, 0xef, 0xff},
	{0x9e, 0xca, 0xe1, 0xff},
	{0x6b, 0xae, 0xd6, 0xff},
	{0x42, 0x92, 0xc6, 0xff},
	{0x21, 0x71, 0xb5, 0xff},
	{0x08, 0x51, 0x9c, 0xff},
	{0x08, 0x30, 0x6b, 0xff},
}

// Blues maps t in [0, 1] onto the Blues colormap. Values outside the range
// are clamped.
func Blues(t float64) color.RGBA {
	if math.IsNaN(t) || t <= 0 {
		return blues[0]
	}
	if t >= 1 {
		return blues[len(blues)-1]
	}
	pos := t * float64(len(blues)-1)
	i := int(pos)
	return Lerp(blues[i], blues[i+1], pos-float64(i))
}

// Lerp blends a towards b by f in [0, 1].
func Lerp(a, b color.RGBA, f float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// Luminance returns the relative luminance (0-1) of c.
func Luminance(c color.RGBA) float64 {
	return (0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)) / 255
}

// TextOn returns black or white, whichever reads better on background bg.
func TextOn(bg color.RGBA) color.RGBA {
	if Luminance(bg) < 0.5 {
		return White
	}
	return Black
}
