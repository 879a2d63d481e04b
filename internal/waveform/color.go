package waveform

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an HSL colour. H is in degrees [0, 360), S and L in [0, 1].
type Color struct {
	H float64
	S float64
	L float64
}

// HSL builds a Color, wrapping the hue and clamping saturation and lightness.
func HSL(h, s, l float64) Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return Color{H: h, S: clamp01(s), L: clamp01(l)}
}

// Colorful converts to a go-colorful colour for blending.
func (c Color) Colorful() colorful.Color {
	return colorful.Hsl(c.H, c.S, c.L).Clamped()
}

// RGBA converts to an opaque 8-bit colour.
func (c Color) RGBA() color.RGBA {
	r, g, b := c.Colorful().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// String renders the colour in CSS notation, e.g. "hsl(200, 100%, 70%)".
func (c Color) String() string {
	return fmt.Sprintf("hsl(%s, %s%%, %s%%)",
		trimFloat(c.H), trimFloat(c.S*100), trimFloat(c.L*100))
}

func trimFloat(v float64) string {
	v = math.Round(v*100) / 100
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
