package render

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const gradientSteps = 256

// radialGradient colours pixels by their distance from its centre.
// Distances inside inner take the start colour, beyond outer the end colour,
// and in between an RGB blend.
type radialGradient struct {
	cx, cy       float64
	inner, outer float64
	lut          [gradientSteps]color.RGBA
}

func newRadialGradient(center Point, inner, outer float64, start, end colorful.Color) *radialGradient {
	g := &radialGradient{cx: center.X, cy: center.Y, inner: inner, outer: outer}
	for i := range g.lut {
		t := float64(i) / (gradientSteps - 1)
		r, gr, b := start.BlendRgb(end, t).Clamped().RGB255()
		g.lut[i] = color.RGBA{R: r, G: gr, B: b, A: 0xff}
	}
	return g
}

// colorAt returns the colour at the centre of pixel (x, y).
func (g *radialGradient) colorAt(x, y int) color.RGBA {
	return g.lut[g.index(float64(x)+0.5, float64(y)+0.5)]
}

func (g *radialGradient) index(x, y float64) int {
	span := g.outer - g.inner
	if span <= 0 {
		return gradientSteps - 1
	}
	t := (math.Hypot(x-g.cx, y-g.cy) - g.inner) / span
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return gradientSteps - 1
	default:
		return int(t*(gradientSteps-1) + 0.5)
	}
}
