package render

import (
	"image"
	"image/draw"

	"github.com/smazurov/wavering/internal/waveform"
)

// Style holds the drawing constants of a waveform ring.
type Style struct {
	// AmplitudeScale is the outward offset in pixels of a full-scale bin.
	AmplitudeScale float64
	LineWidth      float64
	// GradientInner is the start radius of the gradient as a fraction of the ring radius.
	GradientInner float64
	// GradientOuterPad is added to the ring radius to get the end radius of the gradient.
	GradientOuterPad float64
}

// DefaultStyle returns the look of the web client.
func DefaultStyle() Style {
	return Style{
		AmplitudeScale:   100,
		LineWidth:        4,
		GradientInner:    0.8,
		GradientOuterPad: 100,
	}
}

// Renderer strokes circular waveforms onto a canvas.
type Renderer struct {
	style Style
}

// NewRenderer creates a renderer. Zero fields of style take their defaults.
func NewRenderer(style Style) *Renderer {
	def := DefaultStyle()
	if style.AmplitudeScale == 0 {
		style.AmplitudeScale = def.AmplitudeScale
	}
	if style.LineWidth <= 0 {
		style.LineWidth = def.LineWidth
	}
	if style.GradientInner == 0 {
		style.GradientInner = def.GradientInner
	}
	if style.GradientOuterPad == 0 {
		style.GradientOuterPad = def.GradientOuterPad
	}
	return &Renderer{style: style}
}

// Style returns the renderer's style.
func (r *Renderer) Style() Style { return r.style }

// Render strokes the closed trace of wf around center with a radial gradient
// running from ColorStart to ColorEnd. The interior is not filled.
func (r *Renderer) Render(c *Canvas, center Point, wf waveform.CircularWaveform) {
	path := Trace(center, wf, r.style.AmplitudeScale)
	clip := pathBounds(path, r.style.LineWidth).Intersect(c.Bounds())
	if clip.Empty() {
		return
	}

	grad := newRadialGradient(center,
		wf.Radius*r.style.GradientInner,
		wf.Radius+r.style.GradientOuterPad,
		wf.ColorStart.Colorful(), wf.ColorEnd.Colorful())

	mask := newStrokeMask(clip)
	mask.strokePath(path, r.style.LineWidth)
	coverage := image.NewAlpha(image.Rect(0, 0, clip.Dx(), clip.Dy()))
	mask.z.DrawOp = draw.Src
	mask.z.Draw(coverage, coverage.Bounds(), image.Opaque, image.Point{})
	composite(c.img, coverage, clip.Min, grad)
}

// composite blends the gradient over dst wherever coverage is non-zero.
// coverage pixel (0, 0) lands on dst at origin. Gradient colours are opaque.
func composite(dst *image.RGBA, coverage *image.Alpha, origin image.Point, grad *radialGradient) {
	b := coverage.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := coverage.Pix[y*coverage.Stride : y*coverage.Stride+b.Dx()]
		py := origin.Y + y
		for x, a := range row {
			if a == 0 {
				continue
			}
			px := origin.X + x
			src := grad.colorAt(px, py)
			i := dst.PixOffset(px, py)
			d := dst.Pix[i : i+4 : i+4]
			if a == 0xff {
				d[0], d[1], d[2], d[3] = src.R, src.G, src.B, 0xff
				continue
			}
			d[0] = blend(src.R, d[0], a)
			d[1] = blend(src.G, d[1], a)
			d[2] = blend(src.B, d[2], a)
			d[3] = blend(0xff, d[3], a)
		}
	}
}

// blend is Porter-Duff over for one premultiplied channel at coverage a.
func blend(src, dst, a uint8) uint8 {
	return uint8((uint32(src)*uint32(a) + uint32(dst)*(0xff-uint32(a)) + 0x7f) / 0xff)
}
