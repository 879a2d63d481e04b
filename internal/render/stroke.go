package render

import (
	"image"
	"math"

	"golang.org/x/image/vector"
)

// joinSides is the polygon resolution of the round joins between segments.
const joinSides = 12

// strokeMask accumulates the outline of a stroked path in a rasterizer sized
// to clip. The rasterizer's origin is clip.Min.
type strokeMask struct {
	z    *vector.Rasterizer
	clip image.Rectangle
}

func newStrokeMask(clip image.Rectangle) *strokeMask {
	return &strokeMask{z: vector.NewRasterizer(clip.Dx(), clip.Dy()), clip: clip}
}

// strokePath adds every segment of p as a quad of the given width plus a
// round join at each vertex.
func (m *strokeMask) strokePath(p Path, width float64) {
	half := width / 2
	for _, seg := range p.Segments() {
		m.segment(seg[0], seg[1], half)
	}
	for _, pt := range p.Points {
		m.disc(pt, half)
	}
}

func (m *strokeMask) segment(a, b Point, half float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length < 1e-9 {
		return
	}
	nx, ny := -dy/length*half, dx/length*half
	m.polygon([]Point{
		{a.X + nx, a.Y + ny},
		{b.X + nx, b.Y + ny},
		{b.X - nx, b.Y - ny},
		{a.X - nx, a.Y - ny},
	})
}

func (m *strokeMask) disc(c Point, r float64) {
	pts := make([]Point, joinSides)
	for i := range pts {
		a := float64(i) / joinSides * 2 * math.Pi
		pts[i] = Point{c.X + r*math.Cos(a), c.Y + r*math.Sin(a)}
	}
	m.polygon(pts)
}

// polygon adds a closed polygon. All polygons are wound the same way so that
// overlapping pieces union instead of cancelling.
func (m *strokeMask) polygon(pts []Point) {
	if signedArea(pts) < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	for i, p := range pts {
		x, y := m.local(p)
		if i == 0 {
			m.z.MoveTo(x, y)
		} else {
			m.z.LineTo(x, y)
		}
	}
	m.z.ClosePath()
}

func (m *strokeMask) local(p Point) (float32, float32) {
	x := clampFloat(p.X-float64(m.clip.Min.X), 0, float64(m.clip.Dx()))
	y := clampFloat(p.Y-float64(m.clip.Min.Y), 0, float64(m.clip.Dy()))
	return float32(x), float32(y)
}

func signedArea(pts []Point) float64 {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}

// pathBounds returns the pixel rectangle covered by p stroked at width.
func pathBounds(p Path, width float64) image.Rectangle {
	if len(p.Points) == 0 {
		return image.Rectangle{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range p.Points {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}
	pad := width/2 + 1
	return image.Rect(
		int(math.Floor(minX-pad)), int(math.Floor(minY-pad)),
		int(math.Ceil(maxX+pad)), int(math.Ceil(maxY+pad)),
	)
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
