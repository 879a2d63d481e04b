// Package render draws circular waveforms onto an in-memory raster surface.
package render

import (
	"math"

	"github.com/smazurov/wavering/internal/waveform"
)

// Point is a position in surface pixels.
type Point struct {
	X float64
	Y float64
}

// Path is an ordered polyline. A closed path also connects its last point
// back to the first.
type Path struct {
	Points []Point
	Closed bool
}

// Segments returns the drawn line segments, including the closing seam.
func (p Path) Segments() [][2]Point {
	n := len(p.Points)
	if n < 2 {
		return nil
	}
	count := n - 1
	if p.Closed {
		count = n
	}
	segs := make([][2]Point, 0, count)
	for i := 0; i < count; i++ {
		segs = append(segs, [2]Point{p.Points[i], p.Points[(i+1)%n]})
	}
	return segs
}

// Trace lays the snapshot of wf out on a ring around center. Bin i sits at
// angle i/len*2pi, pushed outward from the base radius by its magnitude
// scaled to amplitudeScale pixels.
func Trace(center Point, wf waveform.CircularWaveform, amplitudeScale float64) Path {
	n := wf.Snapshot.Len()
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		angle := float64(i) / float64(n) * 2 * math.Pi
		amp := float64(wf.Snapshot.At(i)) / waveform.MaxMagnitude * amplitudeScale
		r := wf.Radius + amp
		points[i] = Point{
			X: center.X + r*math.Cos(angle),
			Y: center.Y + r*math.Sin(angle),
		}
	}
	return Path{Points: points, Closed: true}
}
