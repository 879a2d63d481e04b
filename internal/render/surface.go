package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
)

// PNGDataURIPrefix prefixes every exported data URI.
const PNGDataURIPrefix = "data:image/png;base64,"

var (
	// ErrExport is returned when the surface cannot be encoded.
	ErrExport = errors.New("surface export failed")
	// ErrInvalidSize is returned for surfaces with a non-positive dimension.
	ErrInvalidSize = errors.New("surface dimensions must be positive")
)

// Canvas is the drawable raster handed to a frame.
type Canvas struct {
	img *image.RGBA
}

// Bounds returns the canvas rectangle.
func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

// Center returns the pixel centre of the canvas.
func (c *Canvas) Center() Point {
	b := c.img.Bounds()
	return Point{X: float64(b.Dx()) / 2, Y: float64(b.Dy()) / 2}
}

// Clear paints every pixel opaquely with col.
func (c *Canvas) Clear(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// Surface is a fixed-size raster shared by the animation loop and exporters.
// Each frame and each export holds the surface lock, so an export never sees
// a partially drawn frame.
type Surface struct {
	mu     sync.Mutex
	canvas *Canvas
}

// NewSurface creates a transparent width x height surface.
func NewSurface(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return &Surface{canvas: &Canvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}}, nil
}

// Size returns the surface dimensions.
func (s *Surface) Size() (width, height int) {
	b := s.canvas.img.Bounds()
	return b.Dx(), b.Dy()
}

// Frame runs fn with exclusive access to the canvas.
func (s *Surface) Frame(fn func(*Canvas)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.canvas)
}

// Snapshot returns a copy of the current raster.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.canvas.img
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// Export encodes the last completed frame as PNG. Identical surface contents
// always encode to identical bytes.
func (s *Surface) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, s.canvas.img); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	return buf.Bytes(), nil
}

// ExportDataURI encodes the surface as a base64 PNG data URI.
func (s *Surface) ExportDataURI() (string, error) {
	raw, err := s.Export()
	if err != nil {
		return "", err
	}
	return PNGDataURIPrefix + base64.StdEncoding.EncodeToString(raw), nil
}
