package waveform

import (
	"errors"
	"fmt"
)

// ErrNegativeRadius is returned when a waveform is built with a radius below zero.
var ErrNegativeRadius = errors.New("waveform radius must be >= 0")

// CircularWaveform is a frequency snapshot laid out on a ring.
// Fields are read-only after construction.
type CircularWaveform struct {
	Snapshot   FrequencySnapshot
	Radius     float64
	ColorStart Color
	ColorEnd   Color
}

// NewCircularWaveform validates and builds a waveform.
func NewCircularWaveform(snapshot FrequencySnapshot, radius float64, start, end Color) (CircularWaveform, error) {
	if radius < 0 {
		return CircularWaveform{}, fmt.Errorf("%w: got %g", ErrNegativeRadius, radius)
	}
	if snapshot.Len() < 2 {
		return CircularWaveform{}, fmt.Errorf("%w: got %d", ErrInvalidSnapshotLength, snapshot.Len())
	}
	return CircularWaveform{
		Snapshot:   snapshot,
		Radius:     radius,
		ColorStart: start,
		ColorEnd:   end,
	}, nil
}

// Layout staggers rings outward so stored waveforms nest without overlapping.
type Layout struct {
	BaseRadius float64
	RadiusStep float64
}

// DefaultLayout matches the ring spacing of the web client.
func DefaultLayout() Layout {
	return Layout{BaseRadius: 50, RadiusStep: 30}
}

// RadiusFor returns the base radius of the ring at the given gallery index.
func (l Layout) RadiusFor(index int) float64 {
	return l.BaseRadius + float64(index)*l.RadiusStep
}
