// Package capture acquires audio input and drives the record/stop state machine.
package capture

import (
	"context"
	"sync"

	"github.com/smazurov/wavering/internal/analyser"
)

// Device is an open audio input with a frequency analyser attached.
type Device interface {
	// BinCount is the number of frequency bins, half the FFT size.
	BinCount() int
	// FrequencyData writes the current magnitudes into dst.
	FrequencyData(dst []byte)
	// Close stops the input and releases the hardware.
	Close() error
}

// Source opens devices. Open may fail with ErrPermissionDenied or
// ErrDeviceUnavailable.
type Source interface {
	Open(ctx context.Context, fftSize int) (Device, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, fftSize int) (Device, error)

// Open implements Source.
func (f SourceFunc) Open(ctx context.Context, fftSize int) (Device, error) {
	return f(ctx, fftSize)
}

// pcmAnalyser pairs a sample ring with an analyser. Devices push samples in,
// FrequencyData pulls the newest window out.
type pcmAnalyser struct {
	ring     *analyser.RingBuffer
	analyser *analyser.Analyser

	mu     sync.Mutex
	window []float64
}

func newPCMAnalyser(fftSize int) (*pcmAnalyser, error) {
	a, err := analyser.New(fftSize)
	if err != nil {
		return nil, err
	}
	return &pcmAnalyser{
		ring:     analyser.NewRingBuffer(fftSize * 4),
		analyser: a,
		window:   make([]float64, fftSize),
	}, nil
}

func (p *pcmAnalyser) BinCount() int { return p.analyser.BinCount() }

func (p *pcmAnalyser) FrequencyData(dst []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.window {
		p.window[i] = 0
	}
	p.ring.Latest(p.window)
	p.analyser.ByteFrequencyData(p.window, dst)
}
