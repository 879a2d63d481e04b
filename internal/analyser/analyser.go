// Package analyser turns blocks of PCM samples into byte frequency magnitudes.
//
// The output matches the conventions of a browser AnalyserNode: a Blackman
// window, magnitudes normalised by the FFT size, exponential smoothing over
// time and a decibel range mapped onto 0..255.
package analyser

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultFFTSize               = 256
	DefaultSmoothingTimeConstant = 0.8
	DefaultMinDecibels           = -100.0
	DefaultMaxDecibels           = -30.0
)

// ErrInvalidFFTSize is returned for sizes that are not a power of two in [32, 32768].
var ErrInvalidFFTSize = errors.New("fft size must be a power of two between 32 and 32768")

// Options tunes the analyser. Zero values select the defaults.
type Options struct {
	FFTSize   int
	Smoothing float64
	MinDB     float64
	MaxDB     float64
}

// Analyser holds the smoothing state between calls.
type Analyser struct {
	mu        sync.Mutex
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64
	window    []float64
	scratch   []float64
	smoothed  []float64
}

// New creates an analyser for the given FFT size with default smoothing and range.
func New(fftSize int) (*Analyser, error) {
	return NewWithOptions(Options{FFTSize: fftSize})
}

// NewWithOptions creates an analyser from opts.
func NewWithOptions(opts Options) (*Analyser, error) {
	if opts.FFTSize == 0 {
		opts.FFTSize = DefaultFFTSize
	}
	if !validSize(opts.FFTSize) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFFTSize, opts.FFTSize)
	}
	if opts.Smoothing == 0 {
		opts.Smoothing = DefaultSmoothingTimeConstant
	}
	if opts.Smoothing < 0 || opts.Smoothing > 1 {
		return nil, fmt.Errorf("smoothing must be in [0, 1], got %g", opts.Smoothing)
	}
	if opts.MinDB == 0 && opts.MaxDB == 0 {
		opts.MinDB, opts.MaxDB = DefaultMinDecibels, DefaultMaxDecibels
	}
	if opts.MinDB >= opts.MaxDB {
		return nil, fmt.Errorf("min decibels (%g) must be below max decibels (%g)", opts.MinDB, opts.MaxDB)
	}

	return &Analyser{
		fftSize:   opts.FFTSize,
		smoothing: opts.Smoothing,
		minDB:     opts.MinDB,
		maxDB:     opts.MaxDB,
		window:    window.Blackman(opts.FFTSize),
		scratch:   make([]float64, opts.FFTSize),
		smoothed:  make([]float64, opts.FFTSize/2),
	}, nil
}

// FFTSize returns the transform size.
func (a *Analyser) FFTSize() int { return a.fftSize }

// BinCount returns the number of frequency bins, half the FFT size.
func (a *Analyser) BinCount() int { return a.fftSize / 2 }

// ByteFrequencyData analyses the most recent FFTSize samples and writes one
// byte per bin into dst. Short input is zero-padded at the front. dst may be
// shorter than BinCount, in which case the extra bins are dropped.
func (a *Analyser) ByteFrequencyData(samples []float64, dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.scratch {
		a.scratch[i] = 0
	}
	if len(samples) > a.fftSize {
		samples = samples[len(samples)-a.fftSize:]
	}
	copy(a.scratch[a.fftSize-len(samples):], samples)
	floats.Mul(a.scratch, a.window)

	spectrum := fft.FFTReal(a.scratch)
	scale := 1 / float64(a.fftSize)
	k := a.smoothing

	for i := range a.smoothed {
		mag := cmplx.Abs(spectrum[i]) * scale
		a.smoothed[i] = k*a.smoothed[i] + (1-k)*mag
		if i < len(dst) {
			dst[i] = a.toByte(a.smoothed[i])
		}
	}
}

// Reset clears the smoothing history.
func (a *Analyser) Reset() {
	a.mu.Lock()
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
	a.mu.Unlock()
}

func (a *Analyser) toByte(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	scaled := 255 * (db - a.minDB) / (a.maxDB - a.minDB)
	switch {
	case scaled <= 0:
		return 0
	case scaled >= 255:
		return 255
	default:
		return byte(scaled)
	}
}

func validSize(n int) bool {
	return n >= 32 && n <= 32768 && n&(n-1) == 0
}
