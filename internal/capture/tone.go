package capture

import (
	"context"
	"math"
	"sync"
	"time"
)

// ToneSource synthesises a sweeping tone instead of reading a microphone.
// It never fails with a permission error and needs no hardware, which makes
// it the source for demos and headless snapshots.
type ToneSource struct {
	SampleRate  int
	MinFreq     float64
	MaxFreq     float64
	SweepPeriod time.Duration
	Amplitude   float64
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Open implements Source.
func (s *ToneSource) Open(ctx context.Context, fftSize int) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pcm, err := newPCMAnalyser(fftSize)
	if err != nil {
		return nil, err
	}

	now := s.Now
	if now == nil {
		now = time.Now
	}
	d := &toneDevice{
		pcmAnalyser: pcm,
		rate:        float64(orDefault(s.SampleRate, 48000)),
		minFreq:     orDefaultFloat(s.MinFreq, 220),
		maxFreq:     orDefaultFloat(s.MaxFreq, 3520),
		period:      s.SweepPeriod,
		amplitude:   orDefaultFloat(s.Amplitude, 0.8),
		now:         now,
		started:     now(),
		block:       make([]float64, fftSize),
	}
	if d.period <= 0 {
		d.period = 4 * time.Second
	}
	return d, nil
}

type toneDevice struct {
	*pcmAnalyser

	rate      float64
	minFreq   float64
	maxFreq   float64
	period    time.Duration
	amplitude float64
	now       func() time.Time
	started   time.Time

	mu     sync.Mutex
	closed bool
	block  []float64
}

// FrequencyData synthesises the block of samples ending now and analyses it.
func (d *toneDevice) FrequencyData(dst []byte) {
	d.mu.Lock()
	if !d.closed {
		elapsed := d.now().Sub(d.started).Seconds()
		freq := d.frequencyAt(elapsed)
		for n := range d.block {
			t := elapsed + float64(n)/d.rate
			phase := 2 * math.Pi * freq * t
			d.block[n] = d.amplitude * (0.7*math.Sin(phase) + 0.3*math.Sin(2*phase))
		}
		d.ring.Write(d.block)
	}
	d.mu.Unlock()
	d.pcmAnalyser.FrequencyData(dst)
}

// frequencyAt sweeps logarithmically between min and max and back over one period.
func (d *toneDevice) frequencyAt(seconds float64) float64 {
	pos := 0.5 - 0.5*math.Cos(2*math.Pi*seconds/d.period.Seconds())
	return d.minFreq * math.Pow(d.maxFreq/d.minFreq, pos)
}

func (d *toneDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultFloat(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
