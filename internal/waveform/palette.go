package waveform

import (
	"math/rand/v2"
	"sync"
)

// Saturation and lightness of captured waveforms. Both ends stay bright enough
// to read against the black background.
const (
	startLightness = 0.70
	endLightness   = 0.40
	fullSaturation = 1.0
)

// Palette assigns colour pairs to captured waveforms from a seedable source,
// so a fixed seed reproduces the same sequence of colours.
type Palette struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPalette creates a palette seeded with seed.
func NewPalette(seed uint64) *Palette {
	return &Palette{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Pair returns a start/end colour pair with two independent uniform hues.
func (p *Palette) Pair() (start, end Color) {
	p.mu.Lock()
	h1 := p.rng.Float64() * 360
	h2 := p.rng.Float64() * 360
	p.mu.Unlock()
	return HSL(h1, fullSaturation, startLightness), HSL(h2, fullSaturation, endLightness)
}

// LivePair returns the fixed colours of the in-progress waveform.
func LivePair() (start, end Color) {
	return HSL(200, fullSaturation, 0.70), HSL(340, fullSaturation, 0.70)
}
