package waveform

import "sync"

// Gallery is the in-memory, append-only list of captured waveforms for a session.
// Insertion order is capture order. There is no removal; capacity is bounded
// only by memory.
type Gallery struct {
	mu    sync.RWMutex
	items []CircularWaveform
}

// NewGallery creates an empty gallery.
func NewGallery() *Gallery {
	return &Gallery{}
}

// Append stores a waveform at the end of the gallery.
func (g *Gallery) Append(wf CircularWaveform) {
	g.mu.Lock()
	g.items = append(g.items, wf)
	g.mu.Unlock()
}

// All returns the stored waveforms in capture order.
// The returned slice is a copy; mutating it does not affect the gallery.
func (g *Gallery) All() []CircularWaveform {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]CircularWaveform, len(g.items))
	copy(out, g.items)
	return out
}

// Count returns the number of stored waveforms.
func (g *Gallery) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.items)
}
