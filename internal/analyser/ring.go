package analyser

import "sync"

// RingBuffer keeps the most recent PCM samples. Writers push decoded samples,
// readers pull a window of the latest ones.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []float64
	pos   int
	count int
}

// NewRingBuffer creates a buffer holding up to size samples.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{buf: make([]float64, size)}
}

// Write appends samples, overwriting the oldest when full.
func (r *RingBuffer) Write(samples []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(samples) >= len(r.buf) {
		copy(r.buf, samples[len(samples)-len(r.buf):])
		r.pos = 0
		r.count = len(r.buf)
		return
	}
	for _, s := range samples {
		r.buf[r.pos] = s
		r.pos = (r.pos + 1) % len(r.buf)
	}
	r.count = min(r.count+len(samples), len(r.buf))
}

// Latest copies the newest len(dst) samples into dst in chronological order
// and returns how many were available. When fewer samples exist, the tail of
// dst is filled and the head left untouched.
func (r *RingBuffer) Latest(dst []float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := min(len(dst), r.count)
	start := (r.pos - n + len(r.buf)) % len(r.buf)
	off := len(dst) - n
	for i := 0; i < n; i++ {
		dst[off+i] = r.buf[(start+i)%len(r.buf)]
	}
	return n
}

// Len returns the number of buffered samples.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Reset drops all buffered samples.
func (r *RingBuffer) Reset() {
	r.mu.Lock()
	r.pos = 0
	r.count = 0
	r.mu.Unlock()
}
