// Package waveform holds the immutable data model of the visualizer: frequency
// snapshots, circular waveforms, their colours and the capture-order gallery.
package waveform

import (
	"errors"
	"fmt"
)

// ErrInvalidSnapshotLength is returned when a snapshot is not a power of two >= 2.
var ErrInvalidSnapshotLength = errors.New("snapshot length must be a power of two >= 2")

// MaxMagnitude is the largest value a frequency bin can hold.
const MaxMagnitude = 255

// FrequencySnapshot is one instant of per-bin byte magnitudes, in bin order.
// The zero value is an empty snapshot and is never produced by a device.
type FrequencySnapshot struct {
	bins []byte
}

// NewFrequencySnapshot copies bins into a new snapshot.
func NewFrequencySnapshot(bins []byte) (FrequencySnapshot, error) {
	if !IsPowerOfTwo(len(bins)) || len(bins) < 2 {
		return FrequencySnapshot{}, fmt.Errorf("%w: got %d", ErrInvalidSnapshotLength, len(bins))
	}
	owned := make([]byte, len(bins))
	copy(owned, bins)
	return FrequencySnapshot{bins: owned}, nil
}

// FilledSnapshot returns a snapshot of n bins all set to value.
func FilledSnapshot(n int, value byte) (FrequencySnapshot, error) {
	bins := make([]byte, n)
	for i := range bins {
		bins[i] = value
	}
	return NewFrequencySnapshot(bins)
}

// Len returns the number of frequency bins.
func (s FrequencySnapshot) Len() int {
	return len(s.bins)
}

// At returns the magnitude of bin i.
func (s FrequencySnapshot) At(i int) byte {
	return s.bins[i]
}

// Bytes returns a copy of the bins.
func (s FrequencySnapshot) Bytes() []byte {
	out := make([]byte, len(s.bins))
	copy(out, s.bins)
	return out
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
