package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/wavering/internal/publish"
)

// Memory keeps records in process memory. Used when no database path is
// configured and in tests.
type Memory struct {
	mu      sync.Mutex
	records []publish.WaveformRecord
	closed  bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Insert(_ context.Context, email *string, imageData string, createdAt time.Time) (publish.WaveformRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return publish.WaveformRecord{}, ErrClosed
	}

	rec := publish.WaveformRecord{
		ID:        int64(len(m.records) + 1),
		ImageData: imageData,
		CreatedAt: createdAt.UTC(),
	}
	if email != nil {
		e := *email
		rec.Email = &e
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *Memory) List(context.Context) ([]publish.WaveformRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	out := slices.Clone(m.records)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b publish.WaveformRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// Close makes further operations fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
