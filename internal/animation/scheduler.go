// Package animation drives per-frame redraws of the surface.
package animation

import (
	"sync"
	"time"
)

// Scheduler runs callbacks on the next frame. Each Schedule call runs its
// callback at most once; Stop cancels pending callbacks and ends the schedule.
type Scheduler interface {
	Schedule(fn func())
	Stop()
}

// TickerScheduler runs scheduled callbacks on a fixed-rate ticker, one batch
// per tick, on a single goroutine.
type TickerScheduler struct {
	interval time.Duration

	mu      sync.Mutex
	pending []func()
	started bool
	stopped bool
	done    chan struct{}
}

// NewTickerScheduler creates a scheduler ticking fps times per second.
func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = 30
	}
	return &TickerScheduler{
		interval: time.Second / time.Duration(fps),
		done:     make(chan struct{}),
	}
}

// Interval returns the frame period.
func (s *TickerScheduler) Interval() time.Duration { return s.interval }

// Schedule implements Scheduler. Calls after Stop are ignored.
func (s *TickerScheduler) Schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.pending = append(s.pending, fn)
	if !s.started {
		s.started = true
		go s.run()
	}
}

// Stop implements Scheduler.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.pending = nil
	close(s.done)
}

func (s *TickerScheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			for _, fn := range s.take() {
				fn()
			}
		}
	}
}

func (s *TickerScheduler) take() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	fns := s.pending
	s.pending = nil
	return fns
}

// ManualScheduler runs callbacks only when Tick is called. Used by tests and
// by one-shot renders that need no clock.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []func()
	stopped bool
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule implements Scheduler.
func (s *ManualScheduler) Schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.pending = append(s.pending, fn)
	}
}

// Stop implements Scheduler.
func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.pending = nil
	s.mu.Unlock()
}

// Tick runs the callbacks pending at the time of the call and returns how
// many ran. Callbacks scheduled during the tick wait for the next one.
func (s *ManualScheduler) Tick() int {
	s.mu.Lock()
	fns := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Pending returns the number of callbacks waiting for the next tick.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
