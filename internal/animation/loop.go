package animation

import (
	"errors"
	"image/color"
	"sync"
	"time"

	"github.com/smazurov/wavering/internal/logging"
	"github.com/smazurov/wavering/internal/render"
	"github.com/smazurov/wavering/internal/waveform"
)

var (
	// ErrLoopRunning is returned by Start on a loop that is already running.
	ErrLoopRunning = errors.New("animation loop already running")
	// ErrLoopStopped is returned by Start after Stop.
	ErrLoopStopped = errors.New("animation loop stopped")
)

// Background is the colour every frame starts from.
var Background = color.RGBA{A: 0xff}

// LiveSource supplies the in-progress waveform, if any.
type LiveSource interface {
	LiveWaveform() (waveform.CircularWaveform, bool)
}

// FrameObserver is told about every completed frame.
type FrameObserver interface {
	ObserveFrame(d time.Duration, waveforms int)
}

// Options configures a Loop.
type Options struct {
	Scheduler Scheduler
	Surface   *render.Surface
	Renderer  *render.Renderer
	Live      LiveSource
	Gallery   *waveform.Gallery
	Observer  FrameObserver
	Logger    logging.Logger
}

// Loop redraws the surface once per scheduled frame: clear to black, draw
// the live waveform while recording, then every stored waveform in capture
// order.
type Loop struct {
	scheduler Scheduler
	surface   *render.Surface
	renderer  *render.Renderer
	live      LiveSource
	gallery   *waveform.Gallery
	observer  FrameObserver
	logger    logging.Logger

	mu      sync.Mutex
	running bool
	stopped bool
	inFrame bool
	frames  uint64
}

// NewLoop creates a stopped loop.
func NewLoop(opts Options) *Loop {
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("animation")
	}
	if opts.Renderer == nil {
		opts.Renderer = render.NewRenderer(render.DefaultStyle())
	}
	return &Loop{
		scheduler: opts.Scheduler,
		surface:   opts.Surface,
		renderer:  opts.Renderer,
		live:      opts.Live,
		gallery:   opts.Gallery,
		observer:  opts.Observer,
		logger:    opts.Logger,
	}
}

// Start schedules the first frame.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.stopped:
		return ErrLoopStopped
	case l.running:
		return ErrLoopRunning
	}
	l.running = true
	l.scheduler.Schedule(l.frame)
	l.logger.Debug("Animation loop started")
	return nil
}

// Stop cancels the pending frame. A frame already drawing completes.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.stopped = true
	frames := l.frames
	l.mu.Unlock()

	l.scheduler.Stop()
	l.logger.Debug("Animation loop stopped", "frames", frames)
}

// Frames returns the number of frames drawn so far.
func (l *Loop) Frames() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

// frame is the scheduled callback. It reschedules itself before drawing and
// ignores re-entrant calls.
func (l *Loop) frame() {
	l.mu.Lock()
	if !l.running || l.inFrame {
		l.mu.Unlock()
		return
	}
	l.inFrame = true
	l.scheduler.Schedule(l.frame)
	l.mu.Unlock()

	start := time.Now()
	drawn := l.Draw()

	l.mu.Lock()
	l.inFrame = false
	l.frames++
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.ObserveFrame(time.Since(start), drawn)
	}
}

// Draw renders one complete frame and returns the number of waveforms drawn.
// The whole frame happens under the surface lock, so exports never observe a
// partial frame.
func (l *Loop) Draw() int {
	var (
		live      waveform.CircularWaveform
		recording bool
	)
	if l.live != nil {
		live, recording = l.live.LiveWaveform()
	}
	var stored []waveform.CircularWaveform
	if l.gallery != nil {
		stored = l.gallery.All()
	}

	l.surface.Frame(func(c *render.Canvas) {
		c.Clear(Background)
		center := c.Center()
		if recording {
			l.renderer.Render(c, center, live)
		}
		for _, wf := range stored {
			l.renderer.Render(c, center, wf)
		}
	})

	if recording {
		return len(stored) + 1
	}
	return len(stored)
}
