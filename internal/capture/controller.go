package capture

import (
	"context"
	"sync"

	"github.com/smazurov/wavering/internal/logging"
	"github.com/smazurov/wavering/internal/waveform"
)

// State is the recording state of a Controller.
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// ControllerOptions configures a Controller. Gallery and Palette are shared
// with the renderer; Source and FFTSize decide what Start opens.
type ControllerOptions struct {
	Source  Source
	FFTSize int
	Gallery *waveform.Gallery
	Palette *waveform.Palette
	Layout  waveform.Layout
	Logger  logging.Logger
}

// Controller owns the capture device and turns a stop into a stored waveform.
// A device is held exactly while the state is StateRecording.
type Controller struct {
	source  Source
	fftSize int
	gallery *waveform.Gallery
	palette *waveform.Palette
	layout  waveform.Layout
	logger  logging.Logger

	mu       sync.Mutex
	state    State
	starting bool
	closed   bool
	device   Device
	live     []byte
}

// NewController creates an idle controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.FFTSize == 0 {
		opts.FFTSize = 256
	}
	if opts.Gallery == nil {
		opts.Gallery = waveform.NewGallery()
	}
	if opts.Palette == nil {
		opts.Palette = waveform.NewPalette(1)
	}
	if opts.Layout == (waveform.Layout{}) {
		opts.Layout = waveform.DefaultLayout()
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("capture")
	}
	return &Controller{
		source:  opts.Source,
		fftSize: opts.FFTSize,
		gallery: opts.Gallery,
		palette: opts.Palette,
		layout:  opts.Layout,
		logger:  opts.Logger,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens a device and enters StateRecording. It does nothing when
// already recording or when another Start is still opening a device. On
// failure the controller stays idle and the error (an *Error) is returned.
//
// The device is opened without holding the controller lock, so frames keep
// rendering while the device comes up.
func (c *Controller) Start(ctx context.Context) (started bool, err error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return false, ErrControllerClosed
	case c.state == StateRecording || c.starting:
		c.mu.Unlock()
		return false, nil
	}
	c.starting = true
	c.mu.Unlock()

	dev, err := c.source.Open(ctx, c.fftSize)

	c.mu.Lock()
	c.starting = false
	if err != nil {
		c.mu.Unlock()
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, classify(err)
	}
	if c.closed {
		c.mu.Unlock()
		c.closeDevice(dev)
		return false, ErrControllerClosed
	}
	c.device = dev
	c.live = make([]byte, dev.BinCount())
	c.state = StateRecording
	c.mu.Unlock()

	c.logger.Info("Recording started", "bins", dev.BinCount())
	return true, nil
}

// Stop ends a recording. It returns nil, nil and leaves the gallery untouched
// when idle. Otherwise the current snapshot becomes a waveform with the next
// ring radius and a fresh colour pair, is appended to the gallery and
// returned. If the snapshot cannot become a waveform the device is still
// released, the controller is Idle and the error is ErrCaptureDiscarded.
func (c *Controller) Stop() (*waveform.CircularWaveform, error) {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return nil, nil
	}
	dev := c.device
	bins := make([]byte, dev.BinCount())
	dev.FrequencyData(bins)
	c.device = nil
	c.live = nil
	c.state = StateIdle

	var stored *waveform.CircularWaveform
	snapshot, err := waveform.NewFrequencySnapshot(bins)
	if err == nil {
		start, end := c.palette.Pair()
		var wf waveform.CircularWaveform
		wf, err = waveform.NewCircularWaveform(snapshot, c.layout.RadiusFor(c.gallery.Count()), start, end)
		if err == nil {
			c.gallery.Append(wf)
			stored = &wf
		}
	}
	c.mu.Unlock()

	c.closeDevice(dev)
	if err != nil {
		c.logger.Error("Discarding capture", "error", err)
		return nil, &Error{Code: CodeCaptureDiscarded, Message: ErrCaptureDiscarded.Message, Cause: err}
	}
	c.logger.Info("Recording stopped", "radius", stored.Radius, "gallery_size", c.gallery.Count())
	return stored, nil
}

// LiveSnapshot returns the producer's current snapshot while recording.
func (c *Controller) LiveSnapshot() (waveform.FrequencySnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording {
		return waveform.FrequencySnapshot{}, false
	}
	c.device.FrequencyData(c.live)
	snapshot, err := waveform.NewFrequencySnapshot(c.live)
	if err != nil {
		return waveform.FrequencySnapshot{}, false
	}
	return snapshot, true
}

// LiveWaveform is the in-progress waveform as it would be drawn this frame:
// the next free ring with the fixed live colours.
func (c *Controller) LiveWaveform() (waveform.CircularWaveform, bool) {
	snapshot, ok := c.LiveSnapshot()
	if !ok {
		return waveform.CircularWaveform{}, false
	}
	start, end := waveform.LivePair()
	wf, err := waveform.NewCircularWaveform(snapshot, c.layout.RadiusFor(c.gallery.Count()), start, end)
	if err != nil {
		return waveform.CircularWaveform{}, false
	}
	return wf, true
}

// Gallery returns the gallery stopped recordings are appended to.
func (c *Controller) Gallery() *waveform.Gallery { return c.gallery }

// Shutdown releases any held device and rejects later starts.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.closed = true
	dev := c.device
	c.device = nil
	c.live = nil
	c.state = StateIdle
	c.mu.Unlock()

	if dev != nil {
		c.closeDevice(dev)
	}
}

func (c *Controller) closeDevice(dev Device) {
	if err := dev.Close(); err != nil {
		c.logger.Warn("Failed to release capture device", "error", err)
	}
}
