// Package session ties capture, rendering and publishing into one visualizer.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/wavering/internal/animation"
	"github.com/smazurov/wavering/internal/capture"
	"github.com/smazurov/wavering/internal/events"
	"github.com/smazurov/wavering/internal/logging"
	"github.com/smazurov/wavering/internal/metrics"
	"github.com/smazurov/wavering/internal/publish"
	"github.com/smazurov/wavering/internal/render"
	"github.com/smazurov/wavering/internal/waveform"
)

// ErrClosed is returned by user actions after Close.
var ErrClosed = errors.New("visualizer session is closed")

// Publisher is the persistence and delivery side of a session.
type Publisher interface {
	Persist(ctx context.Context, email *string, imageData string) (publish.WaveformRecord, error)
	Send(ctx context.Context, email string, imageData string) (publish.WaveformRecord, error)
}

// Options configures a Session. Source and Publisher are required.
type Options struct {
	Source    capture.Source
	Publisher Publisher
	Bus       *events.Bus
	Scheduler animation.Scheduler

	Width   int
	Height  int
	FFTSize int
	// Seed drives the colour palette of stored waveforms.
	Seed   uint64
	Style  render.Style
	Layout waveform.Layout
}

// Status is a point-in-time view of a session.
type Status struct {
	ID          string
	State       capture.State
	GallerySize int
	Frames      uint64
	Email       string
	Width       int
	Height      int
}

// Session is one visualizer: a capture controller, the gallery of stored
// rings, the surface they are drawn on and the loop drawing it.
type Session struct {
	id         string
	controller *capture.Controller
	gallery    *waveform.Gallery
	surface    *render.Surface
	loop       *animation.Loop
	publisher  Publisher
	bus        *events.Bus
	logger     logging.Logger

	mu     sync.Mutex
	email  string
	closed bool
}

// New builds a session and starts its animation loop.
func New(opts Options) (*Session, error) {
	if opts.Source == nil {
		return nil, errors.New("session: capture source is required")
	}
	if opts.Publisher == nil {
		return nil, errors.New("session: publisher is required")
	}
	if opts.Scheduler == nil {
		opts.Scheduler = animation.NewTickerScheduler(0)
	}
	if opts.Width == 0 {
		opts.Width = 800
	}
	if opts.Height == 0 {
		opts.Height = 800
	}

	surface, err := render.NewSurface(opts.Width, opts.Height)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	logger := logging.GetLogger("session")
	gallery := waveform.NewGallery()
	controller := capture.NewController(capture.ControllerOptions{
		Source:  opts.Source,
		FFTSize: opts.FFTSize,
		Gallery: gallery,
		Palette: waveform.NewPalette(opts.Seed),
		Layout:  opts.Layout,
	})
	loop := animation.NewLoop(animation.Options{
		Scheduler: opts.Scheduler,
		Surface:   surface,
		Renderer:  render.NewRenderer(opts.Style),
		Live:      controller,
		Gallery:   gallery,
		Observer:  metrics.FrameObserver{},
	})

	s := &Session{
		id:         uuid.NewString(),
		controller: controller,
		gallery:    gallery,
		surface:    surface,
		loop:       loop,
		publisher:  opts.Publisher,
		bus:        opts.Bus,
		logger:     logger,
	}

	if err := loop.Start(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	metrics.SetRecording(false)
	metrics.SetGallerySize(0)
	logger.Info("Visualizer session created", "id", s.id, "width", opts.Width, "height", opts.Height)
	return s, nil
}

// ID returns the session identifier used in events.
func (s *Session) ID() string { return s.id }

// Surface returns the surface the loop draws on.
func (s *Session) Surface() *render.Surface { return s.surface }

// Gallery returns the stored waveforms.
func (s *Session) Gallery() *waveform.Gallery { return s.gallery }

// Start begins recording. started is false when a recording was already in
// progress. Acquisition failures are *capture.Error values and are
// published as CaptureErrorEvent.
func (s *Session) Start(ctx context.Context) (started bool, err error) {
	if s.isClosed() {
		return false, ErrClosed
	}

	started, err = s.controller.Start(ctx)
	if err != nil {
		var ce *capture.Error
		if errors.As(err, &ce) {
			metrics.IncCaptureErrors(ce.Code)
			s.publish(events.CaptureErrorEvent{
				SessionID: s.id,
				Code:      ce.Code,
				Message:   userMessage(ce),
				Error:     err.Error(),
				Timestamp: now(),
			})
		}
		s.logger.Warn("Failed to start recording", "error", err)
		return false, err
	}
	if !started {
		return false, nil
	}

	metrics.IncCaptureStarts()
	metrics.SetRecording(true)
	s.publish(events.CaptureStartedEvent{SessionID: s.id, Timestamp: now()})
	return true, nil
}

// Stop ends the recording and returns the stored waveform, or nil when
// nothing was recording. A recording that could not be stored is reported
// as a *capture.Error and a CaptureErrorEvent; the device is released either way.
func (s *Session) Stop() (*waveform.CircularWaveform, error) {
	wf, err := s.controller.Stop()
	if err != nil {
		metrics.SetRecording(false)
		var ce *capture.Error
		if errors.As(err, &ce) {
			metrics.IncCaptureErrors(ce.Code)
			s.publish(events.CaptureErrorEvent{
				SessionID: s.id,
				Code:      ce.Code,
				Message:   userMessage(ce),
				Error:     err.Error(),
				Timestamp: now(),
			})
		}
		s.logger.Error("Failed to store recording", "error", err)
		return nil, err
	}
	if wf == nil {
		return nil, nil
	}

	count := s.gallery.Count()
	metrics.SetRecording(false)
	metrics.SetGallerySize(count)
	s.publish(events.CaptureStoppedEvent{
		SessionID:   s.id,
		Radius:      wf.Radius,
		ColorStart:  wf.ColorStart.String(),
		ColorEnd:    wf.ColorEnd.String(),
		GallerySize: count,
		Timestamp:   now(),
	})
	return wf, nil
}

// Export encodes the last complete frame as PNG.
func (s *Session) Export() ([]byte, error) {
	return s.surface.Export()
}

// ExportDataURI encodes the last complete frame as a PNG data URI.
func (s *Session) ExportDataURI() (string, error) {
	return s.surface.ExportDataURI()
}

// SetEmail records the address used by Save and Send.
func (s *Session) SetEmail(email string) {
	s.mu.Lock()
	s.email = strings.TrimSpace(email)
	s.mu.Unlock()
}

// Email returns the last address set.
func (s *Session) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

// Save persists the current surface together with the last email, which
// may be empty.
func (s *Session) Save(ctx context.Context) (publish.WaveformRecord, error) {
	if s.isClosed() {
		return publish.WaveformRecord{}, ErrClosed
	}
	uri, err := s.surface.ExportDataURI()
	if err != nil {
		return publish.WaveformRecord{}, err
	}

	var email *string
	if e := s.Email(); e != "" {
		email = &e
	}
	return s.publisher.Persist(publish.WithSessionID(ctx, s.id), email, uri)
}

// Send persists the current surface and emails it to the last email.
func (s *Session) Send(ctx context.Context) (publish.WaveformRecord, error) {
	if s.isClosed() {
		return publish.WaveformRecord{}, ErrClosed
	}
	uri, err := s.surface.ExportDataURI()
	if err != nil {
		return publish.WaveformRecord{}, err
	}
	return s.publisher.Send(publish.WithSessionID(ctx, s.id), s.Email(), uri)
}

// Status reports the session state.
func (s *Session) Status() Status {
	w, h := s.surface.Size()
	return Status{
		ID:          s.id,
		State:       s.controller.State(),
		GallerySize: s.gallery.Count(),
		Frames:      s.loop.Frames(),
		Email:       s.Email(),
		Width:       w,
		Height:      h,
	}
}

// Close stops the loop and releases the capture device. The gallery and
// surface stay readable.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.loop.Stop()
	s.controller.Shutdown()
	metrics.SetRecording(false)
	s.logger.Info("Visualizer session closed", "id", s.id, "gallery_size", s.gallery.Count())
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func userMessage(err *capture.Error) string {
	switch err.Code {
	case capture.CodePermissionDenied:
		return "Microphone access was denied"
	case capture.CodeCaptureDiscarded:
		return "Recording could not be stored"
	}
	return "Error accessing microphone"
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
