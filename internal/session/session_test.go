package session

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/wavering/internal/animation"
	"github.com/smazurov/wavering/internal/capture"
	"github.com/smazurov/wavering/internal/events"
	"github.com/smazurov/wavering/internal/metrics"
	"github.com/smazurov/wavering/internal/publish"
	"github.com/smazurov/wavering/internal/render"
	"github.com/smazurov/wavering/internal/store"
)

type constDevice struct {
	bins  int
	value byte
}

func (d *constDevice) BinCount() int { return d.bins }

func (d *constDevice) FrequencyData(dst []byte) {
	for i := range dst {
		dst[i] = d.value
	}
}

func (d *constDevice) Close() error { return nil }

func constSource(value byte) capture.Source {
	return capture.SourceFunc(func(_ context.Context, fftSize int) (capture.Device, error) {
		return &constDevice{bins: fftSize / 2, value: value}, nil
	})
}

type failingMailer struct{ err error }

func (m failingMailer) Send(context.Context, publish.Message) error { return m.err }

type harness struct {
	session   *Session
	scheduler *animation.ManualScheduler
	store     *store.Memory
	bus       *events.Bus
}

func newHarness(t *testing.T, source capture.Source, mailer publish.Mailer) *harness {
	t.Helper()
	mem := store.NewMemory()
	bus := events.New()
	sched := animation.NewManualScheduler()
	s, err := New(Options{
		Source:    source,
		Publisher: publish.NewService(mem, mailer, publish.WithEventBus(bus)),
		Bus:       bus,
		Scheduler: sched,
		Width:     300,
		Height:    300,
		FFTSize:   64,
		Seed:      7,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return &harness{session: s, scheduler: sched, store: mem, bus: bus}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Publisher: publish.NewService(store.NewMemory(), failingMailer{})}); err == nil {
		t.Error("expected error without source")
	}
	if _, err := New(Options{Source: constSource(0)}); err == nil {
		t.Error("expected error without publisher")
	}
	_, err := New(Options{
		Source:    constSource(0),
		Publisher: publish.NewService(store.NewMemory(), failingMailer{}),
		Scheduler: animation.NewManualScheduler(),
		Width:     -1,
	})
	if !errors.Is(err, render.ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestStartStopBuildsGallery(t *testing.T) {
	h := newHarness(t, constSource(40), failingMailer{})
	ctx := context.Background()

	if wf, err := h.session.Stop(); wf != nil || err != nil {
		t.Fatalf("stop while idle = %v, %v", wf, err)
	}

	for i := range 3 {
		started, err := h.session.Start(ctx)
		if err != nil || !started {
			t.Fatalf("start %d: %v %v", i, started, err)
		}
		again, err := h.session.Start(ctx)
		if err != nil || again {
			t.Fatalf("second start while recording: %v %v", again, err)
		}
		h.scheduler.Tick()
		wf, err := h.session.Stop()
		if err != nil || wf == nil {
			t.Fatalf("stop %d = %v, %v", i, wf, err)
		}
		if want := 50 + float64(i)*30; wf.Radius != want {
			t.Errorf("radius %d = %v, want %v", i, wf.Radius, want)
		}
	}

	st := h.session.Status()
	if st.GallerySize != 3 || st.State != capture.StateIdle {
		t.Errorf("status = %+v", st)
	}
	if st.Frames != 3 {
		t.Errorf("frames = %d, want 3", st.Frames)
	}
	if st.ID == "" || st.ID != h.session.ID() {
		t.Error("status id mismatch")
	}
}

func TestStartPermissionDenied(t *testing.T) {
	denied := capture.SourceFunc(func(context.Context, int) (capture.Device, error) {
		return nil, capture.PermissionDenied("user said no", nil)
	})
	h := newHarness(t, denied, failingMailer{})
	errs := make(chan events.CaptureErrorEvent, 1)
	h.bus.Subscribe(func(e events.CaptureErrorEvent) { errs <- e })

	started, err := h.session.Start(context.Background())
	if started || !errors.Is(err, capture.ErrPermissionDenied) {
		t.Fatalf("start = %v, %v", started, err)
	}
	if h.session.Status().State != capture.StateIdle {
		t.Error("state changed after failed start")
	}

	select {
	case ev := <-errs:
		if ev.Code != capture.CodePermissionDenied || ev.SessionID != h.session.ID() {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no CaptureErrorEvent")
	}
}

func TestStopReportsDiscardedRecording(t *testing.T) {
	odd := capture.SourceFunc(func(context.Context, int) (capture.Device, error) {
		return &constDevice{bins: 3, value: 60}, nil
	})
	h := newHarness(t, odd, failingMailer{})
	errs := make(chan events.CaptureErrorEvent, 1)
	h.bus.Subscribe(func(e events.CaptureErrorEvent) { errs <- e })
	stopped := make(chan events.CaptureStoppedEvent, 1)
	h.bus.Subscribe(func(e events.CaptureStoppedEvent) { stopped <- e })

	if _, err := h.session.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	wf, err := h.session.Stop()
	if wf != nil || !errors.Is(err, capture.ErrCaptureDiscarded) {
		t.Fatalf("stop = %v, %v", wf, err)
	}

	st := h.session.Status()
	if st.State != capture.StateIdle || st.GallerySize != 0 {
		t.Errorf("status = %+v", st)
	}

	select {
	case ev := <-errs:
		if ev.Code != capture.CodeCaptureDiscarded || ev.SessionID != h.session.ID() {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no CaptureErrorEvent")
	}
	select {
	case ev := <-stopped:
		t.Errorf("unexpected CaptureStoppedEvent %+v", ev)
	default:
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "wavering_capture_recording 0") {
		t.Error("recording gauge not reset")
	}
}

func TestSaveWithoutEmail(t *testing.T) {
	h := newHarness(t, constSource(100), failingMailer{})
	ctx := context.Background()
	h.session.Start(ctx)
	h.scheduler.Tick()
	if _, err := h.session.Stop(); err != nil {
		t.Fatal(err)
	}
	h.scheduler.Tick()

	rec, err := h.session.Save(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Email != nil {
		t.Errorf("email = %q, want nil", *rec.Email)
	}
	if !strings.HasPrefix(rec.ImageData, render.PNGDataURIPrefix) {
		t.Error("saved image is not a PNG data URI")
	}
	uri, _ := h.session.ExportDataURI()
	if rec.ImageData != uri {
		t.Error("saved image differs from the current surface")
	}

	list, _ := h.store.List(ctx)
	if len(list) != 1 {
		t.Errorf("store has %d records", len(list))
	}
	if h.session.Gallery().Count() != 1 {
		t.Error("save changed the gallery")
	}
}

func TestSendRequiresEmail(t *testing.T) {
	h := newHarness(t, constSource(0), failingMailer{})
	_, err := h.session.Send(context.Background())
	if !errors.Is(err, publish.ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
	list, _ := h.store.List(context.Background())
	if len(list) != 0 {
		t.Error("record persisted without email")
	}
}

func TestSendDeliveryFailureKeepsRecord(t *testing.T) {
	h := newHarness(t, constSource(0), failingMailer{err: errors.New("relay down")})
	h.session.SetEmail("  listener@example.com ")
	if got := h.session.Email(); got != "listener@example.com" {
		t.Fatalf("email = %q", got)
	}

	_, err := h.session.Send(context.Background())
	if !errors.Is(err, publish.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	list, _ := h.store.List(context.Background())
	if len(list) != 1 || list[0].Email == nil || *list[0].Email != "listener@example.com" {
		t.Errorf("records = %+v", list)
	}
}

func TestCloseReleasesAndRejects(t *testing.T) {
	h := newHarness(t, constSource(0), failingMailer{})
	ctx := context.Background()
	h.session.Start(ctx)
	h.session.Close()
	h.session.Close()

	if h.session.Status().State != capture.StateIdle {
		t.Error("still recording after close")
	}
	if _, err := h.session.Start(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("start after close: %v", err)
	}
	if _, err := h.session.Save(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("save after close: %v", err)
	}
	if h.scheduler.Pending() != 0 {
		t.Error("frames still scheduled after close")
	}
	if _, err := h.session.Export(); err != nil {
		t.Errorf("export after close: %v", err)
	}
}
