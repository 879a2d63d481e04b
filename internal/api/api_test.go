package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/smazurov/wavering/internal/animation"
	"github.com/smazurov/wavering/internal/api/models"
	"github.com/smazurov/wavering/internal/audio"
	"github.com/smazurov/wavering/internal/capture"
	"github.com/smazurov/wavering/internal/events"
	"github.com/smazurov/wavering/internal/publish"
	"github.com/smazurov/wavering/internal/session"
	"github.com/smazurov/wavering/internal/store"
)

var imageURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n"))

type constDevice struct{ bins int }

func (d constDevice) BinCount() int { return d.bins }
func (d constDevice) FrequencyData(dst []byte) {
	for i := range dst {
		dst[i] = 64
	}
}
func (d constDevice) Close() error { return nil }

type stubMailer struct{ err error }

func (m stubMailer) Send(context.Context, publish.Message) error { return m.err }

type stubDetector struct {
	devices []audio.Device
	err     error
}

func (d stubDetector) ListDevices() ([]audio.Device, error) { return d.devices, d.err }

type fixture struct {
	server    *Server
	api       humatest.TestAPI
	session   *session.Session
	scheduler *animation.ManualScheduler
	store     *store.Memory
}

func newFixture(t *testing.T, source capture.Source, mailErr error) *fixture {
	t.Helper()
	_, testAPI := humatest.New(t)

	mem := store.NewMemory()
	bus := events.New()
	svc := publish.NewService(mem, stubMailer{err: mailErr}, publish.WithEventBus(bus))
	sched := animation.NewManualScheduler()
	sess, err := session.New(session.Options{
		Source:    source,
		Publisher: svc,
		Bus:       bus,
		Scheduler: sched,
		Width:     200,
		Height:    200,
		FFTSize:   32,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sess.Close)

	s := &Server{
		api:       testAPI,
		session:   sess,
		publisher: svc,
		detector: stubDetector{devices: []audio.Device{{
			CardNumber: 1, CardID: "Mic", CardName: "USB Mic", ALSADevice: "hw:1,0",
			Path: "/dev/snd/pcmC1D0c", Accessible: true,
		}}},
		eventBus: bus,
	}
	s.registerRoutes()
	return &fixture{server: s, api: testAPI, session: sess, scheduler: sched, store: mem}
}

func okSource() capture.Source {
	return capture.SourceFunc(func(_ context.Context, fftSize int) (capture.Device, error) {
		return constDevice{bins: fftSize / 2}, nil
	})
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", resp.Body.String(), err)
	}
	return out
}

func TestHealthAndVersion(t *testing.T) {
	f := newFixture(t, okSource(), nil)
	if resp := f.api.Get("/api/health"); resp.Code != http.StatusOK {
		t.Errorf("health = %d", resp.Code)
	}
	resp := f.api.Get("/api/version")
	if got := decode[models.VersionData](t, resp); got.Name != "wavering" {
		t.Errorf("version = %+v", got)
	}
}

func TestListAudioDevices(t *testing.T) {
	f := newFixture(t, okSource(), nil)
	resp := f.api.Get("/api/devices/audio")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	got := decode[models.AudioDevicesData](t, resp)
	if got.Count != 1 || got.Devices[0].ALSADevice != "hw:1,0" {
		t.Errorf("devices = %+v", got)
	}

	f.server.detector = stubDetector{err: errors.New("no procfs")}
	if resp := f.api.Get("/api/devices/audio"); resp.Code != http.StatusInternalServerError {
		t.Errorf("status on detector failure = %d", resp.Code)
	}
}

func TestRecordStopCycle(t *testing.T) {
	f := newFixture(t, okSource(), nil)

	resp := f.api.Post("/api/session/start")
	if resp.Code != http.StatusOK {
		t.Fatalf("start = %d %s", resp.Code, resp.Body)
	}
	if got := decode[models.StartData](t, resp); !got.Started || got.Session.State != "recording" {
		t.Errorf("start = %+v", got)
	}
	if got := decode[models.StartData](t, f.api.Post("/api/session/start")); got.Started {
		t.Error("second start reported started")
	}

	f.scheduler.Tick()
	resp = f.api.Post("/api/session/stop")
	got := decode[models.StopData](t, resp)
	if got.Stored == nil || got.Stored.Radius != 50 || got.Stored.Bins != 16 {
		t.Fatalf("stop = %+v", got)
	}
	if got.Session.GallerySize != 1 || got.Session.State != "idle" {
		t.Errorf("session = %+v", got.Session)
	}

	if got := decode[models.StopData](t, f.api.Post("/api/session/stop")); got.Stored != nil {
		t.Error("stop while idle stored a waveform")
	}
}

func TestStartErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"permission denied", capture.PermissionDenied("denied", nil), http.StatusForbidden},
		{"device unavailable", capture.DeviceUnavailable("gone", nil), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := capture.SourceFunc(func(context.Context, int) (capture.Device, error) { return nil, tt.err })
			f := newFixture(t, src, nil)
			if resp := f.api.Post("/api/session/start"); resp.Code != tt.want {
				t.Errorf("status = %d, want %d", resp.Code, tt.want)
			}
		})
	}
}

func TestFramePNG(t *testing.T) {
	f := newFixture(t, okSource(), nil)
	f.scheduler.Tick()
	resp := f.api.Get("/api/session/frame.png")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(resp.Body.String(), "\x89PNG") {
		t.Error("body is not a PNG")
	}
}

func TestSessionSaveAndSend(t *testing.T) {
	f := newFixture(t, okSource(), errors.New("relay refused"))
	f.scheduler.Tick()

	resp := f.api.Post("/api/session/save")
	if resp.Code != http.StatusCreated {
		t.Fatalf("save = %d %s", resp.Code, resp.Body)
	}

	if resp := f.api.Post("/api/session/send"); resp.Code != http.StatusBadRequest {
		t.Errorf("send without email = %d", resp.Code)
	}

	f.api.Put("/api/session/email", map[string]any{"email": "fan@example.com"})
	resp = f.api.Post("/api/session/send")
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("send with failing relay = %d %s", resp.Code, resp.Body)
	}
	if !strings.Contains(resp.Body.String(), "Waveform saved, but there was an error sending the email.") {
		t.Errorf("body = %s", resp.Body)
	}

	list, _ := f.store.List(context.Background())
	if len(list) != 2 {
		t.Errorf("stored %d records, want 2", len(list))
	}
}

func TestSaveWaveform(t *testing.T) {
	f := newFixture(t, okSource(), nil)

	resp := f.api.Post("/api/save-waveform", map[string]any{"imageData": imageURI})
	if resp.Code != http.StatusCreated {
		t.Fatalf("save = %d %s", resp.Code, resp.Body)
	}
	if got := decode[models.SaveData](t, resp); got.Message != "Waveform saved successfully!" || got.ID != 1 {
		t.Errorf("save = %+v", got)
	}

	if resp := f.api.Post("/api/save-waveform", map[string]any{"imageData": ""}); resp.Code != http.StatusBadRequest {
		t.Errorf("missing image = %d", resp.Code)
	}
	if resp := f.api.Post("/api/save-waveform", map[string]any{"imageData": "data:text/plain;base64,AAAA"}); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid image = %d", resp.Code)
	}
}

func TestSendWaveform(t *testing.T) {
	f := newFixture(t, okSource(), nil)

	resp := f.api.Post("/api/send-waveform", map[string]any{"email": "fan@example.com", "imageData": imageURI})
	if resp.Code != http.StatusOK {
		t.Fatalf("send = %d %s", resp.Code, resp.Body)
	}
	if got := decode[models.SaveData](t, resp); got.Message != "Waveform saved and email sent successfully!" {
		t.Errorf("send = %+v", got)
	}

	resp = f.api.Post("/api/send-waveform", map[string]any{"imageData": imageURI})
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "Missing email or image data") {
		t.Errorf("missing email = %d %s", resp.Code, resp.Body)
	}
}

func TestListWaveforms(t *testing.T) {
	f := newFixture(t, okSource(), nil)
	ctx := context.Background()
	email := "a@example.com"
	f.store.Insert(ctx, nil, imageURI, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	f.store.Insert(ctx, &email, imageURI, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	got := decode[models.WaveformListData](t, f.api.Get("/api/waveforms"))
	if got.Message != "success" || len(got.Data) != 2 {
		t.Fatalf("list = %+v", got)
	}
	if got.Data[0].Email == nil || *got.Data[0].Email != email || got.Data[1].Email != nil {
		t.Errorf("order or email wrong: %+v", got.Data)
	}
}

func TestPublishErrorMapping(t *testing.T) {
	rec := &publish.WaveformRecord{ID: 9}
	tests := []struct {
		err  error
		want int
	}{
		{publish.ErrMissingImageData, http.StatusBadRequest},
		{publish.ErrMissingEmail, http.StatusBadRequest},
		{publish.ErrInvalidEmail, http.StatusUnprocessableEntity},
		{publish.ErrBackendUnavailable, http.StatusServiceUnavailable},
		{publish.ErrPersistFailed, http.StatusInternalServerError},
		{&publish.Error{Reason: publish.ReasonDeliveryFailed, Record: rec}, http.StatusBadGateway},
		{session.ErrClosed, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := publishError(tt.err).GetStatus(); got != tt.want {
			t.Errorf("publishError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorsHideCauses(t *testing.T) {
	cause := errors.New("open /var/lib/wavering/wavering.db: disk I/O error")
	rec := &publish.WaveformRecord{ID: 41}
	tests := []struct {
		name string
		err  huma.StatusError
	}{
		{"backend", publishError(&publish.Error{Reason: publish.ReasonBackendUnavailable, Message: "waveform store unavailable", Cause: cause})},
		{"delivery", publishError(&publish.Error{Reason: publish.ReasonDeliveryFailed, Record: rec, Cause: cause})},
		{"unexpected", publishError(cause)},
		{"device", captureError(capture.DeviceUnavailable("ffmpeg exited", cause))},
		{"discarded", captureError(&capture.Error{Code: capture.CodeCaptureDiscarded, Message: "recording could not be stored", Cause: cause})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.err)
			if err != nil {
				t.Fatal(err)
			}
			if strings.Contains(string(body), "wavering.db") || strings.Contains(string(body), "ffmpeg") {
				t.Errorf("response leaks the cause: %s", body)
			}
		})
	}

	body, _ := json.Marshal(publishError(&publish.Error{Reason: publish.ReasonDeliveryFailed, Record: rec, Cause: cause}))
	if !strings.Contains(string(body), `"value":41`) {
		t.Errorf("delivery failure lost the record id: %s", body)
	}

	discarded := captureError(&capture.Error{Code: capture.CodeCaptureDiscarded, Cause: cause})
	if discarded.GetStatus() != http.StatusInternalServerError {
		t.Errorf("discarded recording status = %d, want 500", discarded.GetStatus())
	}
}

func TestBasicAuth(t *testing.T) {
	s := NewServer(&Options{
		AuthUsername: "admin",
		AuthPassword: "secret",
		Publisher:    publish.NewService(store.NewMemory(), stubMailer{}),
		Detector:     stubDetector{},
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	get := func(path string, header string) int {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	basic := func(user, pass string) string {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
	}

	if code := get("/api/health", ""); code != http.StatusOK {
		t.Errorf("health without auth = %d", code)
	}
	if code := get("/api/waveforms", ""); code != http.StatusUnauthorized {
		t.Errorf("no credentials = %d", code)
	}
	if code := get("/api/waveforms", basic("admin", "wrong")); code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d", code)
	}
	if code := get("/api/waveforms", "Bearer token"); code != http.StatusUnauthorized {
		t.Errorf("bearer = %d", code)
	}
	if code := get("/api/waveforms", basic("admin", "secret")); code != http.StatusOK {
		t.Errorf("valid credentials = %d", code)
	}
	query := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	if code := get("/api/waveforms?auth="+query, ""); code != http.StatusOK {
		t.Errorf("query credentials = %d", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer(&Options{Detector: stubDetector{}})
	req := httptest.NewRequest(http.MethodOptions, "/api/save-waveform", nil)
	req.Header.Set("Origin", "http://client.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestCORSOriginList(t *testing.T) {
	h := newCORSHeaders(CORSConfig{AllowOrigins: []string{"http://a.example"}})
	if got := h.origin("http://a.example"); got != "http://a.example" {
		t.Errorf("allowed origin = %q", got)
	}
	if got := h.origin("http://b.example"); got != "" {
		t.Errorf("foreign origin = %q", got)
	}
}

func TestSSEStream(t *testing.T) {
	bus := events.New()
	s := NewServer(&Options{EventBus: bus, Detector: stubDetector{}})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("content type = %q", resp.Header.Get("Content-Type"))
	}

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if line, ok := strings.CutPrefix(lines.Text(), "event: "); ok {
				return line
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	if ev := next(); ev != "connected" {
		t.Fatalf("first event = %q", ev)
	}
	bus.Publish(events.WaveformSavedEvent{RecordID: 3, Timestamp: time.Now().Format(time.RFC3339)})
	if ev := next(); ev != "waveform-saved" {
		t.Errorf("second event = %q", ev)
	}
}

func TestWebClient(t *testing.T) {
	s := NewServer(&Options{Detector: stubDetector{}})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/app.js", http.StatusOK},
		{"/gallery", http.StatusOK},
		{"/api/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := http.Get(ts.URL + tt.path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
	}
}
