package publish

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/wavering/internal/events"
)

var pngURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfake"))

type fakeStore struct {
	mu        sync.Mutex
	records   []WaveformRecord
	insertErr error
	listErr   error
}

func (f *fakeStore) Insert(_ context.Context, email *string, imageData string, createdAt time.Time) (WaveformRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return WaveformRecord{}, f.insertErr
	}
	rec := WaveformRecord{ID: int64(len(f.records) + 1), Email: email, ImageData: imageData, CreatedAt: createdAt}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeStore) List(context.Context) ([]WaveformRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]WaveformRecord(nil), f.records...), nil
}

type fakeMailer struct {
	sent []Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestParseImageData(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason Reason
	}{
		{"valid png", pngURI, ""},
		{"empty", "", ReasonMissingImageData},
		{"blank", "   ", ReasonMissingImageData},
		{"no scheme", "image/png;base64,AAAA", ReasonInvalidImageData},
		{"not an image", "data:text/plain;base64,AAAA", ReasonInvalidImageData},
		{"not base64", "data:image/png,AAAA", ReasonInvalidImageData},
		{"bad payload", "data:image/png;base64,***", ReasonInvalidImageData},
		{"empty payload", "data:image/png;base64,", ReasonInvalidImageData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ParseImageData(tt.input)
			if got := ReasonOf(err); got != tt.reason {
				t.Fatalf("reason = %q, want %q (err %v)", got, tt.reason, err)
			}
			if tt.reason == "" {
				if img.MediaType() != PNGMediaType {
					t.Errorf("media type = %q", img.MediaType())
				}
				if img.Filename() != "waveform.png" {
					t.Errorf("filename = %q", img.Filename())
				}
				if string(img.Bytes()[:4]) != "\x89PNG" {
					t.Error("payload not decoded")
				}
			}
		})
	}
}

func TestPersistWithoutEmail(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeMailer{})

	rec, err := svc.Persist(context.Background(), nil, pngURI)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Email != nil {
		t.Errorf("email = %v, want nil", *rec.Email)
	}
	if rec.ImageData != pngURI {
		t.Error("image data not stored verbatim")
	}

	blank := "  "
	rec, err = svc.Persist(context.Background(), &blank, pngURI)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Email != nil {
		t.Error("blank email should be stored as nil")
	}
}

func TestPersistErrors(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeMailer{})
	if _, err := svc.Persist(context.Background(), nil, ""); !errors.Is(err, ErrMissingImageData) {
		t.Errorf("expected ErrMissingImageData, got %v", err)
	}

	down := errors.New("disk gone")
	svc = NewService(&fakeStore{insertErr: down}, &fakeMailer{})
	_, err := svc.Persist(context.Background(), nil, pngURI)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
	if !errors.Is(err, down) {
		t.Error("cause not wrapped")
	}
}

func TestSend(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{}
	bus := events.New()
	sent := make(chan events.WaveformSentEvent, 1)
	bus.Subscribe(func(e events.WaveformSentEvent) { sent <- e })
	svc := NewService(store, mailer, WithEventBus(bus))

	ctx := WithSessionID(context.Background(), "s-1")
	rec, err := svc.Send(ctx, "someone@example.com", pngURI)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Email == nil || *rec.Email != "someone@example.com" {
		t.Errorf("stored email = %v", rec.Email)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d messages", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.Subject != MessageSubject || msg.Text != MessageText || msg.HTML != MessageHTML {
		t.Errorf("unexpected content: %+v", msg)
	}
	if msg.AttachmentName != "waveform.png" || msg.AttachmentType != "image/png" {
		t.Errorf("attachment = %s (%s)", msg.AttachmentName, msg.AttachmentType)
	}

	select {
	case ev := <-sent:
		if ev.SessionID != "s-1" || ev.RecordID != rec.ID {
			t.Errorf("sent event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no WaveformSentEvent")
	}
}

func TestSendErrors(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		image     string
		store     *fakeStore
		mailErr   error
		want      error
		wantSaved bool
	}{
		{"missing email", "", pngURI, &fakeStore{}, nil, ErrMissingEmail, false},
		{"invalid email", "not an address", pngURI, &fakeStore{}, nil, ErrInvalidEmail, false},
		{"missing image", "a@example.com", "", &fakeStore{}, nil, ErrMissingImageData, false},
		{"persist failed", "a@example.com", pngURI, &fakeStore{insertErr: errors.New("locked")}, nil, ErrPersistFailed, false},
		{"delivery failed", "a@example.com", pngURI, &fakeStore{}, errors.New("smtp 550"), ErrDeliveryFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.store, &fakeMailer{err: tt.mailErr})
			_, err := svc.Send(context.Background(), tt.email, tt.image)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			saved := len(tt.store.records) > 0
			if saved != tt.wantSaved {
				t.Errorf("saved = %v, want %v", saved, tt.wantSaved)
			}
			var pe *Error
			if !errors.As(err, &pe) {
				t.Fatal("not a publish error")
			}
			if tt.wantSaved && (pe.Record == nil || pe.Record.ID != tt.store.records[0].ID) {
				t.Errorf("delivery error does not carry the saved record: %+v", pe.Record)
			}
		})
	}
}

func TestSendDeliveryFailureIsNotPersistFailure(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeMailer{err: errors.New("timeout")})
	_, err := svc.Send(context.Background(), "a@example.com", pngURI)
	if errors.Is(err, ErrPersistFailed) {
		t.Error("delivery failure reported as persist failure")
	}
}

func TestListNewestFirst(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeMailer{}, WithClock(fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))
	for range 3 {
		if _, err := svc.Persist(context.Background(), nil, pngURI); err != nil {
			t.Fatal(err)
		}
	}

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d records", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Errorf("record %d newer than record %d", i, i-1)
		}
	}
	if list[0].ID != 3 {
		t.Errorf("first id = %d, want 3", list[0].ID)
	}
}

func TestListEmptyAndUnavailable(t *testing.T) {
	list, err := NewService(&fakeStore{}, &fakeMailer{}).List(context.Background())
	if err != nil || len(list) != 0 {
		t.Errorf("empty list = %v, %v", list, err)
	}

	_, err = NewService(&fakeStore{listErr: errors.New("closed")}, &fakeMailer{}).List(context.Background())
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}
