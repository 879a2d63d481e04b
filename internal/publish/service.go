// Package publish persists, lists and emails exported waveform images.
package publish

import (
	"context"
	"errors"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/smazurov/wavering/internal/events"
	"github.com/smazurov/wavering/internal/logging"
	"github.com/smazurov/wavering/internal/metrics"
)

// WaveformRecord is one persisted image.
type WaveformRecord struct {
	ID        int64
	Email     *string
	ImageData string
	CreatedAt time.Time
}

// Store persists records. Implementations order List by CreatedAt
// descending, newest first.
type Store interface {
	Insert(ctx context.Context, email *string, imageData string, createdAt time.Time) (WaveformRecord, error)
	List(ctx context.Context) ([]WaveformRecord, error)
}

// Message is an outgoing email with one attachment.
type Message struct {
	To             string
	Subject        string
	Text           string
	HTML           string
	Attachment     []byte
	AttachmentName string
	AttachmentType string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Email content of a delivered waveform.
const (
	MessageSubject = "Your Saved Circular Waveform"
	MessageText    = "Thank you for using the Circular Waveform Visualizer! Your generated waveform is attached."
	MessageHTML    = "<strong>Thank you for using the Circular Waveform Visualizer!</strong><p>Your generated waveform is attached.</p>"
)

type sessionKey struct{}

// WithSessionID tags ctx so published events name the originating session.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Service implements persistWaveform, sendWaveform and listWaveforms.
type Service struct {
	store  Store
	mailer Mailer
	bus    *events.Bus
	logger logging.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEventBus publishes save and delivery events on bus.
func WithEventBus(bus *events.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service over store and mailer.
func NewService(store Store, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		mailer: mailer,
		logger: logging.GetLogger("publish"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Persist stores imageData with an optional email. A nil or blank email is
// stored as NULL.
func (s *Service) Persist(ctx context.Context, email *string, imageData string) (WaveformRecord, error) {
	img, err := ParseImageData(imageData)
	if err != nil {
		metrics.IncPersist(string(ReasonOf(err)))
		return WaveformRecord{}, err
	}

	rec, err := s.store.Insert(ctx, normalizeEmail(email), img.String(), s.now().UTC())
	if err != nil {
		s.logger.Error("Failed to save waveform", "error", err)
		metrics.IncPersist(string(ReasonBackendUnavailable))
		return WaveformRecord{}, newError(ErrBackendUnavailable, err)
	}

	metrics.IncPersist("ok")
	s.logger.Info("Waveform saved", "id", rec.ID)
	s.publish(events.WaveformSavedEvent{
		SessionID: sessionID(ctx),
		RecordID:  rec.ID,
		Email:     deref(rec.Email),
		Timestamp: rec.CreatedAt.Format(time.RFC3339),
	})
	return rec, nil
}

// Send persists imageData under email and then emails it. A delivery
// failure is reported as ReasonDeliveryFailed with the saved record
// attached; it is never turned into success.
func (s *Service) Send(ctx context.Context, email string, imageData string) (WaveformRecord, error) {
	rec, err := s.send(ctx, email, imageData)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			ev := events.WaveformSendFailedEvent{
				SessionID: sessionID(ctx),
				Reason:    string(pe.Reason),
				Error:     err.Error(),
				Timestamp: s.now().UTC().Format(time.RFC3339),
			}
			if pe.Record != nil {
				ev.RecordID = pe.Record.ID
			}
			s.publish(ev)
			metrics.IncDelivery(string(pe.Reason))
		}
		return rec, err
	}
	metrics.IncDelivery("ok")
	return rec, nil
}

func (s *Service) send(ctx context.Context, email string, imageData string) (WaveformRecord, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return WaveformRecord{}, ErrMissingEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return WaveformRecord{}, newError(ErrInvalidEmail, err)
	}
	img, err := ParseImageData(imageData)
	if err != nil {
		return WaveformRecord{}, err
	}

	rec, err := s.Persist(ctx, &email, img.String())
	if err != nil {
		return WaveformRecord{}, newError(ErrPersistFailed, err)
	}

	msg := Message{
		To:             addr.Address,
		Subject:        MessageSubject,
		Text:           MessageText,
		HTML:           MessageHTML,
		Attachment:     img.Bytes(),
		AttachmentName: img.Filename(),
		AttachmentType: img.MediaType(),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send waveform email", "id", rec.ID, "error", err)
		failed := newError(ErrDeliveryFailed, err)
		failed.Record = &rec
		return rec, failed
	}

	s.logger.Info("Waveform emailed", "id", rec.ID)
	s.publish(events.WaveformSentEvent{
		SessionID: sessionID(ctx),
		RecordID:  rec.ID,
		Email:     addr.Address,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
	return rec, nil
}

// List returns every record, newest first. Records with equal timestamps
// are ordered by id, highest first.
func (s *Service) List(ctx context.Context) ([]WaveformRecord, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list waveforms", "error", err)
		return nil, newError(ErrBackendUnavailable, err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (s *Service) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*email)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
