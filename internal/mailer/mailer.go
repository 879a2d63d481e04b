// Package mailer delivers waveform images over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/smazurov/wavering/internal/logging"
	"github.com/smazurov/wavering/internal/publish"
)

// ErrDeliveryDisabled is returned by Disabled.
var ErrDeliveryDisabled = errors.New("email delivery is not configured")

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLS is "mandatory", "opportunistic" or "none".
	TLS     string
	Timeout time.Duration
}

// SMTP sends messages through one SMTP relay.
type SMTP struct {
	cfg    Config
	client *mail.Client
	logger logging.Logger
}

// New creates an SMTP mailer. Connections are made per message.
func New(cfg Config) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp sender address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	policy, err := tlsPolicy(cfg.TLS)
	if err != nil {
		return nil, err
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(policy),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTP{cfg: cfg, client: client, logger: logging.GetLogger("mailer")}, nil
}

// Send delivers msg.
func (s *SMTP) Send(ctx context.Context, msg publish.Message) error {
	m, err := buildMessage(s.cfg.From, msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	s.logger.Debug("Email delivered", "to", msg.To, "subject", msg.Subject)
	return nil
}

func buildMessage(from string, msg publish.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	if len(msg.Attachment) > 0 {
		name := msg.AttachmentName
		if name == "" {
			name = "waveform.png"
		}
		var opts []mail.FileOption
		if msg.AttachmentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(msg.AttachmentType)))
		}
		if err := m.AttachReader(name, bytes.NewReader(msg.Attachment), opts...); err != nil {
			return nil, fmt.Errorf("attach %s: %w", name, err)
		}
	}
	return m, nil
}

func tlsPolicy(s string) (mail.TLSPolicy, error) {
	switch s {
	case "", "mandatory":
		return mail.TLSMandatory, nil
	case "opportunistic":
		return mail.TLSOpportunistic, nil
	case "none":
		return mail.NoTLS, nil
	default:
		return mail.NoTLS, fmt.Errorf("unknown smtp tls policy %q", s)
	}
}

// Disabled fails every delivery with ErrDeliveryDisabled.
type Disabled struct{}

func (Disabled) Send(context.Context, publish.Message) error {
	return ErrDeliveryDisabled
}
