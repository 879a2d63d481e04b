// Package app builds the collaborators of a visualizer from flat settings.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smazurov/wavering/internal/audio"
	"github.com/smazurov/wavering/internal/capture"
	"github.com/smazurov/wavering/internal/ffmpeg"
	"github.com/smazurov/wavering/internal/mailer"
	"github.com/smazurov/wavering/internal/publish"
	"github.com/smazurov/wavering/internal/store"
)

// Capture source kinds.
const (
	SourceFFmpeg = "ffmpeg"
	SourceTone   = "tone"
)

// CaptureConfig selects and configures the audio source.
type CaptureConfig struct {
	Source       string // ffmpeg or tone
	FFmpegBinary string
	InputFormat  string
	Device       string
	SampleRate   int
	AudioFilters string
	// Options is a comma separated list of ffmpeg option flags.
	Options        string
	StartupGraceMs int
}

// NewSource builds the capture source described by cfg.
func NewSource(cfg CaptureConfig) (capture.Source, error) {
	switch cfg.Source {
	case SourceTone:
		return &capture.ToneSource{SampleRate: cfg.SampleRate}, nil
	case "", SourceFFmpeg:
	default:
		return nil, fmt.Errorf("unknown capture source %q (want %s or %s)", cfg.Source, SourceFFmpeg, SourceTone)
	}

	opts, err := ParseOptions(cfg.Options)
	if err != nil {
		return nil, err
	}
	if cfg.Device == "" {
		cfg.Device = ffmpeg.DefaultDevice
	}
	params := ffmpeg.Params{
		Binary:       cfg.FFmpegBinary,
		InputFormat:  cfg.InputFormat,
		Device:       cfg.Device,
		SampleRate:   cfg.SampleRate,
		Channels:     1,
		AudioFilters: cfg.AudioFilters,
		Options:      opts,
	}
	if _, err := ffmpeg.BuildArgs(&params); err != nil {
		return nil, err
	}

	src := capture.NewFFmpegSource(params, audio.NewDetector())
	if cfg.StartupGraceMs > 0 {
		src.StartupGrace = time.Duration(cfg.StartupGraceMs) * time.Millisecond
	}
	return src, nil
}

// ParseOptions splits and validates a comma separated ffmpeg option list.
func ParseOptions(s string) ([]ffmpeg.OptionType, error) {
	var out []ffmpeg.OptionType
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, ffmpeg.OptionType(part))
		}
	}
	if err := ffmpeg.ValidateOptions(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Store is a publish.Store that can be closed.
type Store interface {
	publish.Store
	Close() error
}

// OpenStore opens the sqlite database at path, or an in-memory store when
// path is empty.
func OpenStore(ctx context.Context, path string) (Store, error) {
	if path == "" {
		return store.NewMemory(), nil
	}
	return store.OpenSQLite(ctx, path)
}

// SMTPConfig holds mail relay settings. An empty Host disables delivery.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	TLS       string
	TimeoutMs int
}

// NewMailer returns an SMTP mailer, or mailer.Disabled when no host is set.
func NewMailer(cfg SMTPConfig) (publish.Mailer, error) {
	if cfg.Host == "" {
		return mailer.Disabled{}, nil
	}
	return mailer.New(mailer.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		TLS:      cfg.TLS,
		Timeout:  time.Duration(cfg.TimeoutMs) * time.Millisecond,
	})
}
