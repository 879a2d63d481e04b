package ffmpeg

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNoDevice is returned when no capture device is given.
var ErrNoDevice = errors.New("capture device is required")

// BuildArgs builds the ffmpeg argument list (without the binary) for p.
func BuildArgs(p *Params) ([]string, error) {
	if strings.TrimSpace(p.Device) == "" {
		return nil, ErrNoDevice
	}
	if err := ValidateOptions(p.Options); err != nil {
		return nil, err
	}

	format := p.InputFormat
	if format == "" {
		format = DefaultInputFormat
	}
	rate := p.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	channels := p.Channels
	if channels <= 0 {
		channels = 1
	}
	level := p.LogLevel
	if level == "" {
		level = DefaultLogLevel
	}

	args := []string{"-hide_banner", "-nostdin", "-loglevel", "level+" + level}
	for _, opt := range p.Options {
		args = append(args, opt.inputArgs()...)
	}
	if format != "lavfi" {
		args = append(args, "-thread_queue_size", "1024")
	}
	args = append(args, "-f", format, "-i", p.Device)

	if p.AudioFilters != "" {
		args = append(args, "-af", p.AudioFilters)
	}
	args = append(args,
		"-vn",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(rate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)
	return args, nil
}

// BuildCommand renders p as a single command line, for logging.
func BuildCommand(p *Params) (string, error) {
	args, err := BuildArgs(p)
	if err != nil {
		return "", err
	}
	return Binary(p) + " " + strings.Join(args, " "), nil
}

// Binary returns the ffmpeg executable for p.
func Binary(p *Params) string {
	if p.Binary != "" {
		return p.Binary
	}
	return "ffmpeg"
}
