package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	Port       string        `toml:"server.port" env:"PORT"`
	Record     bool          `toml:"capture.autostart" env:"AUTOSTART"`
	FFTSize    int           `toml:"capture.fft_size" env:"FFT_SIZE"`
	Seed       uint64        `toml:"render.seed" env:"SEED"`
	Smoothing  float64       `toml:"capture.smoothing" env:"SMOOTHING"`
	Grace      time.Duration `toml:"capture.startup_grace" env:"STARTUP_GRACE"`
	FFmpegOpts []string      `toml:"ffmpeg.options" env:"FFMPEG_OPTIONS"`
	SMTPHost   string        `toml:"smtp.host" env:"SMTP_HOST"`
}

const testTOML = `
[server]
port = ":9090"

[capture]
autostart = true
fft_size = 512
smoothing = 0.5
startup_grace = "2s"

[render]
seed = 42

[ffmpeg]
options = ["nobuffer", "realtime"]

[smtp]
host = "smtp.example.com"
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wavering.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	opts := testOptions{Config: writeFile(t, testTOML), Port: ":8090"}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatal(err)
	}

	want := testOptions{
		Config:     opts.Config,
		Port:       ":9090",
		Record:     true,
		FFTSize:    512,
		Seed:       42,
		Smoothing:  0.5,
		Grace:      2 * time.Second,
		FFmpegOpts: []string{"nobuffer", "realtime"},
		SMTPHost:   "smtp.example.com",
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("got %+v\nwant %+v", opts, want)
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	t.Setenv("WAVERING_PORT", ":7070")
	t.Setenv("WAVERING_FFT_SIZE", "1024")
	t.Setenv("WAVERING_STARTUP_GRACE", "250ms")
	t.Setenv("WAVERING_FFMPEG_OPTIONS", "nobuffer, wallclock")

	opts := testOptions{Config: writeFile(t, testTOML)}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatal(err)
	}
	if opts.Port != ":7070" || opts.FFTSize != 1024 || opts.Grace != 250*time.Millisecond {
		t.Errorf("env not applied: %+v", opts)
	}
	if !reflect.DeepEqual(opts.FFmpegOpts, []string{"nobuffer", "wallclock"}) {
		t.Errorf("ffmpeg options = %v", opts.FFmpegOpts)
	}
	if opts.SMTPHost != "smtp.example.com" {
		t.Error("TOML value lost")
	}
}

func TestFlagsWin(t *testing.T) {
	t.Setenv("WAVERING_PORT", ":7070")
	opts := testOptions{Config: writeFile(t, testTOML)}

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.Port, "port", ":8090", "")
	cmd.Flags().StringVar(&opts.SMTPHost, "smtp-host", "", "")
	if err := cmd.Flags().Parse([]string{"--port", ":6060", "--smtp-host", "mail.local"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(&opts, cmd); err != nil {
		t.Fatal(err)
	}
	if opts.Port != ":6060" {
		t.Errorf("port = %q, want flag value", opts.Port)
	}
	if opts.SMTPHost != "mail.local" {
		t.Errorf("smtp host = %q, want flag value", opts.SMTPHost)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{"bad toml", "[server\nport=", nil},
		{"wrong type", "[capture]\nfft_size = \"big\"\n", nil},
		{"bad env int", "", map[string]string{"WAVERING_FFT_SIZE": "lots"}},
		{"bad env duration", "", map[string]string{"WAVERING_STARTUP_GRACE": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := testOptions{Config: writeFile(t, tt.toml)}
			if err := LoadConfig(&opts, nil); err == nil {
				t.Error("expected error")
			}
		})
	}

	var notPtr testOptions
	if err := LoadConfig(notPtr, nil); err == nil {
		t.Error("expected error for non-pointer")
	}
}

func TestMissingFileIsIgnored(t *testing.T) {
	opts := testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), Port: ":8090"}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatal(err)
	}
	if opts.Port != ":8090" {
		t.Errorf("default changed: %q", opts.Port)
	}
}

func TestFlagName(t *testing.T) {
	tests := map[string]string{
		"Port":          "port",
		"LoggingLevel":  "logging-level",
		"SMTPHost":      "smtp-host",
		"FFTSize":       "fft-size",
		"CaptureDevice": "capture-device",
	}
	for in, want := range tests {
		if got := flagName(in); got != want {
			t.Errorf("flagName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeFile(t, "[logging]\nlevel = \"debug\"\nformat = \"json\"\ncapture = \"warn\"\n")
	cfg, err := LoadLoggingConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Level != "debug" || cfg.Format != "json" || cfg.Modules["capture"] != "warn" {
		t.Errorf("cfg = %+v", cfg)
	}

	cfg, err = LoadLoggingConfig(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil || cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("defaults = %+v, %v", cfg, err)
	}
}
