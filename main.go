package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/wavering/cmd"
	"github.com/smazurov/wavering/internal/animation"
	"github.com/smazurov/wavering/internal/api"
	"github.com/smazurov/wavering/internal/app"
	"github.com/smazurov/wavering/internal/audio"
	"github.com/smazurov/wavering/internal/config"
	"github.com/smazurov/wavering/internal/events"
	"github.com/smazurov/wavering/internal/logging"
	"github.com/smazurov/wavering/internal/metrics"
	"github.com/smazurov/wavering/internal/publish"
	"github.com/smazurov/wavering/internal/session"
	"github.com/smazurov/wavering/internal/systemd"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port        string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	WatchConfig bool   `help:"Reload logging levels when the config file changes" default:"true" toml:"server.watch_config" env:"SERVER_WATCH_CONFIG"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Visualizer settings
	Width   int `help:"Canvas width in pixels" default:"800" toml:"visualizer.width" env:"VISUALIZER_WIDTH"`
	Height  int `help:"Canvas height in pixels" default:"800" toml:"visualizer.height" env:"VISUALIZER_HEIGHT"`
	FPS     int `help:"Animation frames per second" default:"30" toml:"visualizer.fps" env:"VISUALIZER_FPS"`
	FFTSize int `help:"FFT window size (power of two)" default:"256" toml:"visualizer.fft_size" env:"VISUALIZER_FFT_SIZE"`
	Seed    int `help:"Palette seed (0 picks a random one)" default:"0" toml:"visualizer.seed" env:"VISUALIZER_SEED"`

	// Capture settings
	CaptureSource         string `help:"Audio source (ffmpeg, tone)" default:"ffmpeg" toml:"capture.source" env:"CAPTURE_SOURCE"`
	CaptureDevice         string `help:"Input device passed to ffmpeg -i" default:"default" toml:"capture.device" env:"CAPTURE_DEVICE"`
	CaptureInputFormat    string `help:"ffmpeg input format" default:"alsa" toml:"capture.input_format" env:"CAPTURE_INPUT_FORMAT"`
	CaptureSampleRate     int    `help:"Capture sample rate in Hz" default:"44100" toml:"capture.sample_rate" env:"CAPTURE_SAMPLE_RATE"`
	CaptureFilters        string `help:"ffmpeg audio filter graph" default:"" toml:"capture.filters" env:"CAPTURE_FILTERS"`
	CaptureFFmpegOptions  string `help:"Comma separated ffmpeg option flags" default:"no_buffer" toml:"capture.ffmpeg_options" env:"CAPTURE_FFMPEG_OPTIONS"`
	CaptureStartupGraceMs int    `help:"Time ffmpeg must survive before capture counts as started" default:"300" toml:"capture.startup_grace_ms" env:"CAPTURE_STARTUP_GRACE_MS"`
	FFmpegBinary          string `help:"ffmpeg executable" default:"ffmpeg" toml:"capture.ffmpeg_binary" env:"FFMPEG_BINARY"`

	// Storage settings
	DBPath string `help:"SQLite database path (empty keeps waveforms in memory)" default:"wavering.db" toml:"storage.db_path" env:"STORAGE_DB_PATH"`

	// Mail settings
	SMTPHost      string `help:"SMTP relay host (empty disables email)" default:"" toml:"smtp.host" env:"SMTP_HOST"`
	SMTPPort      int    `help:"SMTP relay port" default:"587" toml:"smtp.port" env:"SMTP_PORT"`
	SMTPUsername  string `help:"SMTP username" default:"" toml:"smtp.username" env:"SMTP_USERNAME"`
	SMTPPassword  string `help:"SMTP password" default:"" toml:"smtp.password" env:"SMTP_PASSWORD"`
	SMTPFrom      string `help:"Sender address" default:"" toml:"smtp.from" env:"SMTP_FROM"`
	SMTPTLS       string `help:"TLS policy (mandatory, opportunistic, none)" default:"mandatory" toml:"smtp.tls" env:"SMTP_TLS"`
	SMTPTimeoutMs int    `help:"SMTP dial and send timeout" default:"15000" toml:"smtp.timeout_ms" env:"SMTP_TIMEOUT_MS"`

	// Observability settings
	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture   string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingFFmpeg    string `help:"ffmpeg process logging level" default:"warn" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingAnimation string `help:"Animation loop logging level" default:"info" toml:"logging.animation" env:"LOGGING_ANIMATION"`
	LoggingSession   string `help:"Session logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingPublish   string `help:"Persist and send logging level" default:"info" toml:"logging.publish" env:"LOGGING_PUBLISH"`
	LoggingStore     string `help:"Storage logging level" default:"info" toml:"logging.store" env:"LOGGING_STORE"`
	LoggingMailer    string `help:"Mailer logging level" default:"info" toml:"logging.mailer" env:"LOGGING_MAILER"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP      string `help:"HTTP access logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"capture":   opts.LoggingCapture,
				"ffmpeg":    opts.LoggingFFmpeg,
				"animation": opts.LoggingAnimation,
				"render":    opts.LoggingAnimation,
				"session":   opts.LoggingSession,
				"publish":   opts.LoggingPublish,
				"store":     opts.LoggingStore,
				"mailer":    opts.LoggingMailer,
				"api":       opts.LoggingAPI,
				"http":      opts.LoggingHTTP,
			},
		})
		logger := logging.GetLogger("main")

		source, err := app.NewSource(app.CaptureConfig{
			Source:         opts.CaptureSource,
			FFmpegBinary:   opts.FFmpegBinary,
			InputFormat:    opts.CaptureInputFormat,
			Device:         opts.CaptureDevice,
			SampleRate:     opts.CaptureSampleRate,
			AudioFilters:   opts.CaptureFilters,
			Options:        opts.CaptureFFmpegOptions,
			StartupGraceMs: opts.CaptureStartupGraceMs,
		})
		if err != nil {
			logger.Error("Invalid capture settings", "error", err)
			os.Exit(1)
		}

		mail, err := app.NewMailer(app.SMTPConfig{
			Host:      opts.SMTPHost,
			Port:      opts.SMTPPort,
			Username:  opts.SMTPUsername,
			Password:  opts.SMTPPassword,
			From:      opts.SMTPFrom,
			TLS:       opts.SMTPTLS,
			TimeoutMs: opts.SMTPTimeoutMs,
		})
		if err != nil {
			logger.Error("Invalid SMTP settings", "error", err)
			os.Exit(1)
		}
		if opts.SMTPHost == "" {
			logger.Info("SMTP host not set, email delivery disabled")
		}

		openCtx, cancelOpen := context.WithTimeout(context.Background(), 10*time.Second)
		waveformStore, err := app.OpenStore(openCtx, opts.DBPath)
		cancelOpen()
		if err != nil {
			logger.Error("Failed to open waveform store", "path", opts.DBPath, "error", err)
			os.Exit(1)
		}

		eventBus := events.New()
		publisher := publish.NewService(waveformStore, mail, publish.WithEventBus(eventBus))

		seed := uint64(opts.Seed)
		if seed == 0 {
			seed = rand.Uint64()
		}

		visualizer, err := session.New(session.Options{
			Source:    source,
			Publisher: publisher,
			Bus:       eventBus,
			Scheduler: animation.NewTickerScheduler(opts.FPS),
			Width:     opts.Width,
			Height:    opts.Height,
			FFTSize:   opts.FFTSize,
			Seed:      seed,
		})
		if err != nil {
			logger.Error("Failed to create visualizer", "error", err)
			os.Exit(1)
		}

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Session:      visualizer,
			Publisher:    publisher,
			Detector:     audio.NewDetector(),
			EventBus:     eventBus,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = metrics.Handler()
		}
		server := api.NewServer(apiOpts)

		notifier := systemd.NewNotifier()
		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if opts.WatchConfig && opts.Config != "" {
				if watchErr := config.WatchLogging(ctx, opts.Config); watchErr != nil {
					logger.Warn("Config watcher disabled", "path", opts.Config, "error", watchErr)
				}
			}
			go notifier.Watchdog(ctx)

			logger.Info("Starting HTTP server", "port", opts.Port, "session", visualizer.ID())
			go func() {
				// Readiness is reported once the listener had a moment to bind.
				time.Sleep(100 * time.Millisecond)
				if notifyErr := notifier.Ready(); notifyErr != nil {
					logger.Warn("Failed to notify systemd", "error", notifyErr)
				}
			}()
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			_ = notifier.Stopping()
			cancel()

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if stopErr := server.Stop(stopCtx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Release the capture device after the server stops accepting requests.
			visualizer.Close()
			if closeErr := waveformStore.Close(); closeErr != nil {
				logger.Error("Error closing waveform store", "error", closeErr)
			}
		})
	})

	cli.Root().Use = "wavering"
	cli.Root().AddCommand(
		cmd.CreateDevicesCmd(),
		cmd.CreateSnapshotCmd(),
		cmd.CreateWaveformsCmd(),
		cmd.CreateUpdateCmd(),
		cmd.CreateVersionCmd(),
	)

	cli.Run()
}
