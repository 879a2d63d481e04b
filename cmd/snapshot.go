package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/wavering/internal/animation"
	"github.com/smazurov/wavering/internal/app"
	"github.com/smazurov/wavering/internal/capture"
	"github.com/smazurov/wavering/internal/logging"
	"github.com/smazurov/wavering/internal/mailer"
	"github.com/smazurov/wavering/internal/publish"
	"github.com/smazurov/wavering/internal/render"
	"github.com/smazurov/wavering/internal/waveform"
)

// SnapshotOptions configures a headless capture.
type SnapshotOptions struct {
	Capture  app.CaptureConfig
	Takes    int
	Duration time.Duration
	Width    int
	Height   int
	FFTSize  int
	Seed     uint64
	Output   string
	DBPath   string
	Email    string
}

// CreateSnapshotCmd creates the snapshot command.
func CreateSnapshotCmd() *cobra.Command {
	opts := SnapshotOptions{}
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture waveforms headlessly and write the frame as PNG",
		Long: `Records --takes waveforms of --duration each from the configured source, ` +
			`draws one frame of the gallery and writes it to --output. With --db the frame ` +
			`is also saved to the waveform archive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := "text"
			if logJSON {
				format = "json"
			}
			logging.Initialize(logging.Config{Level: "info", Format: format})

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			return RunSnapshot(ctx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Capture.Source, "source", app.SourceTone, "Audio source (ffmpeg, tone)")
	f.StringVar(&opts.Capture.Device, "device", "", "Input device passed to ffmpeg -i")
	f.StringVar(&opts.Capture.InputFormat, "input-format", "alsa", "ffmpeg input format")
	f.StringVar(&opts.Capture.FFmpegBinary, "ffmpeg", "ffmpeg", "ffmpeg executable")
	f.IntVar(&opts.Capture.SampleRate, "sample-rate", 44100, "Capture sample rate in Hz")
	f.StringVar(&opts.Capture.Options, "ffmpeg-options", "no_buffer", "Comma separated ffmpeg option flags")
	f.IntVarP(&opts.Takes, "takes", "n", 3, "Number of waveforms to record")
	f.DurationVarP(&opts.Duration, "duration", "d", time.Second, "Recording time per waveform")
	f.IntVar(&opts.Width, "width", 800, "Image width")
	f.IntVar(&opts.Height, "height", 800, "Image height")
	f.IntVar(&opts.FFTSize, "fft-size", 256, "FFT window size")
	f.Uint64Var(&opts.Seed, "seed", 1, "Palette seed")
	f.StringVarP(&opts.Output, "output", "o", "waveform.png", "PNG file to write (empty skips the file)")
	f.StringVar(&opts.DBPath, "db", "", "Also save the frame to this sqlite archive")
	f.StringVar(&opts.Email, "email", "", "Email stored with the saved frame")
	f.BoolVar(&logJSON, "log-json", false, "Log in JSON")
	return cmd
}

// RunSnapshot records opts.Takes waveforms and writes the resulting frame.
func RunSnapshot(ctx context.Context, opts SnapshotOptions) error {
	logger := logging.GetLogger("snapshot")
	if opts.Takes < 1 {
		return errors.New("takes must be at least 1")
	}

	source, err := app.NewSource(opts.Capture)
	if err != nil {
		return err
	}
	surface, err := render.NewSurface(opts.Width, opts.Height)
	if err != nil {
		return err
	}

	gallery := waveform.NewGallery()
	controller := capture.NewController(capture.ControllerOptions{
		Source:  source,
		FFTSize: opts.FFTSize,
		Gallery: gallery,
		Palette: waveform.NewPalette(opts.Seed),
	})
	defer controller.Shutdown()

	loop := animation.NewLoop(animation.Options{
		Scheduler: animation.NewManualScheduler(),
		Surface:   surface,
		Live:      controller,
		Gallery:   gallery,
	})

	for take := range opts.Takes {
		if _, err := controller.Start(ctx); err != nil {
			return fmt.Errorf("take %d: %w", take+1, err)
		}
		select {
		case <-ctx.Done():
			_, _ = controller.Stop()
			return ctx.Err()
		case <-time.After(opts.Duration):
		}
		wf, err := controller.Stop()
		if err != nil {
			return fmt.Errorf("take %d: %w", take+1, err)
		}
		if wf != nil {
			logger.Info("Waveform recorded", "take", take+1, "radius", wf.Radius)
		}
	}

	drawn := loop.Draw()
	logger.Info("Frame drawn", "waveforms", drawn)

	if opts.Output != "" {
		png, err := surface.Export()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.Output, png, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", opts.Output, err)
		}
		logger.Info("PNG written", "path", opts.Output, "bytes", len(png))
	}

	if opts.DBPath != "" {
		return saveSnapshot(ctx, opts, surface)
	}
	return nil
}

func saveSnapshot(ctx context.Context, opts SnapshotOptions, surface *render.Surface) error {
	st, err := app.OpenStore(ctx, opts.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	uri, err := surface.ExportDataURI()
	if err != nil {
		return err
	}
	var email *string
	if opts.Email != "" {
		email = &opts.Email
	}
	rec, err := publish.NewService(st, mailer.Disabled{}).Persist(ctx, email, uri)
	if err != nil {
		return err
	}
	logging.GetLogger("snapshot").Info("Frame saved", "id", rec.ID, "db", opts.DBPath)
	return nil
}
