package capture

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/wavering/internal/ffmpeg"
	"github.com/smazurov/wavering/internal/logging"
)

// Prober checks that a named capture device can be opened before ffmpeg is
// spawned. *audio.ProcDetector implements it.
type Prober interface {
	Probe(device string) error
}

// FFmpegSource captures a microphone through an ffmpeg subprocess that writes
// s16le PCM to its stdout.
type FFmpegSource struct {
	Params ffmpeg.Params
	Prober Prober

	// StartupGrace bounds how long Open waits for the first samples before
	// handing out the device anyway.
	StartupGrace time.Duration
	// StopTimeout bounds the wait after SIGINT before the process is killed.
	StopTimeout time.Duration

	Logger       logging.Logger
	FFmpegLogger *slog.Logger
}

// NewFFmpegSource creates a source with default timeouts and loggers.
func NewFFmpegSource(params ffmpeg.Params, prober Prober) *FFmpegSource {
	return &FFmpegSource{
		Params:       params,
		Prober:       prober,
		StartupGrace: 750 * time.Millisecond,
		StopTimeout:  2 * time.Second,
		Logger:       logging.GetLogger("capture"),
		FFmpegLogger: logging.GetLogger("ffmpeg"),
	}
}

// Open implements Source.
func (s *FFmpegSource) Open(ctx context.Context, fftSize int) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := s.Params

	bin, err := exec.LookPath(ffmpeg.Binary(&params))
	if err != nil {
		return nil, DeviceUnavailable("ffmpeg is not installed", err)
	}

	if s.Prober != nil && (params.InputFormat == "" || params.InputFormat == "alsa") {
		if err := s.Prober.Probe(params.Device); err != nil {
			return nil, probeError(params.Device, err)
		}
	}

	args, err := ffmpeg.BuildArgs(&params)
	if err != nil {
		return nil, DeviceUnavailable("invalid capture parameters", err)
	}

	pcm, err := newPCMAnalyser(fftSize)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(bin, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, DeviceUnavailable("failed to create stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, DeviceUnavailable("failed to create stderr pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, DeviceUnavailable("failed to start ffmpeg", err)
	}

	logger := s.logger()
	logger.Info("Capture process started", "pid", cmd.Process.Pid, "device", params.Device, "command", bin+" "+strings.Join(args, " "))

	d := &ffmpegDevice{
		pcmAnalyser: pcm,
		cmd:         cmd,
		channels:    max(params.Channels, 1),
		stopTimeout: s.StopTimeout,
		logger:      logger,
		ffLogger:    s.ffmpegLogger(),
		firstData:   make(chan struct{}),
		exited:      make(chan struct{}),
	}
	d.run(stdout, stderr)

	grace := s.StartupGrace
	if grace <= 0 {
		grace = 750 * time.Millisecond
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-d.firstData:
		return d, nil
	case <-d.exited:
		return nil, d.exitError(params.Device)
	case <-timer.C:
		logger.Warn("No audio received yet, continuing", "device", params.Device, "grace", grace)
		return d, nil
	case <-ctx.Done():
		_ = d.Close()
		return nil, ctx.Err()
	}
}

func (s *FFmpegSource) logger() logging.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logging.GetLogger("capture")
}

func (s *FFmpegSource) ffmpegLogger() *slog.Logger {
	if s.FFmpegLogger != nil {
		return s.FFmpegLogger
	}
	return logging.GetLogger("ffmpeg")
}

func probeError(device string, err error) error {
	switch {
	case os.IsPermission(err):
		return PermissionDenied(fmt.Sprintf("no permission to open %s", device), err)
	case os.IsNotExist(err):
		return DeviceUnavailable(fmt.Sprintf("capture device %s does not exist", device), err)
	default:
		return DeviceUnavailable(fmt.Sprintf("capture device %s cannot be opened", device), err)
	}
}

const stderrTail = 8

type ffmpegDevice struct {
	*pcmAnalyser

	cmd         *exec.Cmd
	channels    int
	stopTimeout time.Duration
	logger      logging.Logger
	ffLogger    *slog.Logger

	firstOnce sync.Once
	firstData chan struct{}
	exited    chan struct{}
	waitErr   error

	tailMu sync.Mutex
	tail   []string

	closeOnce sync.Once
	closeErr  error
}

func (d *ffmpegDevice) run(stdout, stderr io.Reader) {
	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		d.readPCM(stdout)
	}()
	go func() {
		defer readers.Done()
		d.readLog(stderr)
	}()
	go func() {
		// Wait closes the pipes, so both readers must be done first.
		readers.Wait()
		d.waitErr = d.cmd.Wait()
		close(d.exited)
	}()
}

// readPCM decodes interleaved little-endian int16 frames, downmixes them to
// mono and feeds the analyser ring.
func (d *ffmpegDevice) readPCM(r io.Reader) {
	frameBytes := 2 * d.channels
	buf := make([]byte, 4096*frameBytes)
	samples := make([]float64, 0, 4096)
	carry := 0

	for {
		n, err := r.Read(buf[carry:])
		n += carry
		frames := n / frameBytes
		if frames > 0 {
			samples = samples[:0]
			for f := 0; f < frames; f++ {
				var sum float64
				for c := 0; c < d.channels; c++ {
					off := f*frameBytes + 2*c
					sum += float64(int16(binary.LittleEndian.Uint16(buf[off:]))) / 32768
				}
				samples = append(samples, sum/float64(d.channels))
			}
			d.ring.Write(samples)
			d.firstOnce.Do(func() { close(d.firstData) })
		}
		carry = copy(buf, buf[frames*frameBytes:n])
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				d.logger.Warn("Error reading audio", "error", err)
			}
			return
		}
	}
}

func (d *ffmpegDevice) readLog(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		level, msg := ffmpeg.ParseLogLevel(line)
		d.ffLogger.Log(context.Background(), level, msg)

		d.tailMu.Lock()
		d.tail = append(d.tail, line)
		if len(d.tail) > stderrTail {
			d.tail = d.tail[len(d.tail)-stderrTail:]
		}
		d.tailMu.Unlock()
	}
}

// exitError classifies an ffmpeg that quit before producing audio, using the
// last lines it wrote to stderr.
func (d *ffmpegDevice) exitError(device string) error {
	d.tailMu.Lock()
	output := strings.Join(d.tail, "\n")
	last := ""
	if len(d.tail) > 0 {
		last = d.tail[len(d.tail)-1]
	}
	d.tailMu.Unlock()

	cause := d.waitErr
	if last != "" {
		cause = fmt.Errorf("%s: %w", last, errOrExit(d.waitErr))
	}

	lower := strings.ToLower(output)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "operation not permitted") {
		return PermissionDenied(fmt.Sprintf("no permission to capture from %s", device), cause)
	}
	return DeviceUnavailable(fmt.Sprintf("ffmpeg exited while opening %s", device), cause)
}

func errOrExit(err error) error {
	if err == nil {
		return errors.New("exited")
	}
	return err
}

// Close stops the ffmpeg process group with SIGINT, killing it if it does
// not exit in time.
func (d *ffmpegDevice) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.stop()
	})
	return d.closeErr
}

func (d *ffmpegDevice) stop() error {
	select {
	case <-d.exited:
		return nil
	default:
	}

	pid := d.cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGINT); err != nil && !errors.Is(err, syscall.ESRCH) {
		d.logger.Warn("Failed to send SIGINT", "pid", pid, "error", err)
	}

	timeout := d.stopTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	select {
	case <-d.exited:
		return nil
	case <-time.After(timeout):
	}

	d.logger.Warn("Capture process did not stop, killing", "pid", pid, "timeout", timeout)
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill ffmpeg: %w", err)
	}
	select {
	case <-d.exited:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("ffmpeg pid %d did not exit after kill", pid)
	}
}
