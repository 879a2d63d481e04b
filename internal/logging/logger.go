package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger is the subset of *slog.Logger that components depend on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

type registry struct {
	mu          sync.RWMutex
	config      Config
	initialized bool
	output      io.Writer
	global      slog.LevelVar
	loggers     map[string]*slog.Logger
	levels      map[string]*slog.LevelVar
}

var reg = newRegistry()

func newRegistry() *registry {
	return &registry{
		output:  os.Stdout,
		loggers: make(map[string]*slog.Logger),
		levels:  make(map[string]*slog.LevelVar),
	}
}

// Initialize sets up the logging system. Loggers handed out earlier keep
// working and pick up the new levels and format.
func Initialize(config Config) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.config = config
	reg.initialized = true
	reg.global.Set(reg.levelFor(""))

	for module, lv := range reg.levels {
		lv.Set(reg.levelFor(module))
		*reg.loggers[module] = *slog.New(reg.handler(lv)).With("module", module)
	}

	slog.SetDefault(slog.New(reg.handler(&reg.global)))
}

// SetLevels applies the levels of config without rebuilding handlers.
// Used when the config file changes at runtime.
func SetLevels(config Config) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.config.Level = config.Level
	reg.config.Modules = config.Modules
	reg.global.Set(reg.levelFor(""))
	for module, lv := range reg.levels {
		lv.Set(reg.levelFor(module))
	}
}

// SetOutput redirects the text/json handler. Call before Initialize.
func SetOutput(w io.Writer) {
	reg.mu.Lock()
	reg.output = w
	reg.mu.Unlock()
}

// GetLogger returns the logger for module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	reg.mu.RLock()
	logger, ok := reg.loggers[module]
	reg.mu.RUnlock()
	if ok {
		return logger
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if logger, ok := reg.loggers[module]; ok {
		return logger
	}

	lv := &slog.LevelVar{}
	lv.Set(reg.levelFor(module))
	logger = slog.New(reg.handler(lv)).With("module", module)
	reg.loggers[module] = logger
	reg.levels[module] = lv
	return logger
}

// levelFor resolves the level of module from the current config. An empty
// module resolves the global level. Caller holds mu.
func (r *registry) levelFor(module string) slog.Level {
	level := slog.LevelInfo
	if !r.initialized {
		return level
	}
	if l, ok := parseLevel(r.config.Level); ok {
		level = l
	}
	if module != "" {
		if l, ok := parseLevel(r.config.Modules[module]); ok {
			level = l
		}
	}
	return level
}

// handler builds the output chain: stdout (text or json) plus the systemd
// journal when one is reachable. Caller holds mu.
func (r *registry) handler(level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var out slog.Handler
	if r.initialized && r.config.Format == "json" {
		out = slog.NewJSONHandler(r.output, opts)
	} else {
		out = slog.NewTextHandler(r.output, opts)
	}

	if !r.initialized || !IsJournalAvailable() {
		return out
	}
	journal := NewJournalHandler(level)
	if r.output == os.Stdout && !isStdoutAvailable() {
		return journal
	}
	return NewMultiHandler(out, journal)
}

// isStdoutAvailable reports whether stdout goes somewhere useful (terminal,
// pipe, socket or file rather than /dev/null).
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&os.ModeCharDevice != 0 || mode&os.ModeNamedPipe != 0 || mode&os.ModeSocket != 0 || mode.IsRegular()
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
