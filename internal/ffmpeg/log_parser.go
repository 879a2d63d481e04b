package ffmpeg

import (
	"log/slog"
	"strings"
)

// ParseLogLevel extracts the level from a line written with -loglevel level+X.
// Lines look like "[error] message" or "[alsa @ 0x55d0] [warning] message";
// the component prefix is kept and only the level tag is removed. Lines without
// a level tag are reported at info.
func ParseLogLevel(line string) (slog.Level, string) {
	if len(line) < 3 || line[0] != '[' {
		return slog.LevelInfo, line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return slog.LevelInfo, line
	}
	if lvl, ok := levelOf(line[1:end]); ok {
		return lvl, line[end+2:]
	}

	component, rest := line[:end+2], line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if next := strings.Index(rest, "] "); next != -1 {
			if lvl, ok := levelOf(rest[1:next]); ok {
				return lvl, component + rest[next+2:]
			}
		}
	}
	return slog.LevelInfo, line
}

func levelOf(tag string) (slog.Level, bool) {
	switch tag {
	case "quiet", "panic", "fatal", "error":
		return slog.LevelError, true
	case "warning":
		return slog.LevelWarn, true
	case "info", "verbose":
		return slog.LevelInfo, true
	case "debug", "trace":
		return slog.LevelDebug, true
	}
	return slog.LevelInfo, false
}
