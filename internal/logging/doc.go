// Package logging provides slog loggers with per-module levels.
//
// Output goes to stdout (text or json) and, on hosts running journald, to the
// systemd journal as well. Every module gets its own *slog.Logger backed by a
// slog.LevelVar, so levels can change at runtime without handing out new
// loggers.
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"capture": "debug",
//			"ffmpeg":  "warn",
//		},
//	})
//
//	logger := logging.GetLogger("session").With("session_id", id)
//	logger.Info("Capture started")
//
// Loggers created before Initialize log at info to stdout and pick up the
// configured levels once Initialize runs. SetLevels applies a new [logging]
// section in place; the config watcher calls it when the file changes.
//
// Journal entries carry the identifier "wavering" and upper-cased attribute
// names:
//
//	journalctl -t wavering MODULE=capture
//	journalctl -t wavering -p err --since "5m"
//
// TOML form:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	capture = "debug"
//	animation = "error"
package logging
