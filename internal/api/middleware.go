package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/wavering/internal/logging"
	"github.com/smazurov/wavering/internal/metrics"
)

// HTTPLoggingMiddleware logs each request at a level chosen by its status
// and records its latency.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)
	duration := time.Since(start)
	status := ctx.Status()

	operation := "unknown"
	if op := ctx.Operation(); op != nil {
		operation = op.OperationID
	}
	metrics.ObserveHTTPRequest(operation, status, duration)

	attrs := []slog.Attr{
		slog.String("method", ctx.Method()),
		slog.String("path", ctx.URL().Path),
		slog.String("operation", operation),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if ua := ctx.Header("User-Agent"); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}

	level := slog.LevelInfo
	switch {
	case ctx.Method() == http.MethodOptions:
		level = slog.LevelDebug
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	logging.GetLogger("http").LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}
