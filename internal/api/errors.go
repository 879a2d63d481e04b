package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/wavering/internal/capture"
	"github.com/smazurov/wavering/internal/logging"
	"github.com/smazurov/wavering/internal/publish"
	"github.com/smazurov/wavering/internal/render"
	"github.com/smazurov/wavering/internal/session"
)

// clientError logs the cause and returns an error carrying only msg and
// details. Causes name files, hosts and ffmpeg output and stay server-side.
func clientError(status int, msg string, cause error, details ...error) huma.StatusError {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.GetLogger("api").Log(context.Background(), level, msg, "status", status, "error", cause)
	return huma.NewError(status, msg, details...)
}

// captureError maps a failed recording start or stop to a status code.
func captureError(err error) huma.StatusError {
	var ce *capture.Error
	switch {
	case errors.As(err, &ce) && ce.Code == capture.CodeCaptureDiscarded:
		return clientError(http.StatusInternalServerError, "Recording could not be stored", err)
	case errors.As(err, &ce) && ce.Code == capture.CodePermissionDenied:
		return clientError(http.StatusForbidden, "Microphone access was denied", err)
	case errors.As(err, &ce):
		return clientError(http.StatusServiceUnavailable, "Error accessing microphone", err)
	case errors.Is(err, session.ErrClosed), errors.Is(err, capture.ErrControllerClosed):
		return clientError(http.StatusConflict, "Visualizer session is closed", err)
	default:
		return clientError(http.StatusInternalServerError, "Failed to start recording", err)
	}
}

// publishError maps persist and delivery failures to status codes. The
// messages follow the original web server's wording.
func publishError(err error) huma.StatusError {
	var pe *publish.Error
	if !errors.As(err, &pe) {
		switch {
		case errors.Is(err, render.ErrExport):
			return clientError(http.StatusInternalServerError, "Failed to export the canvas", err)
		case errors.Is(err, session.ErrClosed):
			return clientError(http.StatusConflict, "Visualizer session is closed", err)
		}
		return clientError(http.StatusInternalServerError, "Unexpected error", err)
	}

	switch pe.Reason {
	case publish.ReasonMissingImageData:
		return clientError(http.StatusBadRequest, "Missing image data", err)
	case publish.ReasonMissingEmail:
		return clientError(http.StatusBadRequest, "Missing email or image data", err)
	case publish.ReasonInvalidImageData, publish.ReasonInvalidEmail:
		return clientError(http.StatusUnprocessableEntity, pe.Message, err)
	case publish.ReasonBackendUnavailable:
		return clientError(http.StatusServiceUnavailable, "Error saving to database", err)
	case publish.ReasonPersistFailed:
		return clientError(http.StatusInternalServerError, "Error saving to database", err)
	case publish.ReasonDeliveryFailed:
		detail := &huma.ErrorDetail{
			Message:  "waveform was saved",
			Location: "body.record_id",
		}
		if pe.Record != nil {
			detail.Value = pe.Record.ID
		}
		return clientError(http.StatusBadGateway,
			"Waveform saved, but there was an error sending the email.", err, detail)
	default:
		return clientError(http.StatusInternalServerError, pe.Message, err)
	}
}
