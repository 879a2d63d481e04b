package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/wavering/internal/events"
)

// registerSSERoutes registers the event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Recording, capture error, save and delivery events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"connected":          events.ConnectedEvent{},
		"capture-started":    events.CaptureStartedEvent{},
		"capture-stopped":    events.CaptureStoppedEvent{},
		"capture-error":      events.CaptureErrorEvent{},
		"waveform-saved":     events.WaveformSavedEvent{},
		"waveform-sent":      events.WaveformSentEvent{},
		"waveform-send-fail": events.WaveformSendFailedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)
		unsubscribe := events.SubscribeAll(s.eventBus, eventCh)
		defer unsubscribe()

		var sessionID string
		if s.session != nil {
			sessionID = s.session.ID()
		}
		if err := send.Data(events.ConnectedEvent{
			SessionID: sessionID,
			Message:   "SSE connection established",
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
