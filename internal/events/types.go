package events

// Event type constants for kelindar/event.
const (
	TypeCaptureStarted uint32 = iota + 1
	TypeCaptureStopped
	TypeCaptureError
	TypeWaveformSaved
	TypeWaveformSent
	TypeWaveformSendFailed
	TypeConnected
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CaptureStartedEvent is published when a session starts recording.
type CaptureStartedEvent struct {
	SessionID string `json:"session_id" doc:"Session identifier"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureStartedEvent.
func (e CaptureStartedEvent) Type() uint32 { return TypeCaptureStarted }

// CaptureStoppedEvent is published when a recording becomes a stored waveform.
type CaptureStoppedEvent struct {
	SessionID   string  `json:"session_id" doc:"Session identifier"`
	Radius      float64 `json:"radius" example:"80" doc:"Base radius of the stored ring"`
	ColorStart  string  `json:"color_start" example:"hsl(12, 100%, 70%)" doc:"Gradient start colour"`
	ColorEnd    string  `json:"color_end" example:"hsl(250, 100%, 40%)" doc:"Gradient end colour"`
	GallerySize int     `json:"gallery_size" example:"2" doc:"Stored waveforms after this one"`
	Timestamp   string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureStoppedEvent.
func (e CaptureStoppedEvent) Type() uint32 { return TypeCaptureStopped }

// CaptureErrorEvent is published when a device could not be acquired.
type CaptureErrorEvent struct {
	SessionID string `json:"session_id" doc:"Session identifier"`
	Code      string `json:"code" example:"PERMISSION_DENIED" doc:"PERMISSION_DENIED, DEVICE_UNAVAILABLE or CAPTURE_DISCARDED"`
	Message   string `json:"message" example:"Error accessing microphone" doc:"User-facing message"`
	Error     string `json:"error" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }

// WaveformSavedEvent is published after a surface image is persisted.
type WaveformSavedEvent struct {
	SessionID string `json:"session_id,omitempty" doc:"Session identifier, empty for client uploads"`
	RecordID  int64  `json:"record_id" example:"12" doc:"Stored record id"`
	Email     string `json:"email,omitempty" doc:"Associated email, if any"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WaveformSavedEvent.
func (e WaveformSavedEvent) Type() uint32 { return TypeWaveformSaved }

// WaveformSentEvent is published after a waveform is emailed.
type WaveformSentEvent struct {
	SessionID string `json:"session_id,omitempty" doc:"Session identifier, empty for client uploads"`
	RecordID  int64  `json:"record_id" example:"12" doc:"Stored record id"`
	Email     string `json:"email" doc:"Recipient"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WaveformSentEvent.
func (e WaveformSentEvent) Type() uint32 { return TypeWaveformSent }

// WaveformSendFailedEvent is published when persist or delivery fails.
// RecordID is set when the image was saved but the email was not delivered.
type WaveformSendFailedEvent struct {
	SessionID string `json:"session_id,omitempty" doc:"Session identifier, empty for client uploads"`
	Reason    string `json:"reason" example:"deliveryFailed" doc:"missingEmail, persistFailed or deliveryFailed"`
	RecordID  int64  `json:"record_id,omitempty" doc:"Stored record id when the save succeeded"`
	Error     string `json:"error" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WaveformSendFailedEvent.
func (e WaveformSendFailedEvent) Type() uint32 { return TypeWaveformSendFailed }

// ConnectedEvent is the first message on every SSE connection.
type ConnectedEvent struct {
	SessionID string `json:"session_id" doc:"Session the stream reports on"`
	Message   string `json:"message" example:"SSE connection established" doc:"Greeting"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ConnectedEvent.
func (e ConnectedEvent) Type() uint32 { return TypeConnected }
