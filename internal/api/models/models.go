// Package models holds the request and response shapes of the HTTP API.
package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

type VersionData struct {
	Name      string `json:"name" example:"wavering" doc:"Program name"`
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.1" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Operating system and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Audio device models
type AudioDevice struct {
	CardNumber   int    `json:"card_number" example:"1" doc:"Sound card index"`
	CardID       string `json:"card_id" example:"Microphone" doc:"Card identifier"`
	CardName     string `json:"card_name" example:"USB Microphone" doc:"Full card name"`
	DeviceNumber int    `json:"device_number" example:"0" doc:"Device index on card"`
	DeviceName   string `json:"device_name" example:"USB Audio" doc:"Device name"`
	ALSADevice   string `json:"alsa_device" example:"hw:1,0" doc:"ALSA device string for FFmpeg"`
	Path         string `json:"path" example:"/dev/snd/pcmC1D0c" doc:"Capture device node"`
	Accessible   bool   `json:"accessible" doc:"Whether this process can open the device"`
	Error        string `json:"error,omitempty" doc:"Why the device cannot be opened"`
}

type AudioDevicesData struct {
	Devices []AudioDevice `json:"devices" doc:"Capture devices found"`
	Count   int           `json:"count" example:"1" doc:"Number of devices found"`
}

type AudioDevicesResponse struct {
	Body AudioDevicesData
}

// Session models
type SessionData struct {
	ID          string `json:"id" doc:"Session identifier"`
	State       string `json:"state" enum:"idle,recording" doc:"Recording state"`
	GallerySize int    `json:"gallery_size" example:"3" doc:"Stored waveforms"`
	Frames      uint64 `json:"frames" example:"1024" doc:"Frames drawn since startup"`
	Email       string `json:"email,omitempty" doc:"Address used by save and send"`
	Width       int    `json:"width" example:"800" doc:"Surface width in pixels"`
	Height      int    `json:"height" example:"800" doc:"Surface height in pixels"`
}

type SessionResponse struct {
	Body SessionData
}

type StartData struct {
	Started bool        `json:"started" doc:"False when a recording was already in progress"`
	Session SessionData `json:"session"`
}

type StartResponse struct {
	Body StartData
}

type WaveformData struct {
	Radius     float64 `json:"radius" example:"80" doc:"Base radius of the ring"`
	ColorStart string  `json:"color_start" example:"hsl(12, 100%, 70%)" doc:"Gradient start colour"`
	ColorEnd   string  `json:"color_end" example:"hsl(250, 100%, 40%)" doc:"Gradient end colour"`
	Bins       int     `json:"bins" example:"128" doc:"Frequency bins in the snapshot"`
}

type StopData struct {
	Stored  *WaveformData `json:"stored,omitempty" doc:"The stored waveform; absent when nothing was recording"`
	Session SessionData   `json:"session"`
}

type StopResponse struct {
	Body StopData
}

type FrameResponse struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

type EmailRequest struct {
	Body struct {
		Email string `json:"email" maxLength:"320" doc:"Address for save and send; empty clears it"`
	}
}

// Waveform record models
type WaveformRecord struct {
	ID        int64     `json:"id" example:"12" doc:"Record id"`
	Email     *string   `json:"email" doc:"Associated email, null when saved without one"`
	ImageData string    `json:"imageData" doc:"PNG data URI"`
	CreatedAt time.Time `json:"createdAt" doc:"When the record was stored"`
}

type SaveWaveformRequest struct {
	Body struct {
		Email     string `json:"email,omitempty" doc:"Optional email stored with the image"`
		ImageData string `json:"imageData" doc:"data:image/png;base64,... image of the canvas"`
	}
}

type SendWaveformRequest struct {
	Body struct {
		Email     string `json:"email" doc:"Recipient"`
		ImageData string `json:"imageData" doc:"data:image/png;base64,... image of the canvas"`
	}
}

type SaveData struct {
	Message string `json:"message" example:"Waveform saved successfully!" doc:"Outcome"`
	ID      int64  `json:"id" example:"12" doc:"Stored record id"`
}

type SaveResponse struct {
	Body SaveData
}

type WaveformListData struct {
	Message string           `json:"message" example:"success" doc:"Outcome"`
	Data    []WaveformRecord `json:"data" doc:"Records, newest first"`
}

type WaveformListResponse struct {
	Body WaveformListData
}
