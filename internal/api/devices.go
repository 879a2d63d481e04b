package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/wavering/internal/api/models"
)

// registerDeviceRoutes registers GET /api/devices/audio.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-audio-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices/audio",
		Summary:     "List Audio Devices",
		Description: "ALSA capture devices and whether this process may open them",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(context.Context, *struct{}) (*models.AudioDevicesResponse, error) {
		devices, err := s.detector.ListDevices()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to enumerate audio devices", err)
		}

		out := make([]models.AudioDevice, len(devices))
		for i, d := range devices {
			out[i] = models.AudioDevice{
				CardNumber:   d.CardNumber,
				CardID:       d.CardID,
				CardName:     d.CardName,
				DeviceNumber: d.DeviceNumber,
				DeviceName:   d.DeviceName,
				ALSADevice:   d.ALSADevice,
				Path:         d.Path,
				Accessible:   d.Accessible,
				Error:        d.Error,
			}
		}
		return &models.AudioDevicesResponse{
			Body: models.AudioDevicesData{Devices: out, Count: len(out)},
		}, nil
	})
}
