package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/wavering/internal/api/models"
)

// registerWaveformRoutes registers the archive endpoints used by browser
// clients that render and export on their own.
func (s *Server) registerWaveformRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "save-waveform",
		Method:        http.MethodPost,
		Path:          "/api/save-waveform",
		Summary:       "Save Waveform",
		Description:   "Store a client-rendered image, optionally with an email",
		Tags:          []string{"waveforms"},
		Security:      withAuth(),
		MaxBodyBytes:  MaxImageBodyBytes,
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 401, 422, 503},
	}, func(ctx context.Context, input *models.SaveWaveformRequest) (*models.SaveResponse, error) {
		var email *string
		if input.Body.Email != "" {
			email = &input.Body.Email
		}
		rec, err := s.publisher.Persist(ctx, email, input.Body.ImageData)
		if err != nil {
			return nil, publishError(err)
		}
		return &models.SaveResponse{
			Body: models.SaveData{Message: "Waveform saved successfully!", ID: rec.ID},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:  "send-waveform",
		Method:       http.MethodPost,
		Path:         "/api/send-waveform",
		Summary:      "Email Waveform",
		Description:  "Store a client-rendered image and email it as waveform.png",
		Tags:         []string{"waveforms"},
		Security:     withAuth(),
		MaxBodyBytes: MaxImageBodyBytes,
		Errors:       []int{400, 401, 422, 500, 502},
	}, func(ctx context.Context, input *models.SendWaveformRequest) (*models.SaveResponse, error) {
		rec, err := s.publisher.Send(ctx, input.Body.Email, input.Body.ImageData)
		if err != nil {
			return nil, publishError(err)
		}
		return &models.SaveResponse{
			Body: models.SaveData{Message: "Waveform saved and email sent successfully!", ID: rec.ID},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-waveforms",
		Method:      http.MethodGet,
		Path:        "/api/waveforms",
		Summary:     "List Waveforms",
		Description: "Every stored waveform, newest first",
		Tags:        []string{"waveforms"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.WaveformListResponse, error) {
		records, err := s.publisher.List(ctx)
		if err != nil {
			return nil, publishError(err)
		}
		out := make([]models.WaveformRecord, len(records))
		for i, r := range records {
			out[i] = models.WaveformRecord{
				ID:        r.ID,
				Email:     r.Email,
				ImageData: r.ImageData,
				CreatedAt: r.CreatedAt,
			}
		}
		return &models.WaveformListResponse{
			Body: models.WaveformListData{Message: "success", Data: out},
		}, nil
	})
}
