package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/wavering/internal/api/models"
	"github.com/smazurov/wavering/internal/session"
)

func sessionData(st session.Status) models.SessionData {
	return models.SessionData{
		ID:          st.ID,
		State:       st.State.String(),
		GallerySize: st.GallerySize,
		Frames:      st.Frames,
		Email:       st.Email,
		Width:       st.Width,
		Height:      st.Height,
	}
}

// registerSessionRoutes registers the record/stop controls and surface export.
func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Session Status",
		Description: "Recording state, gallery size and surface dimensions",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(context.Context, *struct{}) (*models.SessionResponse, error) {
		return &models.SessionResponse{Body: sessionData(s.session.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-recording",
		Method:      http.MethodPost,
		Path:        "/api/session/start",
		Summary:     "Start Recording",
		Description: "Acquire the microphone and draw the live waveform. Does nothing while already recording.",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 403, 409, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.StartResponse, error) {
		started, err := s.session.Start(ctx)
		if err != nil {
			return nil, captureError(err)
		}
		return &models.StartResponse{
			Body: models.StartData{Started: started, Session: sessionData(s.session.Status())},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-recording",
		Method:      http.MethodPost,
		Path:        "/api/session/stop",
		Summary:     "Stop Recording",
		Description: "Release the microphone and store the current snapshot as a new ring",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(context.Context, *struct{}) (*models.StopResponse, error) {
		wf, err := s.session.Stop()
		if err != nil {
			return nil, captureError(err)
		}
		resp := &models.StopResponse{}
		if wf != nil {
			resp.Body.Stored = &models.WaveformData{
				Radius:     wf.Radius,
				ColorStart: wf.ColorStart.String(),
				ColorEnd:   wf.ColorEnd.String(),
				Bins:       wf.Snapshot.Len(),
			}
		}
		resp.Body.Session = sessionData(s.session.Status())
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-frame",
		Method:      http.MethodGet,
		Path:        "/api/session/frame.png",
		Summary:     "Current Frame",
		Description: "PNG of the last completely drawn frame",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "PNG image",
				Content:     map[string]*huma.MediaType{"image/png": {}},
			},
		},
	}, func(context.Context, *struct{}) (*models.FrameResponse, error) {
		png, err := s.session.Export()
		if err != nil {
			return nil, publishError(err)
		}
		return &models.FrameResponse{
			ContentType:  "image/png",
			CacheControl: "no-store",
			Body:         png,
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-session-email",
		Method:      http.MethodPut,
		Path:        "/api/session/email",
		Summary:     "Set Email",
		Description: "Address used by save and send",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *models.EmailRequest) (*models.SessionResponse, error) {
		s.session.SetEmail(input.Body.Email)
		return &models.SessionResponse{Body: sessionData(s.session.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "save-session",
		Method:        http.MethodPost,
		Path:          "/api/session/save",
		Summary:       "Save Frame",
		Description:   "Persist the current frame with the session email, if any",
		Tags:          []string{"session"},
		Security:      withAuth(),
		DefaultStatus: http.StatusCreated,
		Errors:        []int{401, 409, 500, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.SaveResponse, error) {
		rec, err := s.session.Save(ctx)
		if err != nil {
			return nil, publishError(err)
		}
		return &models.SaveResponse{
			Body: models.SaveData{Message: "Waveform saved successfully!", ID: rec.ID},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "send-session",
		Method:      http.MethodPost,
		Path:        "/api/session/send",
		Summary:     "Email Frame",
		Description: "Persist the current frame and email it to the session email",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 409, 422, 500, 502},
	}, func(ctx context.Context, _ *struct{}) (*models.SaveResponse, error) {
		rec, err := s.session.Send(ctx)
		if err != nil {
			return nil, publishError(err)
		}
		return &models.SaveResponse{
			Body: models.SaveData{Message: "Waveform saved and email sent successfully!", ID: rec.ID},
		}, nil
	})
}
