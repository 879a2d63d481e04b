// Package api exposes a visualizer session and the waveform archive over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/wavering/internal/api/models"
	"github.com/smazurov/wavering/internal/audio"
	"github.com/smazurov/wavering/internal/events"
	"github.com/smazurov/wavering/internal/logging"
	"github.com/smazurov/wavering/internal/publish"
	"github.com/smazurov/wavering/internal/session"
	"github.com/smazurov/wavering/internal/version"
	"github.com/smazurov/wavering/internal/waveform"
	"github.com/smazurov/wavering/ui"
)

// MaxImageBodyBytes bounds request bodies that carry image data.
const MaxImageBodyBytes = 10 << 20

// Visualizer is the session driven by the /api/session routes.
type Visualizer interface {
	ID() string
	Start(ctx context.Context) (bool, error)
	Stop() (*waveform.CircularWaveform, error)
	Export() ([]byte, error)
	SetEmail(email string)
	Save(ctx context.Context) (publish.WaveformRecord, error)
	Send(ctx context.Context) (publish.WaveformRecord, error)
	Status() session.Status
}

// Publisher handles client-supplied images.
type Publisher interface {
	Persist(ctx context.Context, email *string, imageData string) (publish.WaveformRecord, error)
	Send(ctx context.Context, email string, imageData string) (publish.WaveformRecord, error)
	List(ctx context.Context) ([]publish.WaveformRecord, error)
}

// Options configures a Server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Session           Visualizer
	Publisher         Publisher
	Detector          audio.Detector
	EventBus          *events.Bus
	PrometheusHandler http.Handler
}

// Server is the huma API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	session    Visualizer
	publisher  Publisher
	detector   audio.Detector
	eventBus   *events.Bus
	logger     *slog.Logger
}

// NewServer creates the server and registers every route.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("Wavering API", version.Version)
	config.Info.Description = "Circular waveform audio visualizer"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {Type: "http", Scheme: "basic"},
	}

	api := humago.New(mux, config)

	detector := opts.Detector
	if detector == nil {
		detector = audio.NewDetector()
	}

	s := &Server{
		api:       api,
		mux:       mux,
		session:   opts.Session,
		publisher: opts.Publisher,
		detector:  detector,
		eventBus:  opts.EventBus,
		logger:    logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(s.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	s.registerRoutes()

	if frontend, err := ui.Handler(); err == nil {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api") {
				http.NotFound(w, r)
				return
			}
			frontend.ServeHTTP(w, r)
		})
	} else {
		s.logger.Warn("Web client unavailable", "error", err)
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// API returns the huma API, used to dump the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Start serves on addr until Stop. It returns http.ErrServerClosed after a
// clean stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down, closing open SSE streams once ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Stopping API server")
	err := s.httpServer.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return s.httpServer.Close()
	}
	return err
}

func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	deny := func(ctx huma.Context, msg string, errs ...error) {
		ctx.SetHeader("WWW-Authenticate", `Basic realm="Wavering API"`)
		huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		// EventSource cannot set headers, so SSE clients pass ?auth=base64(user:pass).
		encoded, ok := strings.CutPrefix(ctx.Header("Authorization"), "Basic ")
		if !ok {
			if ctx.Header("Authorization") != "" {
				deny(ctx, "Invalid authentication type")
				return
			}
			encoded = ctx.Query("auth")
		}
		if encoded == "" {
			deny(ctx, "Authentication required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			deny(ctx, "Invalid credentials format", err)
			return
		}
		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			deny(ctx, "Invalid credentials format")
			return
		}
		if subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
			deny(ctx, "Invalid credentials")
			return
		}
		next(ctx)
	}
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(context.Context, *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{Status: "ok", Message: "API is healthy"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(context.Context, *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Name:      info.Name,
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerDeviceRoutes()
	if s.session != nil {
		s.registerSessionRoutes()
	}
	if s.publisher != nil {
		s.registerWaveformRoutes()
	}
	if s.eventBus != nil {
		s.registerSSERoutes()
	}
}

func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
