// Package api exposes the activity registry over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"mergington-activities/internal/activities"
	apperrors "mergington-activities/internal/common/errors"
	"mergington-activities/internal/common/logger"
	"mergington-activities/internal/common/observability"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is what the handlers need from the activity registry.
type Registry interface {
	ListActivities(ctx context.Context) (map[string]activities.Activity, error)
	Signup(ctx context.Context, activityName, email string) (string, error)
	Unregister(ctx context.Context, activityName, email string) (string, error)
}

type Config struct {
	// StaticDir is served under /static/.
	StaticDir string
	// ReadinessCheck backs /ready. Nil means always ready.
	ReadinessCheck func(ctx context.Context) error
	// MetricsHandler backs /metrics. Nil means promhttp.Handler().
	MetricsHandler http.Handler
}

type Server struct {
	cfg      Config
	registry Registry
	logger   logger.Logger
	obs      *observability.Observability
	errors   *apperrors.ErrorHandler
	now      func() time.Time
}

func NewServer(cfg Config, registry Registry, log logger.Logger, obs *observability.Observability) *Server {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}
	log = log.WithFields(map[string]interface{}{"component": "api"})
	return &Server{
		cfg:      cfg,
		registry: registry,
		logger:   log,
		obs:      obs,
		errors:   apperrors.NewErrorHandler(log),
		now:      time.Now,
	}
}

// Routes returns the full handler tree wrapped in the request middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET "+staticIndex, s.handleIndex)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))

	mux.HandleFunc("GET /activities", s.handleListActivities)
	mux.HandleFunc("POST /activities/{activity_name}/signup", s.handleSignup)
	mux.HandleFunc("DELETE /activities/{activity_name}/signup", s.handleUnregister)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", s.cfg.MetricsHandler)

	return s.instrument(mux)
}
