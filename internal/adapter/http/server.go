package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/pm25-forecast-service/internal/adapter/redis"
	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AllReady is ready only when every checker is; the first failure is reported.
type AllReady []sharedobs.ReadinessChecker

func (a AllReady) CheckReadiness(ctx context.Context) error {
	for _, c := range a {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ForecastStore serves the latest published forecast for a location.
type ForecastStore interface {
	Latest(ctx context.Context, location string) (domain.ForecastResult, error)
}

// Server exposes health, readiness, metrics, and forecast HTTP endpoints.
type Server struct {
	httpServer *http.Server
	store      ForecastStore
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /v1/aqi-bands and /v1/forecasts/{location} routes. A nil store disables
// the forecast route.
func NewServer(addr string, ready sharedobs.ReadinessChecker, store ForecastStore, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:  store,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/aqi-bands", s.handleBands)
	mux.HandleFunc("GET /v1/forecasts/{location}", s.handleForecast)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleBands(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, domain.AQIBands())
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "forecast store disabled"})
		return
	}
	location := r.PathValue("location")
	if domain.LocationKey(location) == "" {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid location"})
		return
	}

	result, err := s.store.Latest(r.Context(), location)
	switch {
	case errors.Is(err, redis.ErrNotFound):
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no forecast for " + location})
	case err != nil:
		s.logger.Error("read forecast failed", "location", location, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	default:
		sharedobs.WriteJSON(w, http.StatusOK, result)
	}
}
