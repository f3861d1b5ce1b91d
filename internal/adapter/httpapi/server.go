// Package httpapi exposes the forecast, almanac and park endpoints plus
// health, readiness, and metrics routes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
	"github.com/wmarcoyu/starchasers-dataserver/internal/observability"
	"github.com/wmarcoyu/starchasers-dataserver/internal/stargaze"
)

// testReferenceDate pins dataset resolution when a request carries the
// `test` query parameter, pointing at fixture data far in the future.
const testReferenceDate = "30770617"

// Authenticator checks API credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, token string) (bool, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the public API.
type Server struct {
	httpServer *http.Server
	service    *stargaze.Service
	auth       Authenticator
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with the API routes. A nil authenticator
// disables credential checks; production deployments always pass one.
func NewServer(addr string, service *stargaze.Service, auth Authenticator,
	logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		auth:    auth,
		logger:  logger,
		metrics: metrics,
	}

	mux.HandleFunc("GET /api/transparency-forecast/", s.instrument("transparency_forecast", s.authenticated(s.handleTransparencyForecast)))
	mux.HandleFunc("GET /api/almanac/", s.instrument("almanac", s.authenticated(s.handleAlmanac)))
	mux.HandleFunc("GET /api/get-park-name/", s.instrument("get_park_name", s.handleParkName))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

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

// instrument wraps a handler with the request counter and duration histogram.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		s.metrics.Requests.WithLabelValues(endpoint, outcome(rec.status)).Inc()
	}
}

// authenticated rejects requests without valid Username and Token headers.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			next(w, r)
			return
		}
		username := r.Header.Get("Username")
		token := r.Header.Get("Token")
		if username == "" || token == "" {
			s.metrics.AuthFailures.Inc()
			writeError(w, http.StatusBadRequest, "check username and input token")
			return
		}
		ok, err := s.auth.Authenticate(r.Context(), username, token)
		if err != nil {
			s.logger.Error("authentication lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			s.metrics.AuthFailures.Inc()
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleTransparencyForecast(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	resp, err := s.service.TransparencyForecast(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAlmanac(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	resp, err := s.service.Almanac(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleParkName(w http.ResponseWriter, r *http.Request) {
	name, err := s.service.ParkName(r.Context(), r.URL.Query().Get("park_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fullname": name})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// parseQuery extracts the observer identity from the URL parameters.
func parseQuery(r *http.Request) (stargaze.Query, error) {
	values := r.URL.Query()
	q := stargaze.Query{ParkID: values.Get("park_id")}
	if values.Has("test") {
		q.ReferenceDate = testReferenceDate
	}
	if q.ParkID != "" {
		return q, nil
	}

	latStr, lngStr := values.Get("lat"), values.Get("lng")
	if latStr == "" || lngStr == "" {
		return q, domain.Errorf(domain.InvalidInput, "either park_id or lat and lng are required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return q, domain.Errorf(domain.InvalidInput, "invalid lat %q", latStr)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return q, domain.Errorf(domain.InvalidInput, "invalid lng %q", lngStr)
	}
	q.Lat, q.Lng, q.HasCoords = lat, lng, true
	return q, nil
}

// writeDomainError maps error kinds onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var derr *domain.Error
	status := http.StatusInternalServerError
	if errors.As(err, &derr) {
		switch derr.Kind {
		case domain.InvalidInput:
			status = http.StatusBadRequest
		case domain.DataUnavailable:
			status = http.StatusServiceUnavailable
		}
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func outcome(status int) string {
	switch {
	case status < 400:
		return "ok"
	case status < 500:
		return "client_error"
	default:
		return "server_error"
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
