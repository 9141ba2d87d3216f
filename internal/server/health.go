package server

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
)

// HealthResponse is the aggregate health check payload.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// healthHandler pings the backing store (when configured) and reports
// aggregate status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"

	if s.opts.Store != nil && s.opts.Store.DB != nil {
		if err := s.opts.Store.DB.PingContext(ctx); err != nil {
			checks["store"] = "unhealthy"
			status = "unhealthy"
		} else {
			checks["store"] = "healthy"
		}
	}

	if status == "unhealthy" {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "health check failed")
		envelope, _ = envelope.WithContext(map[string]interface{}{"checks": checks})
		respondEnvelope(w, r, envelope, http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   s.opts.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// livenessHandler reports that the process is running. It never touches
// external dependencies.
func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
