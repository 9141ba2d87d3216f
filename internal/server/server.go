// Package server exposes the optional HTTP observability surface: health
// probes, version info, limiter state, cached analyses, and a Prometheus
// metrics proxy.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/core/engine"
	"github.com/personalens/personalens/internal/core/store"
	"github.com/personalens/personalens/internal/observability"
	servermw "github.com/personalens/personalens/internal/server/middleware"
)

// Options carries the application state the endpoints read from.
type Options struct {
	Registry *engine.Registry
	Store    *store.Store
	Model    string
	Version  string
}

// Server is the HTTP server for serve mode.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	opts   Options
}

// New builds the router and registers all routes.
func New(cfg config.ServerConfig, opts Options) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// Request ID first for correlation, then metrics, then recovery.
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		envelope := errors.NewErrorEnvelope("NOT_FOUND", "the requested resource was not found")
		respondEnvelope(w, req, envelope, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		envelope := errors.NewErrorEnvelope("METHOD_NOT_ALLOWED", "the requested method is not allowed for this resource")
		respondEnvelope(w, req, envelope, http.StatusMethodNotAllowed)
	})

	s := &Server{
		router: r,
		cfg:    cfg,
		opts:   opts,
	}
	s.registerRoutes()

	return s
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	readTimeout := s.cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := s.cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("addr", addr))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.cfg.Port
}
