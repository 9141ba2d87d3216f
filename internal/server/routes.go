package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/personalens/personalens/internal/errors"
	"github.com/personalens/personalens/internal/scraper"
)

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.healthHandler)
	s.router.Get("/health/live", s.livenessHandler)
	s.router.Get("/version", s.versionHandler)
	s.router.Get("/metrics", metricsHandler)

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/limits", s.limitsHandler)
		r.Get("/limits/{service}", s.serviceLimitsHandler)
		r.Get("/analyses/{username}", s.analysisHandler)
	})
}

// limitsHandler reports the live window usage of every configured service.
func (s *Server) limitsHandler(w http.ResponseWriter, r *http.Request) {
	if s.opts.Registry == nil {
		respondJSON(w, http.StatusOK, map[string]any{"services": []any{}})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"services": s.opts.Registry.Stats()})
}

// serviceLimitsHandler reports a single service's limiter state.
func (s *Server) serviceLimitsHandler(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	if s.opts.Registry != nil {
		for _, stats := range s.opts.Registry.Stats() {
			if stats.Service == service {
				respondJSON(w, http.StatusOK, stats)
				return
			}
		}
	}
	respondError(w, r, apperrors.NotFound("", service, "unknown service "+service))
}

// analysisHandler serves a cached MBTI verdict for a username, if one
// exists and has not expired.
func (s *Server) analysisHandler(w http.ResponseWriter, r *http.Request) {
	username := scraper.NormalizeUsername(chi.URLParam(r, "username"))

	if s.opts.Store == nil {
		respondError(w, r, apperrors.NotFound("", username, "analysis cache is not available"))
		return
	}

	result, err := s.opts.Store.GetCachedAnalysis(r.Context(), username, s.opts.Model)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if result == nil {
		respondError(w, r, apperrors.NotFound("", username, "no cached analysis for @"+username))
		return
	}

	respondJSON(w, http.StatusOK, result)
}
