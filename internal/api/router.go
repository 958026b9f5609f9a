package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency check in GET /health.
const healthCheckTimeout = 3 * time.Second

const defaultWSPath = "/ws"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/steps", func(r chi.Router) {
			r.Get("/", s.handleListSteps)
			r.Post("/", s.handleCreateStep)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetStep)
				r.Patch("/", s.handleUpdateStep)
				r.Delete("/", s.handleDeleteStep)
				r.Post("/duplicate", s.handleDuplicateStep)
			})
		})

		r.Route("/websites/{id}", func(r chi.Router) {
			r.Get("/next-order", s.handleNextOrder)
			r.Get("/runs", s.handleListWebsiteRuns)
			r.Post("/runs", s.handleStartRun)
		})

		r.Get("/runs/{id}", s.handleGetRun)

		r.Route("/owners/{id}/runs", func(r chi.Router) {
			r.Get("/", s.handleOwnerHistory)
			r.Get("/latest", s.handleOwnerLatest)
		})

		r.Post("/locators", s.handleGenerateLocators)
		r.Get("/audit", s.handleListAudit)

		wsPath := s.wsCfg.Path
		if wsPath == "" {
			wsPath = defaultWSPath
		}
		r.Get(wsPath, s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status and the state of each
// registered dependency. Any failing dependency makes the response 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":      overall,
		"version":     s.version,
		"active_runs": s.engine.ActiveCount(),
		"components":  components,
	})
}
