package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes. No auth: the station serves a trusted panel on the
	// layout LAN.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/scenes", func(r chi.Router) {
			r.Get("/", s.handleListScenes)
			r.Post("/", s.handleCreateScene)
			r.Put("/reorder", s.handleReorderScene)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetScene)
				r.Patch("/", s.handleUpdateScene)
				r.Delete("/", s.handleDeleteScene)
				r.Post("/activate", s.handleActivateScene)
			})
		})

		r.Route("/fade", func(r chi.Router) {
			r.Post("/", s.handleStartFade)
			r.Delete("/", s.handleAbortFade)
			r.Get("/progress", s.handleFadeProgress)
		})

		r.Route("/display", func(r chi.Router) {
			r.Get("/", s.handleGetDisplay)
			r.Post("/wake", s.handleDisplayWake)
			r.Post("/sleep", s.handleDisplaySleep)
			r.Put("/timeout", s.handleDisplayTimeout)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Patch("/", s.handleUpdateSettings)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status: station lifecycle,
// transport readiness, database health, and the schema version.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus := "ok"
	if err := s.db.HealthCheck(ctx); err != nil {
		dbStatus = "degraded"
	}

	schemaVersion := 0
	if applied, _, err := s.db.GetMigrationStatus(ctx); err == nil {
		schemaVersion = len(applied)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          s.station.Status().String(),
		"version":         s.version,
		"transport_ready": s.station.Metrics().Transport.Ready,
		"database":        dbStatus,
		"schema_version":  schemaVersion,
	})
}
