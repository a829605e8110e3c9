package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Public routes
	r.Get("/api/v1/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Protected routes: the principal is resolved before any store access
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.verifier))
		r.Post("/api/v1/sync", h.Sync)
	})

	return r
}
