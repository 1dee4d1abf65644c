package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/highlandgames/gathering/internal/metrics"
)

// RegisterRoutes sets up all the API endpoints and middleware for the application.
func (s *Server) RegisterRoutes(r chi.Router) {
	// --- Global Middleware (Applied to ALL routes) ---
	r.Use(s.correlationID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins(),
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))

		// Public routes
		r.Post("/auth/login", s.handleLogin)
		r.Get("/events", s.handleListEvents)
		r.Get("/results", s.handleListResults)
		r.Post("/registrations", s.handleSubmitRegistration)

		// --- Admin Routes ---
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Post("/results", s.handleCreateResult)
			r.Delete("/results/{id}", s.handleDeleteResult)

			r.Get("/registrations", s.handleListRegistrations)
			r.Patch("/registrations/{id}", s.handleUpdateRegistrationStatus)
			r.Delete("/registrations/{id}", s.handleDeleteRegistration)
		})
	})
}

// allowedOrigins returns the configured front end plus the local dev servers.
// With no front end configured any origin is allowed.
func (s *Server) allowedOrigins() []string {
	if s.config == nil || s.config.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{s.config.FrontendURL, "http://localhost:5173", "http://localhost:3000"}
}
