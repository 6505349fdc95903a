package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/devroom/internal/api/ai"
	"github.com/good-yellow-bee/devroom/internal/api/auth"
	"github.com/good-yellow-bee/devroom/internal/api/middleware"
	"github.com/good-yellow-bee/devroom/internal/api/projects"
	"github.com/good-yellow-bee/devroom/internal/api/users"
	"github.com/good-yellow-bee/devroom/internal/realtime"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	store := s.deps.Storage
	tokens := s.deps.Tokens

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrMethodNotAllowed)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			authHandler := auth.NewHandler(store, tokens, s.lockout)

			// Public routes with IP rate limiting
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(s.ipLimiter))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(tokens))
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Everything below requires a session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(tokens))
			r.Use(middleware.RateLimitByUser(s.userLimiter))

			r.Route("/users", func(r chi.Router) {
				userHandler := users.NewHandler(store)
				r.Get("/", userHandler.List)
				r.Get("/me", userHandler.GetCurrentUser)
			})

			r.Route("/projects", func(r chi.Router) {
				projectHandler := projects.NewHandler(store, s.config.HistoryLimit)
				r.Get("/", projectHandler.List)
				r.Post("/", projectHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.RequireProjectMember(store))
					r.Get("/", projectHandler.Get)
					r.Put("/users", projectHandler.AddMembers)
					r.Put("/files", projectHandler.ReplaceFiles)
				})
			})

			r.Route("/ai", func(r chi.Router) {
				aiHandler := ai.NewHandler(s.deps.Generator, s.config.AITimeout)
				r.Get("/generate", aiHandler.Generate)
			})
		})
	})

	// Project rooms. Authentication happens in the handshake gate.
	s.realtime = realtime.NewHandler(
		realtime.NewGate(tokens, store),
		s.deps.Chat,
		s.config.Realtime,
	)
	r.Method(http.MethodGet, "/ws", s.realtime)

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
