package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/good-yellow-bee/staffplan/internal/access"
	"github.com/good-yellow-bee/staffplan/internal/api/assignments"
	"github.com/good-yellow-bee/staffplan/internal/api/auth"
	"github.com/good-yellow-bee/staffplan/internal/api/engineers"
	"github.com/good-yellow-bee/staffplan/internal/api/middleware"
	"github.com/good-yellow-bee/staffplan/internal/api/projects"
	"github.com/good-yellow-bee/staffplan/internal/api/users"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	authHandler := auth.NewHandler(s.storage, s.jwt, s.lockout, s.config.RefreshTokenTTL)
	userHandler := users.NewHandler(s.storage, s.userCache)
	engineerHandler := engineers.NewHandler(s.service)
	projectHandler := projects.NewHandler(s.service)
	assignmentHandler := assignments.NewHandler(s.service)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(s.config.QueryTimeout))

		// Auth routes (mostly public)
		r.Route("/auth", func(r chi.Router) {
			// Public routes with IP rate limiting
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(s.ipLimiter))
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
			})

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(s.jwt, s.userCache))
				r.Use(middleware.RateLimitByUser(s.userLimiter))
				r.Post("/logout", authHandler.Logout)
				r.With(middleware.RequireAction(access.ViewProfile)).Get("/profile", userHandler.Profile)
				r.With(middleware.RequireAction(access.ViewProfile)).Put("/password", userHandler.ChangePassword)
			})
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(s.jwt, s.userCache))
			r.Use(middleware.RateLimitByUser(s.userLimiter))

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireAction(access.ManageUsers))
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Delete("/{id}", userHandler.Delete)
			})

			r.Route("/engineers", func(r chi.Router) {
				r.With(middleware.RequireAction(access.ListEngineers)).Get("/", engineerHandler.List)
				r.Route("/{id}", func(r chi.Router) {
					r.With(middleware.RequireActionOnSelf(access.ViewEngineer)).Get("/", engineerHandler.GetByID)
					r.With(middleware.RequireActionOnSelf(access.ViewCapacity)).Get("/capacity", engineerHandler.Capacity)
					r.With(middleware.RequireActionOnSelf(access.ViewAvailability)).Get("/availability", engineerHandler.Availability)
				})
			})

			r.Route("/projects", func(r chi.Router) {
				r.With(middleware.RequireAction(access.ListProjects)).Get("/", projectHandler.List)
				r.With(middleware.RequireAction(access.CreateProject)).Post("/", projectHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.With(middleware.RequireAction(access.ViewProject)).Get("/", projectHandler.GetByID)
					r.With(middleware.RequireAction(access.UpdateProject)).Put("/", projectHandler.Update)
					r.With(middleware.RequireAction(access.DeleteProject)).Delete("/", projectHandler.Delete)
					r.With(middleware.RequireAction(access.ViewSkillGap)).Get("/skill-gap", projectHandler.SkillGap)
				})
			})

			// Listing scope and per-assignment ownership are resolved by
			// the handler, which knows the assignment's engineer.
			r.Route("/assignments", func(r chi.Router) {
				r.Get("/", assignmentHandler.List)
				r.With(middleware.RequireAction(access.CreateAssignment)).Post("/", assignmentHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", assignmentHandler.GetByID)
					r.With(middleware.RequireAction(access.UpdateAssignment)).Put("/", assignmentHandler.Update)
					r.With(middleware.RequireAction(access.DeleteAssignment)).Delete("/", assignmentHandler.Delete)
				})
			})
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
