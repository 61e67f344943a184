package routes

import (
	"net/http"
	"time"

	"github.com/epicevents/crm/app"
	"github.com/epicevents/crm/handlers"
	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)

		r.Get("/me", handlers.MeHandler(deps))

		r.With(deps.PermissionMiddleware.RequirePermission(policy.CanListUsers)).
			Get("/users", handlers.ListUsersHandler(deps))

		r.With(deps.PermissionMiddleware.RequirePermission(policy.CanManageUsers)).
			Get("/audit", handlers.AuditTrailHandler(deps))

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", handlers.ListClientsHandler(deps))
			r.Get("/{id}", handlers.GetClientHandler(deps))
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", handlers.ListContractsHandler(deps))
			r.With(deps.PermissionMiddleware.RequirePermission(policy.CanFilterContracts)).
				Get("/filter", handlers.FilterContractsHandler(deps))
			r.Get("/{id}", handlers.GetContractHandler(deps))
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", handlers.ListEventsHandler(deps))
			r.With(deps.PermissionMiddleware.RequirePermission(policy.CanFilterEvents)).
				Get("/filter", handlers.FilterEventsHandler(deps))
			r.Get("/{id}", handlers.GetEventHandler(deps))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
