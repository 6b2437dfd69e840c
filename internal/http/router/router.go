package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/config"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/http/handler"
	"github.com/straye-as/crm-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/straye-as/crm-api/docs" // Import generated swagger docs
)

// Handlers groups the HTTP handlers the router mounts
type Handlers struct {
	Health   *handler.HealthHandler
	User     *handler.UserHandler
	Client   *handler.ClientHandler
	Contract *handler.ContractHandler
	Event    *handler.EventHandler
	Document *handler.DocumentHandler
	Audit    *handler.AuditHandler
}

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	authMiddleware  *auth.Middleware
	rateLimiter     *middleware.RateLimiter
	auditMiddleware *middleware.AuditMiddleware
	h               Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	auditMiddleware *middleware.AuditMiddleware,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		authMiddleware:  authMiddleware,
		rateLimiter:     rateLimiter,
		auditMiddleware: auditMiddleware,
		h:               handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	r.Get("/health", rt.h.Health.Live)
	r.Get("/health/db", rt.h.Health.Database)
	r.Get("/health/ready", rt.h.Health.Ready)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.Limit)
		if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
			r.Use(chimw.Timeout(timeout))
		}
		r.Use(rt.auditMiddleware.Audit)

		r.Get("/me", rt.h.User.Me)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", rt.h.User.List)
			r.Post("/", rt.h.User.Create)
			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", rt.h.User.GetByID)
				r.Patch("/", rt.h.User.Update)
				r.Delete("/", rt.h.User.Delete)
			})
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", rt.h.Client.List)
			r.Post("/", rt.h.Client.Create)
			r.Route("/{clientID}", func(r chi.Router) {
				r.Get("/", rt.h.Client.GetByID)
				r.Patch("/", rt.h.Client.Update)
				r.Delete("/", rt.h.Client.Delete)
				r.Put("/assignment", rt.h.Client.Reassign)
				r.Route("/contracts", rt.contractRoutes)
			})
		})

		r.With(rt.authMiddleware.RequireRole(domain.RoleManagement)).Get("/audit-logs", rt.h.Audit.List)
	})

	return r
}

func (rt *Router) contractRoutes(r chi.Router) {
	r.Get("/", rt.h.Contract.List)
	r.Post("/", rt.h.Contract.Create)
	r.Route("/{contractID}", func(r chi.Router) {
		r.Get("/", rt.h.Contract.GetByID)
		r.Patch("/", rt.h.Contract.Update)
		r.Delete("/", rt.h.Contract.Delete)
		r.Put("/assignment", rt.h.Contract.Reassign)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", rt.h.Event.List)
			r.Post("/", rt.h.Event.Create)
			r.Route("/{eventID}", func(r chi.Router) {
				r.Get("/", rt.h.Event.GetByID)
				r.Patch("/", rt.h.Event.Update)
				r.Delete("/", rt.h.Event.Delete)
				r.Put("/assignment", rt.h.Event.Reassign)
			})
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", rt.h.Document.List)
			r.Post("/", rt.h.Document.Upload)
			r.Route("/{documentID}", func(r chi.Router) {
				r.Get("/", rt.h.Document.Download)
				r.Delete("/", rt.h.Document.Delete)
			})
		})
	})
}
