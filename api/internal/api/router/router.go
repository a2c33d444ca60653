package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/taskpilot/taskpilot/api/internal/api/handlers"
	auth_middleware "github.com/taskpilot/taskpilot/api/internal/api/middleware"
	delivery "github.com/taskpilot/taskpilot/api/internal/delivery/http"
)

// RouterConfig defines the dependencies required to build the API routing tree.
type RouterConfig struct {
	AllowedOrigins    []string
	MaxBodyBytes      int64
	CredentialHandler *handlers.CredentialHandler
	HealthHandler     *delivery.HealthHandler
	AuthMiddleware    *auth_middleware.AuthMiddleware
	RateLimiter       *auth_middleware.RateLimiter
	Logger            *slog.Logger
}

// NewRouter constructs the Chi multiplexer, attaches global middleware, and wires all endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// =========================================================================
	// 1. Global Gateway Middleware Pipeline
	// =========================================================================

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(auth_middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(auth_middleware.MaxBytes(cfg.MaxBodyBytes))

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Handler)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// =========================================================================
	// 2. API v1 Routing Tree
	// =========================================================================

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.RequireAuthentication)

			r.Route("/credentials", func(r chi.Router) {
				r.Get("/", cfg.CredentialHandler.List)
				r.Get("/activity", cfg.CredentialHandler.Activity)
				r.Get("/{provider}", cfg.CredentialHandler.Get)
				r.Put("/{provider}", cfg.CredentialHandler.Put)
				r.Delete("/{provider}", cfg.CredentialHandler.Delete)
			})
		})
	})

	r.Get("/health", cfg.HealthHandler.Check)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	return r
}
