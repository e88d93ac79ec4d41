// Package httptransport wires the HTTP surface: admin control plane,
// tenant-scoped data plane, and operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stratum/internal/isolation"
	"stratum/internal/platform/middleware"
	"stratum/internal/transport/http/shared"
)

// Registrar is implemented by module handlers that attach their routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config assembles the router from module handlers and platform pieces.
type Config struct {
	Logger *slog.Logger

	AdminTokenHash string
	TokenValidator middleware.TokenValidator
	ScopeGuard     *isolation.ScopeGuard

	// Admin handlers mount behind the admin token; scoped handlers behind
	// the scope middleware.
	AdminHandlers  []Registrar
	ScopedHandlers []Registrar

	Factory *isolation.Factory
	Health  []HealthChecker
}

// NewRouter builds the full route tree.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Trace)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/healthz", handleHealth(cfg.Health))

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdminToken(cfg.AdminTokenHash, cfg.Logger))
		for _, h := range cfg.AdminHandlers {
			h.Register(admin)
		}
		admin.Get("/ops/isolation", handleIsolationStats(cfg.Factory))
	})

	r.Group(func(scoped chi.Router) {
		scoped.Use(middleware.RequireScope(cfg.TokenValidator, cfg.ScopeGuard, cfg.Logger))
		for _, h := range cfg.ScopedHandlers {
			h.Register(scoped)
		}
	})

	return r
}

func handleHealth(checks []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check.HealthCheck(ctx); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleIsolationStats exposes the adapter cache for operators: size,
// build and eviction counts, and pool utilization per strategy.
func handleIsolationStats(factory *isolation.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if factory == nil {
			shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "isolation factory not configured"})
			return
		}
		shared.WriteJSON(w, http.StatusOK, factory.Stats())
	}
}
