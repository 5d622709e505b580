// Package httptransport assembles the public HTTP API: the shared middleware
// chain, the unauthenticated operational endpoints and every module's routes
// behind bearer authentication.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"aurum/internal/platform/metrics"
	"aurum/pkg/platform/httputil"
	authmw "aurum/pkg/platform/middleware/auth"
	"aurum/pkg/platform/middleware/metadata"
	"aurum/pkg/platform/middleware/request"
	"aurum/pkg/platform/middleware/requesttime"
)

// Module is a handler package that registers its routes.
type Module interface {
	Register(r chi.Router)
}

// HealthCheck reports a dependency failure as a non-nil error.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Logger    *slog.Logger
	Validator authmw.JWTValidator
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Checks    map[string]HealthCheck
	// Timeout bounds each API request. Zero means 30s.
	Timeout time.Duration
}

func NewRouter(cfg Config, modules ...Module) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(cfg.Logger))
	r.Use(cfg.Metrics.Middleware)

	r.Get("/healthz", healthz(cfg.Checks, cfg.Logger))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Group(func(api chi.Router) {
		api.Use(chimw.Timeout(cfg.Timeout))
		api.Use(authmw.RequireAuth(cfg.Validator, cfg.Logger))
		for _, m := range modules {
			m.Register(api)
		}
	})
	return r
}

func healthz(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		httputil.WriteJSON(w, status, map[string]any{"status": state, "checks": results})
	}
}
