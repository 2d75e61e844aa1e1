package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"charity-admin/pkg/errors"
	jwtutil "charity-admin/pkg/jwt"
	"charity-admin/pkg/middleware"
	"charity-admin/pkg/response"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Stats          *HTTPStatsController
	JWTManager     *jwtutil.JWTManager // nil disables authentication
	RateLimit      int
	RateWindow     time.Duration
	RequestTimeout time.Duration
	Health         map[string]Pinger
}

// NewRouter builds the chi router with the shared middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.LoggingMiddleware)
	if cfg.RateLimit > 0 {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow).Middleware)
	}
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))
	}

	r.Get("/health", healthHandler(cfg.Health))

	r.Route("/admin/stats", func(r chi.Router) {
		if cfg.JWTManager != nil {
			r.Use(middleware.JWTAuthMiddleware(cfg.JWTManager))
			r.Use(middleware.RequireStatsViewer)
		}
		cfg.Stats.Routes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.HandleError(w, r, errors.NewNotFoundError("route"))
	})

	return r
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		for name, p := range checks {
			if err := p.Ping(r.Context()); err != nil {
				status[name] = "down"
				status["status"] = "degraded"
				continue
			}
			status[name] = "up"
		}
		if status["status"] != "ok" {
			response.SendSuccessWithStatus(w, r, http.StatusServiceUnavailable, status)
			return
		}
		response.SendSuccess(w, r, status)
	}
}
