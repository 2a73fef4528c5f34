// Package http assembles the chi router: public routes for signup-time
// classification and operability, and an authenticated group for
// everything touching links, views, the access log, and notifications.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accounthandler "kindred/internal/accounts/handler"
	audithandler "kindred/internal/audit/handler"
	linkhandler "kindred/internal/links/handler"
	notificationhandler "kindred/internal/notifications/handler"
	"kindred/internal/platform/metrics"
	"kindred/internal/platform/middleware"
	projectionhandler "kindred/internal/projection/handler"
	"kindred/internal/transport/http/shared"
)

type Dependencies struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.TokenValidator

	Accounts      *accounthandler.Handler
	Links         *linkhandler.Handler
	Projection    *projectionhandler.Handler
	Audit         *audithandler.Handler
	Notifications *notificationhandler.Handler

	Health func() error
}

func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/healthz", healthHandler(deps.Logger, deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		deps.Accounts.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Device)
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		deps.Links.Register(r)
		deps.Projection.Register(r)
		deps.Audit.Register(r)
		deps.Notifications.Register(r)
	})

	return r
}

func healthHandler(logger *slog.Logger, check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				shared.WriteJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		shared.WriteJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}
