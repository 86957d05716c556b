// Package httpapi assembles the process router: shared middleware, ops
// endpoints and the module handlers.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	platformmetrics "misiones/internal/platform/metrics"
	"misiones/internal/platform/middleware"
	"misiones/internal/registration"
	"misiones/internal/site"
	"misiones/pkg/platform/httputil"
)

// Check reports whether a dependency is ready to serve traffic.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps is everything the router mounts.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *platformmetrics.Metrics
	Sites          *site.Handler
	Registrations  *registration.Handler
	RequestTimeout time.Duration
	ReadyChecks    []Check
	// MetricsHandler defaults to the default Prometheus registry.
	MetricsHandler http.Handler
}

// NewRouter wires every route. Per-site admin registration routes share the
// site access check of /v1/admin/sites/{siteID}.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.LatencyMiddleware(d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(d.ReadyChecks, d.Logger))
	metricsHandler := d.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = platformmetrics.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(d.RequestTimeout))
		r.Use(middleware.ContentTypeJSON)
		d.Sites.Register(r, d.Registrations.RegisterSiteRoutes)
		d.Registrations.Register(r)
	})
	return r
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func readyHandler(checks []Check, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp := readyResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "check", c.Name, "error", err)
				resp.Checks[c.Name] = "unavailable"
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
