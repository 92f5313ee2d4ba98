// Package httptransport assembles the HTTP surface: shared middleware, the
// public and authenticated route groups, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "freightdesk/internal/audit/handler"
	"freightdesk/internal/identity"
	maintenancehandler "freightdesk/internal/maintenance/handler"
	orghandler "freightdesk/internal/organization/handler"
	"freightdesk/internal/platform/metrics"
	userhandler "freightdesk/internal/user/handler"
	"freightdesk/internal/webhook"
	dErrors "freightdesk/pkg/domain-errors"
	"freightdesk/pkg/platform/httputil"
	"freightdesk/pkg/platform/middleware/auth"
	"freightdesk/pkg/platform/middleware/metadata"
	"freightdesk/pkg/platform/middleware/ratelimit"
	"freightdesk/pkg/platform/middleware/requestid"
	"freightdesk/pkg/platform/middleware/requesttime"
	"freightdesk/pkg/platform/middleware/servicekey"
)

// Revocations is the token revocation list shared by the auth middleware and
// the logout route.
type Revocations interface {
	auth.RevocationChecker
	identity.Revoker
}

// Deps carries everything the router mounts. Webhooks and Maintenance are
// optional; a nil value leaves their routes unmounted.
type Deps struct {
	Logger      *slog.Logger
	Resolver    auth.Resolver
	Revocations Revocations
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer

	Audit         *audithandler.Handler
	Organizations *orghandler.Handler
	Users         *userhandler.Handler
	Webhooks      *webhook.Handler
	Maintenance   *maintenancehandler.Handler

	CORSOrigins    []string
	ServiceKeyHash string
	RateLimitRPS   float64
	RateLimitBurst int

	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error
}

// NewRouter wires the middleware chain and every route group.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.LatencyMiddleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	limiter := ratelimit.New(d.RateLimitRPS, d.RateLimitBurst)

	// Provider deliveries carry no bearer token; the signature authenticates them.
	if d.Webhooks != nil {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware(logger))
			d.Webhooks.Register(r)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(servicekey.Require(d.ServiceKeyHash, logger))
		d.Audit.RegisterInternal(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(d.Resolver, d.Revocations, logger))

		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware(logger))
			d.Audit.RegisterLog(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireIdentity)
			d.Audit.Register(r)
			d.Organizations.Register(r)
			d.Users.Register(r)
			identity.NewHandler(d.Revocations, logger).Register(r)
			if d.Maintenance != nil {
				d.Maintenance.Register(r)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	return r
}
