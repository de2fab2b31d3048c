// Package httptransport composes the public HTTP surface.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docverify/internal/platform/metrics"
	"docverify/internal/verification/handler"
	adminmw "docverify/pkg/platform/middleware/admin"
	authmw "docverify/pkg/platform/middleware/auth"
	"docverify/pkg/platform/middleware/metadata"
)

// RouterDeps are the collaborators NewRouter mounts.
type RouterDeps struct {
	Verification *handler.Handler
	Trails       *handler.TrailHandler
	AdminToken   string
	Validator    authmw.JWTValidator
	Gatherer     prometheus.Gatherer
	HTTPMetrics  *metrics.HTTP
	Health       map[string]handler.CheckFunc
	Logger       *slog.Logger
}

// NewRouter wires the probes, the metrics endpoint, the authenticated
// verification API and, when an admin token is set, the audit trail API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}

	r.Get("/healthz", handler.Health(deps.Health))
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(deps.Validator, deps.Logger))
		deps.Verification.Register(r)
	})
	if deps.Trails != nil && deps.AdminToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdminToken(deps.AdminToken, deps.Logger))
			deps.Trails.Register(r)
		})
	}
	return r
}
