// Package httptransport assembles the HTTP router: middleware chain, the
// owner and administrator surfaces, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"verdeck/internal/verification/handler"
	adminmw "verdeck/pkg/platform/middleware/admin"
	authmw "verdeck/pkg/platform/middleware/auth"
	"verdeck/pkg/platform/middleware/metadata"
	"verdeck/pkg/platform/middleware/requesttime"
)

// Options carries the cross-cutting dependencies the router needs.
type Options struct {
	Validator  authmw.TokenValidator
	AdminToken string
	Logger     *slog.Logger
	Health     func(r chi.Router)
}

// NewRouter wires all endpoints. The owner surface requires a bearer token,
// the administrator surface additionally requires the shared admin token,
// and the confirm endpoint is public.
func NewRouter(h *handler.Handler, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if opts.Health != nil {
		opts.Health(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	h.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(opts.Validator, opts.Logger))
		h.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(opts.Validator, opts.Logger))
		r.Use(adminmw.RequireAdminToken(opts.AdminToken, opts.Logger))
		h.RegisterAdmin(r)
	})

	return r
}
