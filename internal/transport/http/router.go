package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trustcheck/pkg/platform/httputil"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// RouterConfig collects everything the router mounts.
type RouterConfig struct {
	Profiles *ProfileHandler
	Risk     *RiskHandler
	Admin    *AdminHandler

	// AdminJWTKey signs the bearer tokens accepted on the admin routes.
	AdminJWTKey string

	// HealthChecks run on /healthz; any failure reports 503.
	HealthChecks map[string]HealthCheck
}

// NewRouter wires all endpoints. Admin routes sit behind the JWT guard;
// everything else is public.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestID)

	r.Get("/healthz", healthHandler(cfg.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	cfg.Profiles.Register(r)
	cfg.Risk.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin(cfg.AdminJWTKey))
		cfg.Admin.Register(r)
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		result := make(map[string]string, len(checks)+1)
		result["status"] = "ok"
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				result["status"] = "degraded"
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		httputil.WriteJSON(w, status, result)
	}
}
