package storefront

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"AlphaStore/internal/admin"
	"AlphaStore/internal/catalog"
	"AlphaStore/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry
	// Metrics is shared with the components so fallback counters land in the
	// same registry; nil with a non-nil Registry creates one here.
	Metrics *kit.Metrics

	MetricsEnabled bool
	MetricsToken   string
}

type Deps struct {
	Catalog *catalog.Server
	Admin   *admin.Server
}

func NewHandler(deps Deps, httpDeps HTTPDeps) http.Handler {
	r := chi.NewRouter()
	setupMiddleware(r, httpDeps)
	setupMetrics(r, httpDeps)

	r.Get("/logout", deps.Admin.Logout)
	r.Mount("/admin", deps.Admin.Routes())
	r.Mount("/", deps.Catalog.Routes())

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = kit.NewMetrics(deps.Registry)
	}
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}
