package kit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelService   = "service"
	labelMethod    = "method"
	labelPath      = "path"
	labelStatus    = "status"
	labelComponent = "component"
	labelReason    = "reason"
	labelOutcome   = "outcome"

	defaultStatusCode = http.StatusOK
)

type Metrics struct {
	Requests  *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
	Fallbacks *prometheus.CounterVec
	Upstream  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{labelService, labelMethod, labelPath, labelStatus},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP latency",
			},
			[]string{labelService, labelMethod, labelPath},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_fallbacks_total",
				Help: "Degraded results served instead of fresh third-party data",
			},
			[]string{labelComponent, labelReason},
		),
		Upstream: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_upstream_duration_seconds",
				Help:    "Latency of calls to third-party APIs",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{labelComponent, labelOutcome},
		),
	}

	reg.MustRegister(m.Requests, m.Latency, m.Fallbacks, m.Upstream)
	return m
}

// Fallback counts a degraded result. Safe on a nil receiver.
func (m *Metrics) Fallback(component, reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(component, reason).Inc()
}

// ObserveUpstream records one outbound call. Safe on a nil receiver.
func (m *Metrics) ObserveUpstream(component string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Upstream.WithLabelValues(component, outcome).Observe(time.Since(start).Seconds())
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (m *Metrics) Middleware(service string, pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{
				ResponseWriter: w,
				status:         defaultStatusCode,
			}

			start := time.Now()
			next.ServeHTTP(sw, r)

			path := pathLabel(r)
			m.Latency.WithLabelValues(service, r.Method, path).
				Observe(time.Since(start).Seconds())

			m.Requests.WithLabelValues(service, r.Method, path, strconv.Itoa(sw.status)).
				Inc()
		})
	}
}

// ChiRoutePatternOrPath keeps label cardinality bounded by preferring the
// matched route pattern over the raw path.
func ChiRoutePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if rp := rc.RoutePattern(); rp != "" {
			return rp
		}
	}
	return r.URL.Path
}
