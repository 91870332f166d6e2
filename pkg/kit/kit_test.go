package kit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestIPRateLimiter_WindowSlides(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	h := l.Middleware(okHandler())

	hit := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := hit("10.0.0.1:1234"); rec.Code != http.StatusNoContent {
			t.Fatalf("hit %d status=%d", i, rec.Code)
		}
	}

	rec := hit("10.0.0.1:5678")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("retry-after=%q", rec.Header().Get("Retry-After"))
	}

	if rec := hit("10.0.0.2:1234"); rec.Code != http.StatusNoContent {
		t.Fatalf("other ip status=%d", rec.Code)
	}

	now = now.Add(61 * time.Second)
	if rec := hit("10.0.0.1:1234"); rec.Code != http.StatusNoContent {
		t.Fatalf("after window status=%d", rec.Code)
	}
}

func TestIPRateLimiter_ForwardedForNeedsTrust(t *testing.T) {
	hit := func(l *IPRateLimiter, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
		req.RemoteAddr = "10.0.0.9:4000"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		l.Middleware(okHandler()).ServeHTTP(rec, req)
		return rec.Code
	}

	direct := NewIPRateLimiter(1, time.Minute)
	if got := hit(direct, "1.1.1.1"); got != http.StatusNoContent {
		t.Fatalf("first status=%d", got)
	}
	if got := hit(direct, "2.2.2.2"); got != http.StatusTooManyRequests {
		t.Fatalf("rotated header bypassed limit: status=%d", got)
	}

	proxied := NewIPRateLimiter(1, time.Minute)
	proxied.TrustForwardedFor = true
	if got := hit(proxied, "1.1.1.1"); got != http.StatusNoContent {
		t.Fatalf("first status=%d", got)
	}
	if got := hit(proxied, "2.2.2.2, 10.0.0.9"); got != http.StatusNoContent {
		t.Fatalf("distinct client limited: status=%d", got)
	}
	if got := hit(proxied, "1.1.1.1"); got != http.StatusTooManyRequests {
		t.Fatalf("repeat client status=%d", got)
	}
}

func TestMetricsAuth(t *testing.T) {
	cases := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"disabled", "", "Bearer x", http.StatusForbidden},
		{"missing", "s3", "", http.StatusForbidden},
		{"wrong", "s3", "Bearer nope", http.StatusForbidden},
		{"ok", "s3", "Bearer s3", http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			MetricsAuth(tc.token)(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status=%d want=%d", rec.Code, tc.want)
			}
		})
	}
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin/products", nil)
	if WantsJSON(req) {
		t.Fatalf("plain form post treated as api client")
	}

	req.Header.Set("Accept", "application/json")
	if !WantsJSON(req) {
		t.Fatalf("accept json ignored")
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/products", nil)
	req.Header.Set("Authorization", "Bearer abc")
	if !WantsJSON(req) {
		t.Fatalf("bearer client ignored")
	}
}

func TestMetrics_RoutePatternLabelAndFallbacks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware("storefront", ChiRoutePatternOrPath))
	r.Get("/lang/{code}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	})

	for _, code := range []string{"en", "pt", "fr"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/lang/"+code, nil))
	}

	got := testutil.ToFloat64(m.Requests.WithLabelValues("storefront", http.MethodGet, "/lang/{code}", "303"))
	if got != 3 {
		t.Fatalf("requests=%v", got)
	}

	m.Fallback("currency", "stale")
	m.ObserveUpstream("currency", time.Now(), errors.New("boom"))
	if v := testutil.ToFloat64(m.Fallbacks.WithLabelValues("currency", "stale")); v != 1 {
		t.Fatalf("fallbacks=%v", v)
	}

	var nilMetrics *Metrics
	nilMetrics.Fallback("currency", "stale")
	nilMetrics.ObserveUpstream("currency", time.Now(), nil)
}
