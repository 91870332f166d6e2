package admin

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"AlphaStore/pkg/kit"
)

const (
	loginLimitPerMin = 5
	limitWindow      = 60 * time.Second
)

// Routes is mounted under /admin.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	loginLimiter := kit.NewIPRateLimiter(loginLimitPerMin, limitWindow)
	loginLimiter.TrustForwardedFor = s.TrustProxy

	r.Get("/login", s.loginPage)
	r.With(loginLimiter.Middleware).Post("/login", s.login)
	r.With(loginLimiter.Middleware).Post("/token", s.issueToken)
	r.Get("/logout", s.Logout)

	r.Group(func(pr chi.Router) {
		pr.Use(s.RequireAdmin)
		pr.Get("/", s.dashboard)
		pr.Post("/products", s.createProduct)
	})

	return r
}
