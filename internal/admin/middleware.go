package admin

import (
	"net/http"

	"AlphaStore/pkg/kit"
)

// RequireAdmin lets through a logged-in admin session or a valid admin
// bearer token. Browsers are sent to the login page, API clients get 401.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok, ok := kit.BearerToken(r); ok {
			claims, err := s.Tokens.Parse(tok)
			if err != nil || claims.Role != RoleAdmin {
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if s.Sessions.IsAdmin(r) {
			next.ServeHTTP(w, r)
			return
		}

		if kit.WantsJSON(r) {
			kit.WriteError(w, r, http.StatusUnauthorized, "login required", nil)
			return
		}
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
	})
}
