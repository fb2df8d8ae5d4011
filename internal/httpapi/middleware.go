package httpapi

import (
	"net/http"
	"strings"
)

// requireSession gates a handler behind session verification. The cookie
// value is passed to the auth core opaquely; any invalid, absent, or expired
// token gets the same response, with no hint why. HTML requests are sent to
// the login page, API requests get a 401.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var token string
		if c, err := r.Cookie(SessionCookieName); err == nil {
			token = c.Value
		}

		if !s.auth.VerifySession(r.Context(), token) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			} else {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
			}
			return
		}
		next(w, r)
	}
}
