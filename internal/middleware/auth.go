package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/render"
)

// AdminTokenHeader carries the dashboard admin token.
const AdminTokenHeader = "X-Admin-Token"

// RequireAdmin gates mutating dashboard operations behind the configured
// admin token. An empty configured token runs the API in open mode. A
// present but wrong token is always rejected, never treated as anonymous.
func RequireAdmin(adminToken string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminToken == "" {
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get(AdminTokenHeader)
			if headerToken != "" && secureEqual(headerToken, adminToken) {
				next.ServeHTTP(w, r)
				return
			}

			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, map[string]interface{}{
				"error":   ErrorCodeUnauthorized,
				"message": ErrorMessageUnauthorized,
			})
		})
	}
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
