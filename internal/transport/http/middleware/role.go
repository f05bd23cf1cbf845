package middleware

import (
	"net/http"

	"github.com/authkeeper/internal/transport/http/respond"
)

// RequireRole returns middleware that allows access only to users whose JWT
// role matches one of the provided role names (e.g. domain.RoleAdmin).
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				respond.Fail(w, http.StatusUnauthorized, "authentication required", respond.KindAuthentication)
				return
			}
			for _, role := range allowedRoles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respond.Fail(w, http.StatusForbidden, "insufficient permissions", respond.KindForbidden)
		})
	}
}
