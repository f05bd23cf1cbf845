package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/authkeeper/internal/application/token"
	jwtinfra "github.com/authkeeper/internal/infrastructure/jwt"
	"github.com/authkeeper/internal/transport/http/respond"
)

type contextKey string

const claimsKey contextKey = "claims"

// AccessVerifier validates access tokens.
type AccessVerifier interface {
	VerifyAccess(token string) (*jwtinfra.Claims, error)
}

// Auth rejects requests without a valid access token and injects its claims
// into the context. The token is read from the access cookie, then from a
// Bearer header.
func Auth(v AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := AccessToken(r)
			if raw == "" {
				respond.Fail(w, http.StatusUnauthorized, "authentication required", respond.KindAuthentication)
				return
			}
			claims, err := v.VerifyAccess(raw)
			if err != nil {
				respond.Fail(w, http.StatusUnauthorized, "invalid or expired token", respond.KindAuthentication)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth injects claims when a valid access token is present and
// otherwise passes the request through untouched.
func OptionalAuth(v AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := AccessToken(r); raw != "" {
				if claims, err := v.VerifyAccess(raw); err == nil {
					r = r.WithContext(WithClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessToken extracts the raw access token from the request, or "".
func AccessToken(r *http.Request) string {
	if v := token.FromRequest(r, token.AccessCookie); v != "" {
		return v
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func WithClaims(ctx context.Context, c *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}
