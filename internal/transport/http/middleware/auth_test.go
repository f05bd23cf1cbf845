package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/authkeeper/internal/application/token"
	"github.com/authkeeper/internal/domain"
	jwtinfra "github.com/authkeeper/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens(t *testing.T) *token.Service {
	t.Helper()
	access, err := jwtinfra.NewProvider("access-secret", "authkeeper", token.AudienceAccess, 15*time.Minute)
	require.NoError(t, err)
	refresh, err := jwtinfra.NewProvider("refresh-secret", "authkeeper", token.AudienceRefresh, 7*24*time.Hour)
	require.NoError(t, err)
	return token.NewService(access, refresh)
}

func issue(t *testing.T, svc *token.Service, role string) *token.Pair {
	t.Helper()
	pair, err := svc.IssuePair(&domain.User{UserID: "u1", Email: "alice@example.com", Role: role})
	require.NoError(t, err)
	return pair
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestAuth_MissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	Auth(newTestTokens(t))(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
}

func TestAuth_BadToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr := httptest.NewRecorder()
	Auth(newTestTokens(t))(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_RefreshTokenRejected(t *testing.T) {
	svc := newTestTokens(t)
	pair := issue(t, svc, domain.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	rr := httptest.NewRecorder()
	Auth(svc)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_CookieToken_InjectsClaims(t *testing.T) {
	svc := newTestTokens(t)
	pair := issue(t, svc, domain.RoleUser)

	var gotClaims *jwtinfra.Claims
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: token.AccessCookie, Value: pair.AccessToken})
	rr := httptest.NewRecorder()
	Auth(svc)(capture).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "u1", gotClaims.UserID)
	assert.Equal(t, domain.RoleUser, gotClaims.Role)
}

func TestAuth_BearerToken(t *testing.T) {
	svc := newTestTokens(t)
	pair := issue(t, svc, domain.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rr := httptest.NewRecorder()
	Auth(svc)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestOptionalAuth(t *testing.T) {
	svc := newTestTokens(t)
	pair := issue(t, svc, domain.RoleUser)

	var present bool
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rr := httptest.NewRecorder()
	OptionalAuth(svc)(capture).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, present)

	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = httptest.NewRecorder()
	OptionalAuth(svc)(capture).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, present)

	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	req.AddCookie(&http.Cookie{Name: token.AccessCookie, Value: pair.AccessToken})
	rr = httptest.NewRecorder()
	OptionalAuth(svc)(capture).ServeHTTP(rr, req)
	assert.True(t, present)
}
