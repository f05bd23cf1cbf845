package token

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/authkeeper/internal/domain"
	jwtinfra "github.com/authkeeper/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	access, err := jwtinfra.NewProvider("access-secret", "authkeeper", AudienceAccess, 15*time.Minute)
	require.NoError(t, err)
	refresh, err := jwtinfra.NewProvider("refresh-secret", "authkeeper", AudienceRefresh, 7*24*time.Hour)
	require.NoError(t, err)
	return NewService(access, refresh)
}

func testUser() *domain.User {
	return &domain.User{UserID: "u1", Email: "a@b.com", Role: domain.RoleUser}
}

func TestIssuePair_ClaimsAndExpiry(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.IssuePair(testUser())
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.AccessExpiresAt, 2*time.Second)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), pair.RefreshExpiresAt, 2*time.Second)

	ac, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", ac.UserID)
	assert.Equal(t, "a@b.com", ac.Email)
	assert.Equal(t, domain.RoleUser, ac.Role)

	rc, err := svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", rc.UserID)
}

func TestIssuePair_ClassesDoNotCrossVerify(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.IssuePair(testUser())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.RefreshToken)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	_, err = svc.VerifyRefresh(pair.AccessToken)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestCookieWriter_Set(t *testing.T) {
	cw := NewCookieWriter(15*time.Minute, 30*24*time.Hour, true)
	rr := httptest.NewRecorder()
	cw.Set(rr, &Pair{AccessToken: "at", RefreshToken: "rt"})

	cookies := map[string]*http.Cookie{}
	for _, c := range rr.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, AccessCookie)
	require.Contains(t, cookies, RefreshCookie)

	at, rt := cookies[AccessCookie], cookies[RefreshCookie]
	assert.Equal(t, "at", at.Value)
	assert.Equal(t, 900, at.MaxAge)
	assert.Equal(t, "rt", rt.Value)
	assert.Equal(t, 30*24*3600, rt.MaxAge)
	for _, c := range []*http.Cookie{at, rt} {
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
	}
}

func TestCookieWriter_NotSecureOutsideProduction(t *testing.T) {
	cw := NewCookieWriter(time.Minute, time.Hour, false)
	rr := httptest.NewRecorder()
	cw.Set(rr, &Pair{AccessToken: "at", RefreshToken: "rt"})
	for _, c := range rr.Result().Cookies() {
		assert.False(t, c.Secure)
	}
}

func TestCookieWriter_Clear(t *testing.T) {
	cw := NewCookieWriter(time.Minute, time.Hour, false)
	rr := httptest.NewRecorder()
	cw.Clear(rr)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, FromRequest(req, RefreshCookie))
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "rt"})
	assert.Equal(t, "rt", FromRequest(req, RefreshCookie))
}
