package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/authkeeper/internal/application/auth"
	"github.com/authkeeper/internal/application/token"
	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/device"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) Login(ctx context.Context, req domain.LoginRequest, fp device.Fingerprint) (*auth.Outcome, error) {
	args := m.Called(ctx, req, fp)
	out, _ := args.Get(0).(*auth.Outcome)
	return out, args.Error(1)
}

func (m *mockAuthSvc) Register(ctx context.Context, req domain.RegisterRequest, fp device.Fingerprint) (*domain.User, error) {
	args := m.Called(ctx, req, fp)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockAuthSvc) VerifyOTP(ctx context.Context, req auth.VerifyOTPRequest, fp device.Fingerprint) (*auth.Result, error) {
	args := m.Called(ctx, req, fp)
	res, _ := args.Get(0).(*auth.Result)
	return res, args.Error(1)
}

func (m *mockAuthSvc) ResendOTP(ctx context.Context, req auth.ResendOTPRequest, ip string) error {
	return m.Called(ctx, req, ip).Error(0)
}

func (m *mockAuthSvc) Refresh(ctx context.Context, refreshToken string, fp device.Fingerprint) (*auth.Result, error) {
	args := m.Called(ctx, refreshToken, fp)
	res, _ := args.Get(0).(*auth.Result)
	return res, args.Error(1)
}

func (m *mockAuthSvc) Logout(ctx context.Context, req auth.LogoutRequest) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}

func (m *mockAuthSvc) Current(ctx context.Context, userID, refreshToken string) (*auth.CurrentSession, error) {
	args := m.Called(ctx, userID, refreshToken)
	cur, _ := args.Get(0).(*auth.CurrentSession)
	return cur, args.Error(1)
}

func (m *mockAuthSvc) OAuthLogin(ctx context.Context, profile domain.OAuthProfile, fp device.Fingerprint) (*auth.Result, error) {
	args := m.Called(ctx, profile, fp)
	res, _ := args.Get(0).(*auth.Result)
	return res, args.Error(1)
}

func (m *mockAuthSvc) ChangePassword(ctx context.Context, userID string, req auth.ChangePasswordRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}

func (m *mockAuthSvc) RequestPasswordReset(ctx context.Context, req auth.PasswordResetRequest, ip string) error {
	return m.Called(ctx, req, ip).Error(0)
}

func (m *mockAuthSvc) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAuthSvc) SetTwoFactor(ctx context.Context, userID string, req auth.TwoFactorRequest) (*domain.User, error) {
	args := m.Called(ctx, userID, req)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockAuthSvc) RevokeUserSessions(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// --- helpers ---

func newTestCookies() *token.CookieWriter {
	return token.NewCookieWriter(15*time.Minute, 30*24*time.Hour, false)
}

func testResult() *auth.Result {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &auth.Result{
		Pair: &token.Pair{
			AccessToken:      "access-jwt",
			RefreshToken:     "refresh-jwt",
			AccessExpiresAt:  now.Add(15 * time.Minute),
			RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
		},
		Session: &domain.Session{SessionID: "s1", UserID: "u1", IsActive: true},
		User:    &domain.User{UserID: "u1", Email: "alice@example.com", IsActive: true, Role: domain.RoleUser},
	}
}

func jsonReq(method, target string, body interface{}) *http.Request {
	b, _ := json.Marshal(body)
	return httptest.NewRequest(method, target, bytes.NewReader(b))
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Message *string                `json:"message"`
	Error   *string                `json:"error"`
	Meta    map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
