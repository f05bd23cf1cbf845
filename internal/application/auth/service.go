package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/authkeeper/internal/application/otp"
	"github.com/authkeeper/internal/application/session"
	"github.com/authkeeper/internal/application/token"
	"github.com/authkeeper/internal/domain"
	jwtinfra "github.com/authkeeper/internal/infrastructure/jwt"
	"github.com/authkeeper/internal/pkg/device"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial user updates.
const (
	fieldIsActive          = "is_active"
	fieldEmailVerified     = "email_verified"
	fieldAvatarURL         = "avatar_url"
	fieldPasswordHash      = "password_hash"
	fieldPasswordChangedAt = "password_changed_at"
	fieldTwoFactorEnabled  = "two_factor_enabled"
)

// User-facing rejection messages.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgUseOAuth           = "This account uses Google sign-in. Please continue with Google."
	MsgInvalidOTP         = "Invalid or expired OTP"
)

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type accountStore interface {
	Get(ctx context.Context, provider, providerAccountID string) (*domain.Account, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Account, error)
	Put(ctx context.Context, a *domain.Account) error
}

type tokenIssuer interface {
	IssuePair(u *domain.User) (*token.Pair, error)
	VerifyRefresh(tok string) (*jwtinfra.Claims, error)
}

// EventPublisher receives security-relevant events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, e domain.AuthEvent) error
}

// Result is what every successful authentication produces.
type Result struct {
	Pair    *token.Pair
	Session *domain.Session
	User    *domain.User
}

type Service interface {
	Login(ctx context.Context, req domain.LoginRequest, fp device.Fingerprint) (*Outcome, error)
	Register(ctx context.Context, req domain.RegisterRequest, fp device.Fingerprint) (*domain.User, error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest, fp device.Fingerprint) (*Result, error)
	ResendOTP(ctx context.Context, req ResendOTPRequest, ip string) error
	Refresh(ctx context.Context, refreshToken string, fp device.Fingerprint) (*Result, error)
	Logout(ctx context.Context, req LogoutRequest) (clearCookies bool, err error)
	Current(ctx context.Context, userID, refreshToken string) (*CurrentSession, error)
	OAuthLogin(ctx context.Context, profile domain.OAuthProfile, fp device.Fingerprint) (*Result, error)
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, req PasswordResetRequest, ip string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	SetTwoFactor(ctx context.Context, userID string, req TwoFactorRequest) (*domain.User, error)
	RevokeUserSessions(ctx context.Context, userID string) error
}

type ServiceDeps struct {
	UserRepo    userStore
	AccountRepo accountStore
	Tokens      tokenIssuer
	OTP         otp.Service
	Sessions    session.Service
	// Events may be nil.
	Events     EventPublisher
	BcryptCost int
	Now        func() time.Time
}

type service struct {
	users      userStore
	accounts   accountStore
	tokens     tokenIssuer
	otp        otp.Service
	sessions   session.Service
	events     EventPublisher
	bcryptCost int
	now        func() time.Time
}

func NewService(d ServiceDeps) Service {
	s := &service{
		users:      d.UserRepo,
		accounts:   d.AccountRepo,
		tokens:     d.Tokens,
		otp:        d.OTP,
		sessions:   d.Sessions,
		events:     d.Events,
		bcryptCost: d.BcryptCost,
		now:        d.Now,
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// disabled reports an account that was verified once and then switched off.
// Only pending registrations may be activated by a code or a provider.
func disabled(u *domain.User) bool {
	return !u.IsActive && u.EmailVerified != nil
}

// authenticate issues a token pair and persists the session bound to its refresh token.
func (s *service) authenticate(ctx context.Context, u *domain.User, fp device.Fingerprint) (*Result, error) {
	pair, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Create(ctx, sessionParams(u.UserID, pair, fp))
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventLogin, u, fp.IP, fp.DeviceInfo.Browser+" on "+fp.DeviceInfo.OS)
	return &Result{Pair: pair, Session: sess, User: u}, nil
}

func sessionParams(userID string, pair *token.Pair, fp device.Fingerprint) session.CreateParams {
	return session.CreateParams{
		UserID:       userID,
		Device:       fp.DeviceInfo,
		IPAddress:    fp.IP,
		UserAgent:    fp.UserAgent,
		ExpiresAt:    pair.RefreshExpiresAt,
		RefreshToken: pair.RefreshToken,
	}
}

func (s *service) publish(ctx context.Context, eventType string, u *domain.User, ip, dev string) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, domain.AuthEvent{
		Type:       eventType,
		UserID:     u.UserID,
		Email:      u.Email,
		IPAddress:  ip,
		DeviceInfo: dev,
		OccurredAt: s.now(),
	})
	if err != nil {
		slog.Warn("failed to publish auth event", "type", eventType, "user_id", u.UserID, "err", err)
	}
}

func (s *service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func passwordMatches(u *domain.User, password string) bool {
	if !u.HasPassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
