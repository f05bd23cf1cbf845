package jwtinfra

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any signature, issuer, audience or expiry failure.
var ErrInvalidToken = fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)

// Claims holds the JWT payload fields.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs for one token class. Each class has
// its own secret and audience so a token never verifies against another class.
type Provider struct {
	secret   []byte
	issuer   string
	audience string
	expiry   time.Duration
	now      func() time.Time
}

// Option customises a Provider.
type Option func(*Provider)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(secret, issuer, audience string, expiry time.Duration, opts ...Option) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if expiry <= 0 {
		return nil, errors.New("jwt expiry must be positive")
	}
	p := &Provider{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		expiry:   expiry,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Expiry returns the lifetime of tokens signed by p.
func (p *Provider) Expiry() time.Duration { return p.expiry }

// Sign issues a token for the user and returns it with its expiry time.
func (p *Provider) Sign(userID, email, role string) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(p.expiry)
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.New(),
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry. It performs no I/O.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		slog.Debug("token rejected", "audience", p.audience, "err", err)
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
