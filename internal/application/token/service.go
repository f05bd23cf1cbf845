package token

import (
	"fmt"
	"time"

	"github.com/authkeeper/internal/domain"
	jwtinfra "github.com/authkeeper/internal/infrastructure/jwt"
)

const (
	AudienceAccess  = "access"
	AudienceRefresh = "refresh"
)

// Pair is one short-lived access token and one longer-lived refresh token issued together.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type signer interface {
	Sign(userID, email, role string) (string, time.Time, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

// Service issues and verifies token pairs. It is stateless.
type Service struct {
	access  signer
	refresh signer
}

func NewService(access, refresh signer) *Service {
	return &Service{access: access, refresh: refresh}
}

// IssuePair signs a fresh access/refresh pair carrying the user's id, email and role.
func (s *Service) IssuePair(u *domain.User) (*Pair, error) {
	at, atExp, err := s.access.Sign(u.UserID, u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	rt, rtExp, err := s.refresh.Sign(u.UserID, u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &Pair{
		AccessToken:      at,
		RefreshToken:     rt,
		AccessExpiresAt:  atExp,
		RefreshExpiresAt: rtExp,
	}, nil
}

func (s *Service) VerifyAccess(token string) (*jwtinfra.Claims, error) {
	return s.access.Verify(token)
}

func (s *Service) VerifyRefresh(token string) (*jwtinfra.Claims, error) {
	return s.refresh.Verify(token)
}
