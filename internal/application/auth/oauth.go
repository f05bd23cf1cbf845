package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/device"
	"github.com/authkeeper/internal/pkg/id"
)

var (
	ErrAccountDisabled  = fmt.Errorf("account disabled, contact support to reactivate it: %w", domain.ErrForbidden)
	ErrEmailNotVerified = fmt.Errorf("provider email is not verified: %w", domain.ErrUnauthorized)
)

// OAuthLogin signs in the owner of a provider identity, creating the user and
// the account link as needed. Provider sign-in bypasses the activation code.
func (s *service) OAuthLogin(ctx context.Context, p domain.OAuthProfile, fp device.Fingerprint) (*Result, error) {
	if !p.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if p.Provider == "" || p.ProviderUserID == "" || p.Email == "" {
		return nil, fmt.Errorf("incomplete provider profile: %w", domain.ErrBadRequest)
	}
	email := domain.NormalizeEmail(p.Email)

	u, linked, err := s.resolveOAuthUser(ctx, p, email)
	if err != nil {
		return nil, err
	}

	if disabled(u) {
		return nil, ErrAccountDisabled
	}
	if !u.IsActive {
		now := s.now()
		if err := s.users.Update(ctx, u.UserID, map[string]interface{}{
			fieldIsActive:      true,
			fieldEmailVerified: now,
		}); err != nil {
			return nil, err
		}
		u.IsActive = true
		u.EmailVerified = stamp(now)
	}
	if u.AvatarURL == "" && p.AvatarURL != "" {
		if err := s.users.Update(ctx, u.UserID, map[string]interface{}{fieldAvatarURL: p.AvatarURL}); err != nil {
			return nil, err
		}
		u.AvatarURL = p.AvatarURL
	}

	if !linked {
		err := s.accounts.Put(ctx, &domain.Account{
			Provider:          p.Provider,
			ProviderAccountID: p.ProviderUserID,
			UserID:            u.UserID,
			CreatedAt:         s.now(),
		})
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		if err == nil {
			s.publish(ctx, domain.EventAccountLinked, u, fp.IP, p.Provider)
		}
	}
	return s.authenticate(ctx, u, fp)
}

// resolveOAuthUser finds the user by provider link, then by email, and
// otherwise creates one. linked reports whether the account row already exists.
func (s *service) resolveOAuthUser(ctx context.Context, p domain.OAuthProfile, email string) (u *domain.User, linked bool, err error) {
	acct, err := s.accounts.Get(ctx, p.Provider, p.ProviderUserID)
	switch {
	case err == nil:
		u, err = s.users.Get(ctx, acct.UserID)
		if err == nil {
			return u, true, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, err
		}
		// Dangling link: fall through to email matching and relink.
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, err
	}

	u, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	now := s.now()
	u = &domain.User{
		UserID:        id.New(),
		Email:         email,
		Name:          displayName(p.Name, email),
		AvatarURL:     p.AvatarURL,
		EmailVerified: stamp(now),
		IsActive:      true,
		Role:          domain.RoleUser,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.users.Create(ctx, u)
	if errors.Is(err, domain.ErrConflict) {
		// Lost a race with a concurrent sign-up for the same email.
		u, err = s.users.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, false, err
	}
	return u, false, nil
}

func displayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
