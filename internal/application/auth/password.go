package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/authkeeper/internal/domain"
)

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type TwoFactorRequest struct {
	Enabled  *bool  `json:"enabled" validate:"required"`
	Password string `json:"password"`
}

// ChangePassword sets a new password. The current one is required unless the
// user has never had one. Other sessions stay valid.
func (s *service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.HasPassword() && !passwordMatches(u, req.CurrentPassword) {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	return s.setPassword(ctx, u, req.NewPassword)
}

func (s *service) RequestPasswordReset(ctx context.Context, req PasswordResetRequest, ip string) error {
	email := domain.NormalizeEmail(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return err
	}
	return s.otp.GenerateAndSend(ctx, email, domain.IntentPasswordReset, ip)
}

// ResetPassword consumes a password_reset_otp and sets the new password.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	email := domain.NormalizeEmail(req.Email)
	ok, err := s.otp.Verify(ctx, email, req.OTP, domain.IntentPasswordReset)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOTP
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return err
	}
	return s.setPassword(ctx, u, req.NewPassword)
}

func (s *service) SetTwoFactor(ctx context.Context, userID string, req TwoFactorRequest) (*domain.User, error) {
	if req.Enabled == nil {
		return nil, fmt.Errorf("enabled is required: %w", domain.ErrBadRequest)
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.HasPassword() && !passwordMatches(u, req.Password) {
		return nil, fmt.Errorf("password is incorrect: %w", domain.ErrUnauthorized)
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{fieldTwoFactorEnabled: *req.Enabled}); err != nil {
		return nil, err
	}
	u.TwoFactorEnabled = *req.Enabled
	return u, nil
}

func (s *service) setPassword(ctx context.Context, u *domain.User, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.users.Update(ctx, u.UserID, map[string]interface{}{
		fieldPasswordHash:      hash,
		fieldPasswordChangedAt: now,
	}); err != nil {
		return err
	}
	s.publish(ctx, domain.EventPasswordChanged, u, "", "")
	return nil
}
