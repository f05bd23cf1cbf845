package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/device"
)

// ErrInvalidOTP collapses wrong, expired, reused and unknown-user codes.
var ErrInvalidOTP = fmt.Errorf("%s: %w", MsgInvalidOTP, domain.ErrBadRequest)

type VerifyOTPRequest struct {
	Email  string        `json:"email" validate:"required,email"`
	OTP    string        `json:"otp" validate:"required,len=6,numeric"`
	Intent domain.Intent `json:"intent" validate:"required"`
}

type ResendOTPRequest struct {
	Email  string        `json:"email" validate:"required,email"`
	Intent domain.Intent `json:"intent" validate:"required"`
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest, fp device.Fingerprint) (*Result, error) {
	if !req.Intent.Valid() {
		return nil, fmt.Errorf("unknown intent %q: %w", req.Intent, domain.ErrBadRequest)
	}
	email := domain.NormalizeEmail(req.Email)
	ok, err := s.otp.Verify(ctx, email, req.OTP, req.Intent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidOTP
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidOTP
	}
	if err != nil {
		return nil, err
	}
	if disabled(u) {
		return nil, ErrAccountDisabled
	}

	switch req.Intent {
	case domain.IntentAccountActivation:
		now := s.now()
		if err := s.users.Update(ctx, u.UserID, map[string]interface{}{
			fieldIsActive:      true,
			fieldEmailVerified: now,
		}); err != nil {
			return nil, err
		}
		u.IsActive = true
		u.EmailVerified = stamp(now)
	case domain.IntentEmailVerification:
		if u.EmailVerified == nil {
			now := s.now()
			if err := s.users.Update(ctx, u.UserID, map[string]interface{}{fieldEmailVerified: now}); err != nil {
				return nil, err
			}
			u.EmailVerified = stamp(now)
		}
	}
	return s.authenticate(ctx, u, fp)
}

func (s *service) ResendOTP(ctx context.Context, req ResendOTPRequest, ip string) error {
	if !req.Intent.Valid() {
		return fmt.Errorf("unknown intent %q: %w", req.Intent, domain.ErrBadRequest)
	}
	email := domain.NormalizeEmail(req.Email)
	if req.Intent.RequiresUser() {
		u, err := s.users.GetByEmail(ctx, email)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if req.Intent == domain.IntentAccountActivation && u.IsActive {
			return fmt.Errorf("account is already active: %w", domain.ErrBadRequest)
		}
		if disabled(u) {
			return ErrAccountDisabled
		}
	}
	return s.otp.GenerateAndSend(ctx, email, req.Intent, ip)
}
