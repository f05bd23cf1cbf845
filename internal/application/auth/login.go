package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/device"
	"github.com/authkeeper/internal/pkg/id"
)

type OutcomeKind int

const (
	OutcomeRejected OutcomeKind = iota
	OutcomeAuthenticated
	OutcomeRequiresTwoFactor
	OutcomeRequiresActivation
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeRequiresTwoFactor:
		return "requires_two_factor"
	case OutcomeRequiresActivation:
		return "requires_activation"
	default:
		return "rejected"
	}
}

// Outcome is the result of a password login. Result is set only for
// OutcomeAuthenticated and Reason only for OutcomeRejected.
type Outcome struct {
	Kind   OutcomeKind
	Result *Result
	Reason string
	Email  string
}

func rejected(reason string) *Outcome {
	return &Outcome{Kind: OutcomeRejected, Reason: reason}
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest, fp device.Fingerprint) (*Outcome, error) {
	email := domain.NormalizeEmail(req.Email)
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return rejected(MsgInvalidCredentials), nil
	}
	if err != nil {
		return nil, err
	}

	if !u.HasPassword() {
		linked, err := s.accounts.ListByUser(ctx, u.UserID)
		if err != nil {
			return nil, err
		}
		if len(linked) > 0 {
			return rejected(MsgUseOAuth), nil
		}
		return rejected(MsgInvalidCredentials), nil
	}
	if !passwordMatches(u, req.Password) {
		return rejected(MsgInvalidCredentials), nil
	}
	if disabled(u) {
		return nil, ErrAccountDisabled
	}

	if u.TwoFactorEnabled {
		if err := s.otp.GenerateAndSend(ctx, u.Email, domain.IntentTwoFactor, fp.IP); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeRequiresTwoFactor, Email: u.Email}, nil
	}
	if !u.IsActive {
		if err := s.otp.GenerateAndSend(ctx, u.Email, domain.IntentAccountActivation, fp.IP); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeRequiresActivation, Email: u.Email}, nil
	}

	res, err := s.authenticate(ctx, u, fp)
	if err != nil {
		return nil, err
	}
	return &Outcome{Kind: OutcomeAuthenticated, Result: res, Email: u.Email}, nil
}

// Register creates an inactive user and sends the activation code.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest, fp device.Fingerprint) (*domain.User, error) {
	email := domain.NormalizeEmail(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         req.Name,
		IsActive:     false,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	if err := s.otp.GenerateAndSend(ctx, email, domain.IntentAccountActivation, fp.IP); err != nil {
		var rl *domain.RateLimitError
		if !errors.As(err, &rl) {
			return nil, err
		}
		slog.Info("activation code still cooling down", "email", email, "time_left", rl.TimeLeft)
	}
	return u, nil
}

func stamp(t time.Time) *time.Time { return &t }
