package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/id"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// VerificationStore persists issued codes.
type VerificationStore interface {
	Put(ctx context.Context, v *domain.VerificationToken) error
	// Consume marks one unused code matching email, intent and code as used,
	// provided it expires after now. It reports whether a row was consumed.
	Consume(ctx context.Context, email string, intent domain.Intent, code string, now time.Time) (bool, error)
}

// CooldownStore holds the issuance time of the latest code per (email, intent).
type CooldownStore interface {
	// LastIssued returns the zero time when nothing was issued.
	LastIssued(ctx context.Context, email string, intent domain.Intent) (time.Time, error)
	// Reserve records at as the latest issuance unless another one happened
	// after at-window. On conflict it returns false with the existing time.
	Reserve(ctx context.Context, email string, intent domain.Intent, at time.Time, window time.Duration) (bool, time.Time, error)
	Release(ctx context.Context, email string, intent domain.Intent) error
}

// Mailer delivers HTML email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

type Service interface {
	CheckRateLimit(ctx context.Context, email string, intent domain.Intent) error
	GenerateAndSend(ctx context.Context, email string, intent domain.Intent, ip string) error
	Verify(ctx context.Context, email, code string, intent domain.Intent) (bool, error)
}

type ServiceDeps struct {
	Verifications VerificationStore
	Cooldowns     CooldownStore
	Mailer        Mailer
	Expiry        time.Duration
	Cooldown      time.Duration
	Now           func() time.Time
}

type service struct {
	verifications VerificationStore
	cooldowns     CooldownStore
	mailer        Mailer
	expiry        time.Duration
	cooldown      time.Duration
	now           func() time.Time
}

func NewService(d ServiceDeps) Service {
	s := &service{
		verifications: d.Verifications,
		cooldowns:     d.Cooldowns,
		mailer:        d.Mailer,
		expiry:        d.Expiry,
		cooldown:      d.Cooldown,
		now:           d.Now,
	}
	if s.expiry == 0 {
		s.expiry = 10 * time.Minute
	}
	if s.cooldown == 0 {
		s.cooldown = 2 * time.Minute
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *service) CheckRateLimit(ctx context.Context, email string, intent domain.Intent) error {
	last, err := s.cooldowns.LastIssued(ctx, domain.NormalizeEmail(email), intent)
	if err != nil {
		return fmt.Errorf("read otp cooldown: %w", err)
	}
	if rl := s.rateLimitError(last); rl != nil {
		return rl
	}
	return nil
}

func (s *service) GenerateAndSend(ctx context.Context, email string, intent domain.Intent, ip string) error {
	if !intent.Valid() {
		return fmt.Errorf("unknown intent %q: %w", intent, domain.ErrBadRequest)
	}
	email = domain.NormalizeEmail(email)
	now := s.now()

	ok, last, err := s.cooldowns.Reserve(ctx, email, intent, now, s.cooldown)
	if err != nil {
		return fmt.Errorf("reserve otp slot: %w", err)
	}
	if !ok {
		if rl := s.rateLimitError(last); rl != nil {
			return rl
		}
		// The competing reservation expired between the write and our read.
		return &domain.RateLimitError{TimeLeft: 1}
	}

	code, err := generateCode()
	if err != nil {
		s.release(ctx, email, intent)
		return err
	}
	v := &domain.VerificationToken{
		TokenID:   id.New(),
		Email:     email,
		Token:     code,
		Type:      intent,
		ExpiresAt: now.Add(s.expiry),
		IPAddress: ip,
		CreatedAt: now,
	}
	if err := s.verifications.Put(ctx, v); err != nil {
		s.release(ctx, email, intent)
		return fmt.Errorf("store otp: %w", err)
	}

	subject, body := message(intent, code, s.expiry)
	if err := s.mailer.SendEmail(ctx, email, subject, body); err != nil {
		slog.Warn("failed to send otp email", "email", email, "intent", intent, "err", err)
	}
	return nil
}

func (s *service) Verify(ctx context.Context, email, code string, intent domain.Intent) (bool, error) {
	if email == "" || code == "" || !intent.Valid() {
		return false, nil
	}
	ok, err := s.verifications.Consume(ctx, domain.NormalizeEmail(email), intent, code, s.now())
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	return ok, nil
}

// rateLimitError returns nil when last lies outside the cooldown window.
func (s *service) rateLimitError(last time.Time) *domain.RateLimitError {
	if last.IsZero() {
		return nil
	}
	left := s.cooldown - s.now().Sub(last)
	if left <= 0 {
		return nil
	}
	return &domain.RateLimitError{TimeLeft: int(math.Ceil(left.Seconds()))}
}

func (s *service) release(ctx context.Context, email string, intent domain.Intent) {
	if err := s.cooldowns.Release(ctx, email, intent); err != nil {
		slog.Warn("failed to release otp slot", "email", email, "intent", intent, "err", err)
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

// IsRateLimited reports whether err carries a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *domain.RateLimitError
	return errors.As(err, &rl)
}
