package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/id"
)

// Store is the persistence surface the session service needs.
type Store interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
}

type CreateParams struct {
	UserID       string
	Device       domain.DeviceInfo
	IPAddress    string
	UserAgent    string
	ExpiresAt    time.Time
	RefreshToken string
}

type Service interface {
	Create(ctx context.Context, p CreateParams) (*domain.Session, error)
	// GetByToken returns nil, nil when the session is missing, inactive or expired.
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	Touch(ctx context.Context, token string) error
	Invalidate(ctx context.Context, token string) error
	InvalidateByID(ctx context.Context, sessionID string) error
	InvalidateAllForUser(ctx context.Context, userID string) error
	ListActiveForUser(ctx context.Context, userID string) ([]domain.Session, error)
}

type ServiceDeps struct {
	Store Store
	Now   func() time.Time
}

type service struct {
	store Store
	now   func() time.Time
}

func NewService(d ServiceDeps) Service {
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{store: d.Store, now: now}
}

func (s *service) Create(ctx context.Context, p CreateParams) (*domain.Session, error) {
	if p.UserID == "" || p.RefreshToken == "" {
		return nil, domain.ErrMissingCredential
	}
	now := s.now()
	sess := &domain.Session{
		SessionID:      id.New(),
		SessionToken:   p.RefreshToken,
		UserID:         p.UserID,
		ExpiresAt:      p.ExpiresAt,
		DeviceInfo:     p.Device,
		IPAddress:      p.IPAddress,
		UserAgent:      p.UserAgent,
		IsActive:       true,
		LastAccessedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *service) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := s.store.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !sess.Live(s.now()) {
		return nil, nil
	}
	return sess, nil
}

// GetByID returns the session regardless of state, or an ErrNotFound-wrapped error.
func (s *service) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.store.Get(ctx, sessionID)
}

func (s *service) Touch(ctx context.Context, token string) error {
	sess, err := s.GetByToken(ctx, token)
	if err != nil || sess == nil {
		return err
	}
	now := s.now()
	return s.store.Update(ctx, sess.SessionID, map[string]interface{}{
		"last_accessed_at": now,
	})
}

func (s *service) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sess, err := s.store.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.deactivate(ctx, sess)
}

func (s *service) InvalidateByID(ctx context.Context, sessionID string) error {
	sess, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.deactivate(ctx, sess)
}

// InvalidateAllForUser deactivates every active session of the user. It keeps
// going past individual failures and returns the first one.
func (s *service) InvalidateAllForUser(ctx context.Context, userID string) error {
	sessions, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	var firstErr error
	for i := range sessions {
		if err := s.deactivate(ctx, &sessions[i]); err != nil {
			slog.Warn("failed to invalidate session", "session_id", sessions[i].SessionID, "user_id", userID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *service) ListActiveForUser(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := s.now()
	active := make([]domain.Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Live(now) {
			active = append(active, sess)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].LastAccessedAt.After(active[j].LastAccessedAt)
	})
	return active, nil
}

func (s *service) deactivate(ctx context.Context, sess *domain.Session) error {
	if !sess.IsActive {
		return nil
	}
	err := s.store.Update(ctx, sess.SessionID, map[string]interface{}{"is_active": false})
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
