package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/authkeeper/internal/domain"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// --- users ---

type memUsers struct {
	mu   sync.Mutex
	rows map[string]*domain.User
}

func newMemUsers() *memUsers { return &memUsers{rows: map[string]*domain.User{}} }

func (m *memUsers) Get(_ context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Email == u.Email {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
	}
	cp := *u
	m.rows[u.UserID] = &cp
	return nil
}

func (m *memUsers) Update(_ context.Context, userID string, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	for k, v := range updates {
		switch k {
		case fieldIsActive:
			u.IsActive = v.(bool)
		case fieldEmailVerified:
			t := v.(time.Time)
			u.EmailVerified = &t
		case fieldAvatarURL:
			u.AvatarURL = v.(string)
		case fieldPasswordHash:
			u.PasswordHash = v.(string)
		case fieldPasswordChangedAt:
			t := v.(time.Time)
			u.PasswordChangedAt = &t
		case fieldTwoFactorEnabled:
			u.TwoFactorEnabled = v.(bool)
		default:
			return fmt.Errorf("unexpected field %q", k)
		}
	}
	return nil
}

// --- accounts ---

type memAccounts struct {
	mu   sync.Mutex
	rows map[string]domain.Account
}

func newMemAccounts() *memAccounts { return &memAccounts{rows: map[string]domain.Account{}} }

func (m *memAccounts) Get(_ context.Context, provider, providerAccountID string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[provider+"#"+providerAccountID]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return &a, nil
}

func (m *memAccounts) ListByUser(_ context.Context, userID string) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Account
	for _, a := range m.rows {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAccounts) Put(_ context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := a.Provider + "#" + a.ProviderAccountID
	if _, ok := m.rows[k]; ok {
		return fmt.Errorf("account already linked: %w", domain.ErrConflict)
	}
	m.rows[k] = *a
	return nil
}

// --- sessions ---

type memSessions struct {
	mu   sync.Mutex
	rows map[string]*domain.Session
}

func newMemSessions() *memSessions { return &memSessions{rows: map[string]*domain.Session{}} }

func (m *memSessions) Put(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.rows[s.SessionID] = &cp
	return nil
}

func (m *memSessions) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.SessionToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
}

func (m *memSessions) ListByUser(_ context.Context, userID string) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Session
	for _, s := range m.rows {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessions) Update(_ context.Context, sessionID string, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	if v, ok := updates["is_active"].(bool); ok {
		s.IsActive = v
	}
	if v, ok := updates["last_accessed_at"].(time.Time); ok {
		s.LastAccessedAt = v
	}
	return nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// --- otp ---

type memVerifications struct {
	mu   sync.Mutex
	rows []*domain.VerificationToken
}

func (m *memVerifications) Put(_ context.Context, v *domain.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memVerifications) Consume(_ context.Context, email string, intent domain.Intent, code string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Email == email && r.Type == intent && r.Token == code && !r.IsUsed && r.ExpiresAt.After(now) {
			r.IsUsed = true
			r.UsedAt = &now
			return true, nil
		}
	}
	return false, nil
}

type memCooldowns struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func (m *memCooldowns) LastIssued(_ context.Context, email string, intent domain.Intent) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last[email+"#"+string(intent)], nil
}

func (m *memCooldowns) Reserve(_ context.Context, email string, intent domain.Intent, at time.Time, window time.Duration) (bool, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := email + "#" + string(intent)
	if prev, ok := m.last[k]; ok && prev.After(at.Add(-window)) {
		return false, prev, nil
	}
	m.last[k] = at
	return true, time.Time{}, nil
}

func (m *memCooldowns) Release(_ context.Context, email string, intent domain.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.last, email+"#"+string(intent))
	return nil
}

// inbox records every code sent, keyed by recipient.
type inbox struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (b *inbox) SendEmail(_ context.Context, to, subject, body string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent[to] = append(b.sent[to], subject+"\n"+body)
	return nil
}

func (b *inbox) count(to string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent[to])
}

// --- events ---

type recordedEvents struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (r *recordedEvents) Publish(_ context.Context, e domain.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
