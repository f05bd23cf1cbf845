package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/device"
)

var errSessionGone = fmt.Errorf("session expired or revoked, please log in again: %w", domain.ErrUnauthorized)

type LogoutRequest struct {
	RefreshToken string
	// CallerID comes from a verified access token and may be empty.
	CallerID  string
	SessionID string
	All       bool
}

// SessionView is a session as listed to its owner.
type SessionView struct {
	domain.Session
	Current bool `json:"current"`
}

type CurrentSession struct {
	User     *domain.User  `json:"user"`
	Sessions []SessionView `json:"sessions"`
}

// Refresh rotates the refresh token: the presented token's session is
// invalidated and a new one is created for the new pair.
func (s *service) Refresh(ctx context.Context, refreshToken string, fp device.Fingerprint) (*Result, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("missing refresh token: %w", domain.ErrUnauthorized)
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	old, err := s.sessions.GetByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if old == nil || old.UserID != claims.UserID {
		return nil, errSessionGone
	}

	u, err := s.users.Get(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errSessionGone
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("account inactive: %w", domain.ErrUnauthorized)
	}

	pair, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Invalidate(ctx, refreshToken); err != nil {
		slog.Warn("failed to invalidate rotated session", "session_id", old.SessionID, "err", err)
	}
	sess, err := s.sessions.Create(ctx, sessionParams(u.UserID, pair, fp))
	if err != nil {
		return nil, err
	}
	return &Result{Pair: pair, Session: sess, User: u}, nil
}

// Logout reports whether the caller's cookies should be cleared.
func (s *service) Logout(ctx context.Context, req LogoutRequest) (bool, error) {
	if !req.All && req.SessionID == "" {
		if req.RefreshToken == "" {
			return true, nil
		}
		if _, err := s.tokens.VerifyRefresh(req.RefreshToken); err != nil {
			return true, nil
		}
		if err := s.sessions.Invalidate(ctx, req.RefreshToken); err != nil {
			return false, err
		}
		return true, nil
	}

	callerID := req.CallerID
	if callerID == "" {
		claims, err := s.tokens.VerifyRefresh(req.RefreshToken)
		if err != nil {
			return false, fmt.Errorf("not logged in: %w", domain.ErrUnauthorized)
		}
		// A rotated or revoked refresh token no longer identifies anyone.
		live, err := s.sessions.GetByToken(ctx, req.RefreshToken)
		if err != nil {
			return false, err
		}
		if live == nil || live.UserID != claims.UserID {
			return false, errSessionGone
		}
		callerID = claims.UserID
	}

	if req.All {
		if err := s.sessions.InvalidateAllForUser(ctx, callerID); err != nil {
			return false, err
		}
		if u, err := s.users.Get(ctx, callerID); err == nil {
			s.publish(ctx, domain.EventLogoutAll, u, "", "")
		}
		return true, nil
	}

	target, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if target == nil || target.UserID != callerID {
		return false, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	if err := s.sessions.InvalidateByID(ctx, target.SessionID); err != nil {
		return false, err
	}
	return req.RefreshToken != "" && target.SessionToken == req.RefreshToken, nil
}

// Current returns the user with their active sessions, flagging and touching
// the one bound to refreshToken.
func (s *service) Current(ctx context.Context, userID, refreshToken string) (*CurrentSession, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("user not found: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	active, err := s.sessions.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]SessionView, 0, len(active))
	for _, sess := range active {
		current := refreshToken != "" && sess.SessionToken == refreshToken
		views = append(views, SessionView{Session: sess, Current: current})
	}
	if refreshToken != "" {
		if err := s.sessions.Touch(ctx, refreshToken); err != nil {
			slog.Warn("failed to touch session", "user_id", userID, "err", err)
		}
	}
	return &CurrentSession{User: u, Sessions: views}, nil
}

// RevokeUserSessions invalidates every session of the target user.
func (s *service) RevokeUserSessions(ctx context.Context, userID string) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.sessions.InvalidateAllForUser(ctx, userID); err != nil {
		return err
	}
	s.publish(ctx, domain.EventLogoutAll, u, "", "")
	return nil
}
