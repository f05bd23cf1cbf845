package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrMissingCredential is returned when a session is created without a user or refresh token.
	ErrMissingCredential = fmt.Errorf("missing credential: %w", ErrBadRequest)
)

// RateLimitError reports that an OTP for the same email and intent was issued
// too recently. TimeLeft is the remaining wait in whole seconds.
type RateLimitError struct {
	TimeLeft int
}

func (e *RateLimitError) Error() string {
	return "please wait " + e.Formatted() + " before requesting a new code"
}

// Formatted renders TimeLeft as "M minute(s) and S second(s)", or "S second(s)"
// when under a minute.
func (e *RateLimitError) Formatted() string {
	return FormatWait(e.TimeLeft)
}

// FormatWait renders a number of seconds for user-facing rate-limit messages.
func FormatWait(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	m, s := seconds/60, seconds%60
	if m > 0 {
		return fmt.Sprintf("%d minute(s) and %d second(s)", m, s)
	}
	return fmt.Sprintf("%d second(s)", s)
}
