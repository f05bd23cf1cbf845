package domain

import "time"

const (
	EventLogin           = "auth.login"
	EventLogoutAll       = "auth.logout_all"
	EventPasswordChanged = "auth.password_changed"
	EventAccountLinked   = "auth.account_linked"
)

// AuthEvent is a security-relevant occurrence published for downstream consumers.
type AuthEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	DeviceInfo string    `json:"device,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
