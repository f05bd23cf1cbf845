package domain

import (
	"strings"
	"time"
)

type User struct {
	UserID            string     `json:"id" dynamodbav:"user_id"`
	Email             string     `json:"email" dynamodbav:"email"`
	PasswordHash      string     `json:"-" dynamodbav:"password_hash,omitempty"`
	Name              string     `json:"name" dynamodbav:"name"`
	AvatarURL         string     `json:"avatar_url,omitempty" dynamodbav:"avatar_url,omitempty"`
	EmailVerified     *time.Time `json:"email_verified" dynamodbav:"email_verified,omitempty"`
	IsActive          bool       `json:"is_active" dynamodbav:"is_active"`
	Role              string     `json:"role" dynamodbav:"role"`
	TwoFactorEnabled  bool       `json:"two_factor_enabled" dynamodbav:"two_factor_enabled"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty" dynamodbav:"password_changed_at,omitempty"`
	CreatedAt         time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt         time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// HasPassword reports whether the user can authenticate with a password.
// OAuth-only users have no hash.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
