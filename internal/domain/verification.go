package domain

import "time"

// Intent scopes a one-time code. Codes never verify across intents.
type Intent string

const (
	IntentAccountActivation Intent = "account_activation_otp"
	IntentTwoFactor         Intent = "2fa_otp"
	IntentPasswordReset     Intent = "password_reset_otp"
	IntentEmailVerification Intent = "email_verification_otp"
)

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentAccountActivation, IntentTwoFactor, IntentPasswordReset, IntentEmailVerification:
		return true
	}
	return false
}

// RequiresUser reports whether issuing a code for this intent needs an existing account.
func (i Intent) RequiresUser() bool {
	return i != IntentEmailVerification
}

// VerificationToken stores one issued OTP. A code is valid for exactly one
// successful verification.
type VerificationToken struct {
	TokenID   string     `json:"id" dynamodbav:"token_id"`
	Email     string     `json:"email" dynamodbav:"email"`
	Token     string     `json:"-" dynamodbav:"token"`
	Type      Intent     `json:"type" dynamodbav:"type"`
	ExpiresAt time.Time  `json:"expires_at" dynamodbav:"expires_at,unixtime"`
	IsUsed    bool       `json:"is_used" dynamodbav:"is_used"`
	UsedAt    *time.Time `json:"used_at,omitempty" dynamodbav:"used_at,omitempty"`
	IPAddress string     `json:"ip_address" dynamodbav:"ip_address"`
	CreatedAt time.Time  `json:"created" dynamodbav:"created_at,unixtime"`
}
