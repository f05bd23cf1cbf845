package domain

import "time"

const ProviderGoogle = "google"

// Account links a third-party identity to exactly one User.
// PK: provider, SK: provider_account_id.
type Account struct {
	Provider          string    `json:"provider" dynamodbav:"provider"`
	ProviderAccountID string    `json:"provider_account_id" dynamodbav:"provider_account_id"`
	UserID            string    `json:"user_id" dynamodbav:"user_id"`
	CreatedAt         time.Time `json:"created" dynamodbav:"created_at"`
}

// OAuthProfile is the normalized identity returned by a provider after code exchange.
type OAuthProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
}
