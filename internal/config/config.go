package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string   `env:"APP_PORT" envDefault:"3000"`
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	AppURL         string   `env:"APP_URL"` // prefix for OAuth redirects; empty keeps them relative
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables

	JWT  JWT
	OTP  OTP
	Mail Mail

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:3000/api/auth/google/callback"`

	SNSRegion             string `env:"SNS_REGION" envDefault:"us-east-1"`
	SNSAuthEventsTopicARN string `env:"SNS_AUTH_EVENTS_TOPIC_ARN"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users              string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	Accounts           string `env:"DYNAMO_TABLE_ACCOUNTS" envDefault:"accounts"`
	Sessions           string `env:"DYNAMO_TABLE_SESSIONS" envDefault:"sessions"`
	VerificationTokens string `env:"DYNAMO_TABLE_VERIFICATION_TOKENS" envDefault:"verification_tokens"`
	OTPCooldowns       string `env:"DYNAMO_TABLE_OTP_COOLDOWNS" envDefault:"otp_cooldowns"`
}

// JWT configures the two token classes. Access and refresh secrets must differ.
type JWT struct {
	AccessSecret  string        `env:"JWT_ACCESS_SECRET,required,notEmpty"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET,required,notEmpty"`
	Issuer        string        `env:"JWT_ISSUER" envDefault:"authkeeper"`
	AccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	RefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`
	// RefreshCookieMaxAge outlives RefreshExpiry so the cookie never truncates the token.
	RefreshCookieMaxAge time.Duration `env:"REFRESH_COOKIE_MAX_AGE" envDefault:"720h"`
}

type OTP struct {
	Expiry   time.Duration `env:"OTP_EXPIRY" envDefault:"10m"`
	Cooldown time.Duration `env:"OTP_COOLDOWN" envDefault:"2m"`
}

// Mail selects the outbound mail driver: "smtp" or "postmark".
type Mail struct {
	Driver               string `env:"MAIL_DRIVER" envDefault:"smtp"`
	From                 string `env:"MAIL_FROM" envDefault:"noreply@example.com"`
	SMTPHost             string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort             string `env:"SMTP_PORT" envDefault:"1025"`
	SMTPUsername         string `env:"SMTP_USERNAME"`
	SMTPPassword         string `env:"SMTP_PASSWORD"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
}

// IsProduction reports whether cookies must carry the Secure attribute.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JWT.AccessSecret == cfg.JWT.RefreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	switch cfg.Mail.Driver {
	case "smtp", "postmark":
	default:
		return nil, fmt.Errorf("unknown MAIL_DRIVER %q", cfg.Mail.Driver)
	}
	return &cfg, nil
}
