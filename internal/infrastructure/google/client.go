package google

import (
	"context"
	"fmt"

	"github.com/authkeeper/internal/domain"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// Client runs the Google authorization-code flow and validates the returned ID token.
type Client struct {
	conf     *oauth2.Config
	validate validateFunc
}

func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleoauth.Endpoint,
		},
		validate: idtoken.Validate,
	}
}

// Configured reports whether client credentials are present.
func (c *Client) Configured() bool {
	return c.conf.ClientID != "" && c.conf.ClientSecret != ""
}

// AuthCodeURL returns the consent page URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for the caller's verified profile.
// Failures wrap domain.ErrUnauthorized.
func (c *Client) Exchange(ctx context.Context, code string) (*domain.OAuthProfile, error) {
	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange: %v: %w", err, domain.ErrUnauthorized)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, fmt.Errorf("google response has no id_token: %w", domain.ErrUnauthorized)
	}
	return c.VerifyIDToken(ctx, raw)
}

// VerifyIDToken validates a Google ID token against the client ID and returns the profile.
func (c *Client) VerifyIDToken(ctx context.Context, token string) (*domain.OAuthProfile, error) {
	p, err := c.validate(ctx, token, c.conf.ClientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w", domain.ErrUnauthorized)
	}
	return profileFromPayload(p), nil
}

func profileFromPayload(p *idtoken.Payload) *domain.OAuthProfile {
	email, _ := p.Claims["email"].(string)
	emailVerified, _ := p.Claims["email_verified"].(bool)
	name, _ := p.Claims["name"].(string)
	picture, _ := p.Claims["picture"].(string)
	return &domain.OAuthProfile{
		Provider:       domain.ProviderGoogle,
		ProviderUserID: p.Subject,
		Email:          email,
		EmailVerified:  emailVerified,
		Name:           name,
		AvatarURL:      picture,
	}
}
