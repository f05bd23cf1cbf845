package http

import (
	"github.com/authkeeper/internal/application/auth"
	"github.com/authkeeper/internal/application/token"
	"github.com/authkeeper/internal/transport/http/handler"
	"github.com/authkeeper/internal/transport/http/middleware"
)

// Deps holds the services the router wires into handlers.
type Deps struct {
	Auth    auth.Service
	Tokens  middleware.AccessVerifier
	Cookies *token.CookieWriter
	OAuth   handler.OAuthProvider
}
