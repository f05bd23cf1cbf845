package http

import (
	"context"
	"net/http"

	"github.com/authkeeper/internal/config"
	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/transport/http/handler"
	appmiddleware "github.com/authkeeper/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// background cleanup of the rate limiter.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Tokens)
	optionalAuth := appmiddleware.OptionalAuth(deps.Tokens)

	// 5 requests/second, burst of 10, applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	authH := handler.NewAuthHandler(deps.Auth, deps.Cookies)
	oauthH := handler.NewOAuthHandler(deps.Auth, deps.OAuth, deps.Cookies, cfg.AppURL, cfg.IsProduction())

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/health", handler.Health)

		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/register", authH.Register)
			r.Post("/login", authH.Login)
			r.Post("/otp", authH.VerifyOTP)
			r.Put("/otp", authH.ResendOTP)
			r.Post("/password", authH.RequestPasswordReset)
			r.Patch("/password", authH.ResetPassword)
		})
		r.Post("/session", authH.Refresh)
		r.With(optionalAuth).Delete("/session", authH.Logout)
		r.Get("/google", oauthH.Start)
		r.Get("/google/callback", oauthH.Callback)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/session", authH.Current)
			r.Put("/password", authH.ChangePassword)
			r.Put("/two-factor", authH.SetTwoFactor)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Delete("/admin/users/{id}/sessions", authH.RevokeUserSessions)
			})
		})
	})

	return r
}
