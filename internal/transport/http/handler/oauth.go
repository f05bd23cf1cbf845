package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/authkeeper/internal/application/auth"
	"github.com/authkeeper/internal/application/token"
	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/device"
	randtoken "github.com/authkeeper/internal/pkg/token"
)

const (
	stateCookie    = "oauth_state"
	returnCookie   = "oauth_return"
	oauthCookieTTL = 10 * time.Minute
)

// OAuthProvider runs an authorization-code flow against an identity provider.
type OAuthProvider interface {
	Configured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.OAuthProfile, error)
}

// OAuthHandler serves the Google start and callback endpoints.
type OAuthHandler struct {
	svc      auth.Service
	provider OAuthProvider
	cookies  *token.CookieWriter
	appURL   string
	secure   bool
}

func NewOAuthHandler(svc auth.Service, provider OAuthProvider, cookies *token.CookieWriter, appURL string, secure bool) *OAuthHandler {
	return &OAuthHandler{
		svc:      svc,
		provider: provider,
		cookies:  cookies,
		appURL:   strings.TrimSuffix(appURL, "/"),
		secure:   secure,
	}
}

// Start stores the state and return path in short-lived cookies and
// redirects to the provider's consent page.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	returnTo := sanitizeReturnTo(r.URL.Query().Get("returnTo"))
	if !h.provider.Configured() {
		h.errorRedirect(w, r, "provider_unavailable")
		return
	}
	state, err := randtoken.NewState()
	if err != nil {
		slog.Error("oauth start: state generation failed", "err", err)
		h.errorRedirect(w, r, "state_failed")
		return
	}
	http.SetCookie(w, h.flowCookie(stateCookie, state, oauthCookieTTL))
	http.SetCookie(w, h.flowCookie(returnCookie, url.QueryEscape(returnTo), oauthCookieTTL))
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expected := token.FromRequest(r, stateCookie)
	returnTo := "/"
	if raw, err := url.QueryUnescape(token.FromRequest(r, returnCookie)); err == nil {
		returnTo = sanitizeReturnTo(raw)
	}
	http.SetCookie(w, h.flowCookie(stateCookie, "", -1))
	http.SetCookie(w, h.flowCookie(returnCookie, "", -1))

	if q.Get("error") != "" {
		h.errorRedirect(w, r, "access_denied")
		return
	}
	state := q.Get("state")
	if state == "" || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		h.errorRedirect(w, r, "state_invalid")
		return
	}
	code := q.Get("code")
	if code == "" {
		h.errorRedirect(w, r, "missing_code")
		return
	}

	profile, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		slog.Warn("oauth callback: exchange failed", "err", err)
		h.errorRedirect(w, r, "token_exchange_failed")
		return
	}

	res, err := h.svc.OAuthLogin(r.Context(), *profile, device.FromRequest(r))
	if err != nil {
		slog.Warn("oauth callback: login failed", "email", profile.Email, "err", err)
		h.errorRedirect(w, r, oauthErrorCode(err))
		return
	}
	h.cookies.Set(w, res.Pair)
	http.Redirect(w, r, h.appURL+withQuery(returnTo, "oauth_success", "true"), http.StatusFound)
}

func oauthErrorCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, auth.ErrEmailNotVerified):
		return "email_not_verified"
	default:
		return "oauth_failed"
	}
}

func (h *OAuthHandler) errorRedirect(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.appURL+withQuery("/", "error", code), http.StatusFound)
}

func (h *OAuthHandler) flowCookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.MaxAge = -1
	}
	return c
}

// sanitizeReturnTo keeps only same-origin paths. Absolute and
// protocol-relative URLs collapse to "/".
func sanitizeReturnTo(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return "/"
	}
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	out := u.EscapedPath()
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

func withQuery(path, key, value string) string {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
