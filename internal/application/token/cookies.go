package token

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// CookieWriter encodes token pairs into response cookies.
type CookieWriter struct {
	accessMaxAge  time.Duration
	refreshMaxAge time.Duration
	secure        bool
}

// NewCookieWriter builds a writer. refreshMaxAge is the cookie storage ceiling
// and may exceed the refresh token's own expiry.
func NewCookieWriter(accessMaxAge, refreshMaxAge time.Duration, secure bool) *CookieWriter {
	return &CookieWriter{accessMaxAge: accessMaxAge, refreshMaxAge: refreshMaxAge, secure: secure}
}

// Set writes both token cookies.
func (c *CookieWriter) Set(w http.ResponseWriter, p *Pair) {
	http.SetCookie(w, c.cookie(AccessCookie, p.AccessToken, c.accessMaxAge))
	http.SetCookie(w, c.cookie(RefreshCookie, p.RefreshToken, c.refreshMaxAge))
}

// Clear expires both token cookies.
func (c *CookieWriter) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}

func (c *CookieWriter) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest returns the value of the named cookie, or "" when absent.
func FromRequest(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
