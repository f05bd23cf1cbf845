package handler

import (
	"errors"
	"net/http"

	"github.com/authkeeper/internal/application/auth"
	"github.com/authkeeper/internal/application/token"
	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/device"
	"github.com/authkeeper/internal/transport/http/middleware"
	"github.com/authkeeper/internal/transport/http/respond"
	"github.com/go-chi/chi/v5"
)

// Refresh rotates the refresh cookie into a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	rt := token.FromRequest(r, token.RefreshCookie)
	if rt == "" {
		respond.Fail(w, http.StatusUnauthorized, "refresh token missing", respond.KindAuthentication)
		return
	}
	res, err := h.svc.Refresh(r.Context(), rt, device.FromRequest(r))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.cookies.Clear(w)
		}
		respond.Error(w, err)
		return
	}
	h.cookies.Set(w, res.Pair)
	respond.JSON(w, http.StatusOK, toAuthPayload(res), "Token refreshed")
}

func (h *AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "authentication required", respond.KindAuthentication)
		return
	}
	cur, err := h.svc.Current(r.Context(), claims.UserID, token.FromRequest(r, token.RefreshCookie))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, cur, "")
}

// Logout handles ?all=true, ?sessionId=X and the default current-session mode.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := auth.LogoutRequest{
		RefreshToken: token.FromRequest(r, token.RefreshCookie),
		SessionID:    q.Get("sessionId"),
		All:          q.Get("all") == "true",
	}
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		req.CallerID = claims.UserID
	}

	clearCookies, err := h.svc.Logout(r.Context(), req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	if clearCookies {
		h.cookies.Clear(w)
	}
	msg := "Logged out"
	switch {
	case req.All:
		msg = "Logged out from all devices"
	case req.SessionID != "":
		msg = "Session revoked"
	}
	respond.JSON(w, http.StatusOK, nil, msg)
}

// RevokeUserSessions is the admin endpoint that signs a user out everywhere.
func (h *AuthHandler) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RevokeUserSessions(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, nil, "All sessions revoked")
}
