package handler

import (
	"net/http"

	"github.com/authkeeper/internal/application/auth"
	"github.com/authkeeper/internal/pkg/device"
	"github.com/authkeeper/internal/transport/http/middleware"
	"github.com/authkeeper/internal/transport/http/respond"
)

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "authentication required", respond.KindAuthentication)
		return
	}
	var req auth.ChangePasswordRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), claims.UserID, req); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, nil, "Password updated")
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req auth.PasswordResetRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req, device.ClientIP(r)); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, nil, "A password reset code has been sent to your email.")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetPasswordRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, nil, "Password has been reset. You can now log in.")
}

func (h *AuthHandler) SetTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "authentication required", respond.KindAuthentication)
		return
	}
	var req auth.TwoFactorRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	u, err := h.svc.SetTwoFactor(r.Context(), claims.UserID, req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	msg := "Two-factor authentication disabled"
	if u.TwoFactorEnabled {
		msg = "Two-factor authentication enabled"
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"user": u}, msg)
}
