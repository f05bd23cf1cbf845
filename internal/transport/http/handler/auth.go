package handler

import (
	"net/http"

	"github.com/authkeeper/internal/application/auth"
	"github.com/authkeeper/internal/application/token"
	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/device"
	"github.com/authkeeper/internal/transport/http/respond"
)

// AuthHandler serves the credential endpoints under /api/auth.
type AuthHandler struct {
	svc     auth.Service
	cookies *token.CookieWriter
}

func NewAuthHandler(svc auth.Service, cookies *token.CookieWriter) *AuthHandler {
	return &AuthHandler{svc: svc, cookies: cookies}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	u, err := h.svc.Register(r.Context(), req, device.FromRequest(r))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]interface{}{
		"user":                      u,
		"requiresAccountActivation": true,
	}, "Account created. Enter the code sent to your email to activate it.")
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	out, err := h.svc.Login(r.Context(), req, device.FromRequest(r))
	if err != nil {
		respond.Error(w, err)
		return
	}

	switch out.Kind {
	case auth.OutcomeRequiresTwoFactor:
		respond.JSON(w, http.StatusOK, map[string]interface{}{
			"requiresTwoFactor": true,
			"email":             out.Email,
		}, "A verification code has been sent to your email.")
	case auth.OutcomeRequiresActivation:
		respond.JSON(w, http.StatusOK, map[string]interface{}{
			"requiresAccountActivation": true,
			"email":                     out.Email,
		}, "Your account is not activated. A new activation code has been sent to your email.")
	case auth.OutcomeAuthenticated:
		h.cookies.Set(w, out.Result.Pair)
		respond.JSON(w, http.StatusOK, toAuthPayload(out.Result), "Login successful")
	default:
		respond.Fail(w, http.StatusUnauthorized, out.Reason, respond.KindAuthentication)
	}
}

// VerifyOTP completes an OTP-gated login.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	res, err := h.svc.VerifyOTP(r.Context(), req, device.FromRequest(r))
	if err != nil {
		respond.Error(w, err)
		return
	}
	h.cookies.Set(w, res.Pair)
	respond.JSON(w, http.StatusOK, toAuthPayload(res), "Verification successful")
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.ResendOTPRequest
	if err := decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	if err := h.svc.ResendOTP(r.Context(), req, device.ClientIP(r)); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, nil, "A new code has been sent to your email.")
}
