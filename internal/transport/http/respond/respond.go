// Package respond writes the JSON envelope shared by every endpoint.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/authkeeper/internal/domain"
)

// Error kinds reported in the envelope's error field.
const (
	KindValidation     = "ValidationError"
	KindAuthentication = "AuthenticationError"
	KindForbidden      = "ForbiddenError"
	KindNotFound       = "NotFoundError"
	KindConflict       = "ConflictError"
	KindRateLimit      = "RateLimitError"
)

type Meta struct {
	Timestamp         time.Time `json:"timestamp"`
	RateLimited       bool      `json:"rateLimited,omitempty"`
	TimeLeft          int       `json:"timeLeft,omitempty"`
	TimeLeftFormatted string    `json:"timeLeftFormatted,omitempty"`
}

// Envelope wraps every JSON response body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message *string     `json:"message"`
	Error   *string     `json:"error"`
	Meta    Meta        `json:"meta"`
}

var now = func() time.Time { return time.Now().UTC() }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func write(w http.ResponseWriter, status int, env Envelope) {
	env.Meta.Timestamp = now()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// JSON writes a successful envelope.
func JSON(w http.ResponseWriter, status int, data interface{}, message string) {
	write(w, status, Envelope{Success: true, Data: data, Message: optional(message)})
}

// Fail writes an error envelope with an explicit status.
func Fail(w http.ResponseWriter, status int, message, kind string) {
	write(w, status, Envelope{Message: optional(message), Error: optional(kind)})
}

// RateLimited writes a 429 envelope carrying the remaining wait.
func RateLimited(w http.ResponseWriter, rl *domain.RateLimitError) {
	write(w, http.StatusTooManyRequests, Envelope{
		Message: optional(rl.Error()),
		Error:   optional(KindRateLimit),
		Meta: Meta{
			RateLimited:       true,
			TimeLeft:          rl.TimeLeft,
			TimeLeftFormatted: rl.Formatted(),
		},
	})
}

// Error maps a service error onto a status code and envelope. Unmapped errors
// become 500 with a generic message and the original text in the error field.
func Error(w http.ResponseWriter, err error) {
	var rl *domain.RateLimitError
	switch {
	case errors.As(err, &rl):
		RateLimited(w, rl)
	case errors.Is(err, domain.ErrBadRequest):
		Fail(w, http.StatusBadRequest, publicMessage(err, domain.ErrBadRequest), KindValidation)
	case errors.Is(err, domain.ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, publicMessage(err, domain.ErrUnauthorized), KindAuthentication)
	case errors.Is(err, domain.ErrForbidden):
		Fail(w, http.StatusForbidden, publicMessage(err, domain.ErrForbidden), KindForbidden)
	case errors.Is(err, domain.ErrNotFound):
		Fail(w, http.StatusNotFound, publicMessage(err, domain.ErrNotFound), KindNotFound)
	case errors.Is(err, domain.ErrConflict):
		Fail(w, http.StatusConflict, publicMessage(err, domain.ErrConflict), KindConflict)
	default:
		slog.Error("unhandled error", "err", err)
		write(w, http.StatusInternalServerError, Envelope{
			Message: optional("Internal server error"),
			Error:   optional(err.Error()),
		})
	}
}

// publicMessage strips the trailing sentinel text added by %w wrapping.
func publicMessage(err, sentinel error) string {
	return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
}
