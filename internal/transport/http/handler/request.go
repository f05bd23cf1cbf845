package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/authkeeper/internal/application/auth"
	"github.com/authkeeper/internal/domain"
	"github.com/authkeeper/internal/pkg/validate"
)

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
	}
	return validate.Struct(v)
}

// authPayload is the data returned whenever a login completes.
type authPayload struct {
	User                  *domain.User    `json:"user"`
	Session               *domain.Session `json:"session"`
	AccessTokenExpiresAt  time.Time       `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time       `json:"refreshTokenExpiresAt"`
}

func toAuthPayload(res *auth.Result) authPayload {
	return authPayload{
		User:                  res.User,
		Session:               res.Session,
		AccessTokenExpiresAt:  res.Pair.AccessExpiresAt,
		RefreshTokenExpiresAt: res.Pair.RefreshExpiresAt,
	}
}
