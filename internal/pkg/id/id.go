package id

import "github.com/oklog/ulid/v2"

// New generates a ULID string. Used for user, session and verification token
// identifiers and for the jti claim, so two tokens minted in the same second
// never collide.
func New() string {
	return ulid.Make().String()
}
