// Package auth defines the credential-verification boundary. Token issuance
// and password flows live in an external auth service; this core only needs
// to resolve a presented token to a user identity.
package auth

import (
	"strconv"

	"github.com/pkg/errors"
)

// ErrInvalidToken is returned when a token cannot be resolved to a user.
var ErrInvalidToken = errors.New("invalid auth token")

// Verifier resolves an auth token to the user it identifies.
type Verifier interface {
	VerifyToken(token string) (int64, error)
}

// StaticVerifier accepts tokens that are numeric user ids. It stands in for
// the external auth service in development and tests.
type StaticVerifier struct{}

// VerifyToken parses the token as a user id.
func (StaticVerifier) VerifyToken(token string) (int64, error) {
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
