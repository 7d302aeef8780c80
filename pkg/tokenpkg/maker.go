// Package tokenpkg provides access token creation and verification.
package tokenpkg

import (
	"fmt"
	"time"
)

// Maker is an interface for managing tokens.
type Maker interface {
	// CreateToken creates a new token for a specific user and duration.
	CreateToken(userID string, duration time.Duration) (string, *Payload, error)
	// VerifyToken checks if the token is valid or not.
	VerifyToken(token string) (*Payload, error)
}

// Token maker kinds accepted by New.
const (
	KindPaseto = "paseto"
	KindJWT    = "jwt"
)

// New returns the Maker of the given kind. Empty kind means PASETO.
func New(kind, symmetricKey string) (Maker, error) {
	switch kind {
	case "", KindPaseto:
		return NewPasetoMaker(symmetricKey)
	case KindJWT:
		return NewJWTMaker(symmetricKey)
	}

	return nil, fmt.Errorf("unknown token maker %q", kind)
}
