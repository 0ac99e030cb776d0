package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// NewOpaqueToken returns an unguessable token for refresh tokens, magic
// links, verification tokens and password-reset tokens. Opaque tokens are
// not signed; they are only ever validated by a store lookup, which makes
// them revocable by deletion.
func NewOpaqueToken() string {
	return uuid.NewString()
}

// NewOTP returns a numeric one-time code of the given length drawn from a
// cryptographically secure source.
func NewOTP(length int) (string, error) {
	const digits = "0123456789"
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}
