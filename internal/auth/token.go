package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes is the entropy of a bearer token before encoding.
const tokenBytes = 24

// NewToken mints an opaque bearer token: raw random bytes rendered as
// base64. Deliberately not a JWT; the token carries no claims and is
// resolved by exact match against the user table.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
