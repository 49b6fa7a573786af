package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// resetClaim names the claim carrying the user id in a reset token.
const resetClaim = "reset_password"

// ResetTokenCodec issues and verifies stateless password-reset tokens.
// A token is an HS256-signed payload of {user id, expiry}; validity is
// determined entirely by signature and expiry, there is no server-side
// revocation list.
type ResetTokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewResetTokenCodec(secret string, ttl time.Duration) *ResetTokenCodec {
	return &ResetTokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Encode produces a signed token for the user, expiring after the codec's
// configured TTL.
func (c *ResetTokenCodec) Encode(userID uint) (string, error) {
	claims := jwt.MapClaims{
		resetClaim: float64(userID),
		"exp":      jwt.NewNumericDate(time.Now().Add(c.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry and returns the embedded user id.
// It fails closed: any verification problem (bad signature, malformed
// payload, expired, missing claim) yields ok=false, never an error for
// the caller to mishandle.
func (c *ResetTokenCodec) Decode(tokenString string) (uint, bool) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}

	id, ok := claims[resetClaim].(float64)
	if !ok || id <= 0 {
		return 0, false
	}
	return uint(id), true
}
