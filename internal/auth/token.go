package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token fails signature or expiry checks.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrNoSession is returned when a token is checked while nobody is signed in.
	ErrNoSession = errors.New("auth: no active session")

	// ErrStaleToken is returned for a valid token that is not the current
	// session token, e.g. one issued before an account switch.
	ErrStaleToken = errors.New("auth: token does not belong to the current session")
)

// Claims are the session token claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// issueToken signs an HS256 token for userID valid for ttl. Each token gets a
// unique ID so that re-issuing for the same user yields a new token.
func issueToken(userID string, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// parseToken validates tokenString and returns the user ID it carries.
func parseToken(tokenString string, secret []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}
