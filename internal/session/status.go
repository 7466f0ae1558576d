package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStatus represents the status of a stored access token
type TokenStatus int

const (
	TokenMissing TokenStatus = iota
	TokenInvalid             // not a JWT - the API may still accept it
	TokenExpired
	TokenValid
)

var tokenStatusNames = []string{"TokenMissing", "TokenInvalid", "TokenExpired", "TokenValid"}

func (t TokenStatus) String() string {
	if t < 0 || int(t) >= len(tokenStatusNames) {
		return fmt.Sprintf("TokenStatus(%d)", int(t))
	}
	return tokenStatusNames[t]
}

// CheckTokenStatus inspects the token without verifying its signature (the API does that).
// Tokens without an exp claim are treated as valid.
func CheckTokenStatus(token string, now time.Time) TokenStatus {
	if token == "" {
		return TokenMissing
	}

	expiresAt, ok, err := TokenExpiry(token)
	if err != nil {
		return TokenInvalid
	}
	if ok && !now.Before(expiresAt) {
		return TokenExpired
	}
	return TokenValid
}

// TokenExpiry returns the exp claim of a JWT. ok is false when the token has no exp claim.
func TokenExpiry(token string) (expiresAt time.Time, ok bool, err error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := &jwt.RegisteredClaims{}

	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("parsing token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}
	return claims.ExpiresAt.Time, true, nil
}
