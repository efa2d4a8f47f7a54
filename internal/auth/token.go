// ABOUTME: Session token issuance and verification using HS256 signed JWTs
// ABOUTME: Tokens carry identity plus a role snapshot with a fixed validity window

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload embedded in a session token. The role snapshot is
// fixed at issuance and deliberately not re-checked against current
// assignments on each request; role changes take effect on next login.
type Claims struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens with a shared HS256 secret.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
}

// NewIssuer creates a session token issuer. Tokens expire lifetime after
// issuance and are never renewed by use.
func NewIssuer(secret []byte, lifetime time.Duration) *Issuer {
	return &Issuer{secret: secret, lifetime: lifetime}
}

// Issue produces a signed session token for the given identity and role snapshot.
func (i *Issuer) Issue(userID, email, name string, roles []string) (string, error) {
	if roles == nil {
		roles = []string{}
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Lifetime returns the fixed validity window of issued tokens.
func (i *Issuer) Lifetime() time.Duration {
	return i.lifetime
}

// Verify checks the token's signature and expiry and returns its claims.
// Any signature mismatch, malformed payload, or expired timestamp fails
// with ErrInvalidSession; callers treat that as "not authenticated".
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}

	return claims, nil
}

// IsSessionError reports whether err is a session verification failure.
func IsSessionError(err error) bool {
	return errors.Is(err, ErrInvalidSession)
}
