// ABOUTME: Password credential verification against stored bcrypt hashes
// ABOUTME: Unknown accounts and wrong passwords are externally indistinguishable

package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/kredsnet/medlemsportal/internal/store"
)

// dummyHash is compared against when no account (or no password) matches,
// so response timing does not reveal whether an email is registered.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// PasswordVerifier resolves an email/password pair to a user account.
type PasswordVerifier struct {
	users  store.UserStore
	logger *slog.Logger
}

// NewPasswordVerifier creates a password verifier backed by the given user store.
func NewPasswordVerifier(users store.UserStore) *PasswordVerifier {
	return &PasswordVerifier{
		users:  users,
		logger: slog.Default().With("component", "auth"),
	}
}

// Verify resolves the credentials to a user or fails. The failure order is
// deliberate: unknown email fails exactly like a wrong password
// (ErrInvalidCredentials), while a disabled account is only reported after
// the email matched an account (ErrAccountDisabled). Success has no side
// effects; session issuance and auditing belong to the caller.
func (v *PasswordVerifier) Verify(ctx context.Context, email, password string) (*store.User, error) {
	user, err := v.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a bcrypt comparison to keep timing constant
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// HashPassword produces a bcrypt hash for storage at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
