// ABOUTME: Tests for password verification against stored bcrypt hashes
// ABOUTME: Checks the failure taxonomy for unknown, disabled, and wrong-password cases

package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kredsnet/medlemsportal/internal/store"
)

// newTestStore creates a SQLite store in a temp directory for auth tests.
func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestUser inserts an active user with the given password set.
func createTestUser(t *testing.T, s *store.SQLiteStore, email, password string) *store.User {
	t.Helper()
	hash := ""
	if password != "" {
		var err error
		hash, err = HashPassword(password)
		require.NoError(t, err)
	}
	u := &store.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		IsActive:     true,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestPasswordVerify(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "anna@example.com", "correct horse")
	v := NewPasswordVerifier(s)

	got, err := v.Verify(context.Background(), "anna@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestPasswordVerifyNormalizesEmail(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "anna@example.com", "correct horse")
	v := NewPasswordVerifier(s)

	got, err := v.Verify(context.Background(), "  Anna@Example.COM ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", got.Email)
}

func TestPasswordVerifyWrongPassword(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "anna@example.com", "correct horse")
	v := NewPasswordVerifier(s)

	_, err := v.Verify(context.Background(), "anna@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordVerifyUnknownEmail(t *testing.T) {
	s := newTestStore(t)
	v := NewPasswordVerifier(s)

	// Must be indistinguishable from a wrong password
	_, err := v.Verify(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordVerifyDisabledAccount(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "anna@example.com", "correct horse")
	u.IsActive = false
	require.NoError(t, s.UpdateUser(context.Background(), u))
	v := NewPasswordVerifier(s)

	// Disabled is reported even with the wrong password, the account is
	// looked up before the hash comparison
	_, err := v.Verify(context.Background(), "anna@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, err = v.Verify(context.Background(), "anna@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestPasswordVerifyPasskeyOnlyAccount(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "anna@example.com", "")
	v := NewPasswordVerifier(s)

	// No password set: any password attempt fails like a mismatch
	_, err := v.Verify(context.Background(), "anna@example.com", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
