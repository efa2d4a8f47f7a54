// ABOUTME: Tests for JWT session issuance and verification
// ABOUTME: Covers roundtrip claims, tampering, expiry, and wrong-secret cases

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer([]byte(testSecret), time.Hour)

	token, err := issuer.Issue("user-1", "anna@example.com", "Anna", []string{"member", "board"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "anna@example.com", claims.Email)
	assert.Equal(t, "Anna", claims.Name)
	assert.Equal(t, []string{"member", "board"}, claims.Roles)
}

func TestIssueNilRoles(t *testing.T) {
	issuer := NewIssuer([]byte(testSecret), time.Hour)

	token, err := issuer.Issue("user-1", "anna@example.com", "Anna", nil)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.NotNil(t, claims.Roles)
	assert.Empty(t, claims.Roles)
}

func TestVerifyTamperedToken(t *testing.T) {
	issuer := NewIssuer([]byte(testSecret), time.Hour)

	token, err := issuer.Issue("user-1", "anna@example.com", "Anna", nil)
	require.NoError(t, err)

	_, err = issuer.Verify(token + "x")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewIssuer([]byte(testSecret), time.Hour)
	other := NewIssuer([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)

	token, err := issuer.Issue("user-1", "anna@example.com", "Anna", nil)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifyExpiredToken(t *testing.T) {
	issuer := NewIssuer([]byte(testSecret), -time.Minute)

	token, err := issuer.Issue("user-1", "anna@example.com", "Anna", nil)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifyGarbage(t *testing.T) {
	issuer := NewIssuer([]byte(testSecret), time.Hour)

	_, err := issuer.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestIsSessionError(t *testing.T) {
	issuer := NewIssuer([]byte(testSecret), time.Hour)
	_, err := issuer.Verify("not-a-jwt")
	assert.True(t, IsSessionError(err))
	assert.False(t, IsSessionError(nil))
	assert.False(t, IsSessionError(ErrForbidden))
}
