// ABOUTME: Tests for passkey credential store methods
// ABOUTME: Covers credential uniqueness and compare-and-swap counter updates

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPasskeyUser(t *testing.T, s *SQLiteStore, email string) *User {
	t.Helper()
	user := &User{Email: email, Name: "Passkey Owner", IsActive: true}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func TestCreateAndGetPasskey(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	user := createPasskeyUser(t, s, "pk@example.com")

	cred := &PasskeyCredential{
		UserID:          user.ID,
		CredentialID:    []byte{0x01, 0x02, 0x03},
		PublicKey:       []byte("public-key-bytes"),
		AttestationType: "none",
		Counter:         7,
		Transports:      `["internal"]`,
		DeviceName:      "multi-device (synced)",
	}
	require.NoError(t, s.CreatePasskey(ctx, cred))

	got, err := s.GetPasskey(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got.CredentialID)
	assert.Equal(t, uint32(7), got.Counter)
	assert.Equal(t, "multi-device (synced)", got.DeviceName)

	byCred, err := s.GetPasskeyByCredentialID(ctx, []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, cred.ID, byCred.ID)
}

func TestCreatePasskey_DuplicateCredentialID(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	a := createPasskeyUser(t, s, "a-pk@example.com")
	b := createPasskeyUser(t, s, "b-pk@example.com")

	require.NoError(t, s.CreatePasskey(ctx, &PasskeyCredential{
		UserID: a.ID, CredentialID: []byte("shared"), PublicKey: []byte("k1"),
	}))

	// Credential IDs are unique across all users, not per user
	err := s.CreatePasskey(ctx, &PasskeyCredential{
		UserID: b.ID, CredentialID: []byte("shared"), PublicKey: []byte("k2"),
	})
	assert.ErrorIs(t, err, ErrDuplicateCredential)
}

func TestGetPasskeyByCredentialID_NotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	_, err := s.GetPasskeyByCredentialID(context.Background(), []byte("unknown"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePasskeyCounter_CAS(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	user := createPasskeyUser(t, s, "cas@example.com")
	cred := &PasskeyCredential{
		UserID: user.ID, CredentialID: []byte("cas-cred"), PublicKey: []byte("k"), Counter: 5,
	}
	require.NoError(t, s.CreatePasskey(ctx, cred))

	// Swap with the correct prior value succeeds
	require.NoError(t, s.UpdatePasskeyCounter(ctx, cred.ID, 5, 6))

	got, err := s.GetPasskey(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), got.Counter)

	// Swap against a stale prior value fails and mutates nothing
	err = s.UpdatePasskeyCounter(ctx, cred.ID, 5, 7)
	assert.ErrorIs(t, err, ErrCounterConflict)

	got, err = s.GetPasskey(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), got.Counter)
}

func TestUpdatePasskeyCounter_NotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	err := s.UpdatePasskeyCounter(context.Background(), "missing", 0, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDeletePasskeys(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	user := createPasskeyUser(t, s, "list-pk@example.com")

	list, err := s.ListPasskeysByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	c1 := &PasskeyCredential{UserID: user.ID, CredentialID: []byte("c1"), PublicKey: []byte("k1")}
	c2 := &PasskeyCredential{UserID: user.ID, CredentialID: []byte("c2"), PublicKey: []byte("k2")}
	require.NoError(t, s.CreatePasskey(ctx, c1))
	require.NoError(t, s.CreatePasskey(ctx, c2))

	list, err = s.ListPasskeysByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.DeletePasskey(ctx, c1.ID))
	assert.ErrorIs(t, s.DeletePasskey(ctx, c1.ID), ErrNotFound)

	list, err = s.ListPasskeysByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
