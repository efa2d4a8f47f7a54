// ABOUTME: Tests for WebAuthn passkey ceremonies up to assertion validation
// ABOUTME: Crypto validation itself is the library's; these cover our flow logic

package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kredsnet/medlemsportal/internal/challenge"
	"github.com/kredsnet/medlemsportal/internal/store"
)

func newTestPasskeyVerifier(t *testing.T, s *store.SQLiteStore, challenges *challenge.Store) *PasskeyVerifier {
	t.Helper()
	v, err := NewPasskeyVerifier(PasskeyConfig{
		RPID:        "portal.example.com",
		Origin:      "https://portal.example.com",
		DisplayName: "Medlemsportal",
	}, s, s, challenges)
	require.NoError(t, err)
	return v
}

func TestBeginRegistration(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "anna@example.com", "pw")
	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)
	defer challenges.Close()
	v := newTestPasskeyVerifier(t, s, challenges)

	options, err := v.BeginRegistration(context.Background(), u)
	require.NoError(t, err)
	require.NotNil(t, options)
	assert.NotEmpty(t, options.Response.Challenge)
	assert.Equal(t, "portal.example.com", options.Response.RelyingParty.ID)
	assert.Empty(t, options.Response.CredentialExcludeList)

	// The pending ceremony is parked in the challenge store
	assert.Equal(t, 1, challenges.Len())
}

func TestBeginRegistrationExcludesExistingCredentials(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "anna@example.com", "pw")
	require.NoError(t, s.CreatePasskey(context.Background(), &store.PasskeyCredential{
		UserID:       u.ID,
		CredentialID: []byte("cred-1"),
		PublicKey:    []byte("pk"),
		Counter:      3,
	}))
	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)
	defer challenges.Close()
	v := newTestPasskeyVerifier(t, s, challenges)

	options, err := v.BeginRegistration(context.Background(), u)
	require.NoError(t, err)
	require.Len(t, options.Response.CredentialExcludeList, 1)
	assert.Equal(t, []byte("cred-1"), []byte(options.Response.CredentialExcludeList[0].CredentialID))
}

func TestFinishRegistrationWithoutChallenge(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "anna@example.com", "pw")
	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)
	defer challenges.Close()
	v := newTestPasskeyVerifier(t, s, challenges)

	// No BeginRegistration, so the challenge is absent (same as expired)
	_, err := v.FinishRegistration(context.Background(), u, strings.NewReader("{}"), "")
	assert.ErrorIs(t, err, ErrChallengeExpired)
}

func TestBeginLogin(t *testing.T) {
	s := newTestStore(t)
	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)
	defer challenges.Close()
	v := newTestPasskeyVerifier(t, s, challenges)

	options, err := v.BeginLogin(context.Background())
	require.NoError(t, err)
	require.NotNil(t, options)
	assert.NotEmpty(t, options.Response.Challenge)
	assert.Equal(t, 1, challenges.Len())

	// The session is keyed by its own challenge so finish can find it
	session, ok := challenges.Take(loginChallengePrefix + options.Response.Challenge.String())
	require.True(t, ok)
	assert.Equal(t, options.Response.Challenge.String(), session.Challenge)
}

func TestBeginLoginAtCapacity(t *testing.T) {
	s := newTestStore(t)
	challenges := challenge.New(time.Hour, 1)
	defer challenges.Close()
	require.NoError(t, challenges.Put("occupied", &webauthn.SessionData{Challenge: "x"}))
	v := newTestPasskeyVerifier(t, s, challenges)

	_, err := v.BeginLogin(context.Background())
	assert.ErrorIs(t, err, challenge.ErrAtCapacity)
}

// assertionBody builds a structurally valid assertion response echoing the
// given challenge, with an unverifiable signature.
func assertionBody(t *testing.T, challengeValue string, rawID []byte) *bytes.Reader {
	t.Helper()
	b64 := base64.RawURLEncoding.EncodeToString
	clientData, err := json.Marshal(map[string]string{
		"type":      "webauthn.get",
		"challenge": challengeValue,
		"origin":    "https://portal.example.com",
	})
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"id":    b64(rawID),
		"rawId": b64(rawID),
		"type":  "public-key",
		"response": map[string]string{
			"clientDataJSON":    b64(clientData),
			"authenticatorData": b64(make([]byte, 37)),
			"signature":         b64([]byte("sig")),
		},
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestFinishLoginUnknownChallenge(t *testing.T) {
	s := newTestStore(t)
	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)
	defer challenges.Close()
	v := newTestPasskeyVerifier(t, s, challenges)

	_, err := v.FinishLogin(context.Background(), assertionBody(t, "never-issued", []byte("cred-1")))
	assert.ErrorIs(t, err, ErrChallengeExpired)
}

func TestFinishLoginConsumesChallenge(t *testing.T) {
	s := newTestStore(t)
	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)
	defer challenges.Close()
	v := newTestPasskeyVerifier(t, s, challenges)

	const chal = "test-challenge"
	require.NoError(t, challenges.Put(loginChallengePrefix+chal, &webauthn.SessionData{Challenge: chal}))

	// Unknown credential, but the challenge is consumed either way
	_, err := v.FinishLogin(context.Background(), assertionBody(t, chal, []byte("no-such-cred")))
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 0, challenges.Len())

	// Replaying the same assertion now fails on the missing challenge
	_, err = v.FinishLogin(context.Background(), assertionBody(t, chal, []byte("no-such-cred")))
	assert.ErrorIs(t, err, ErrChallengeExpired)
}

func TestFinishLoginDisabledOwner(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "anna@example.com", "pw")
	require.NoError(t, s.CreatePasskey(context.Background(), &store.PasskeyCredential{
		UserID:       u.ID,
		CredentialID: []byte("cred-1"),
		PublicKey:    []byte("pk"),
	}))
	u.IsActive = false
	require.NoError(t, s.UpdateUser(context.Background(), u))

	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)
	defer challenges.Close()
	v := newTestPasskeyVerifier(t, s, challenges)

	const chal = "test-challenge"
	require.NoError(t, challenges.Put(loginChallengePrefix+chal, &webauthn.SessionData{Challenge: chal}))

	_, err := v.FinishLogin(context.Background(), assertionBody(t, chal, []byte("cred-1")))
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestFinishLoginGarbageBody(t *testing.T) {
	s := newTestStore(t)
	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)
	defer challenges.Close()
	v := newTestPasskeyVerifier(t, s, challenges)

	_, err := v.FinishLogin(context.Background(), strings.NewReader("not json"))
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestFinishLoginInvalidSignature(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "anna@example.com", "pw")
	require.NoError(t, s.CreatePasskey(context.Background(), &store.PasskeyCredential{
		UserID:       u.ID,
		CredentialID: []byte("cred-1"),
		PublicKey:    []byte("pk"),
		Counter:      7,
	}))

	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)
	defer challenges.Close()
	v := newTestPasskeyVerifier(t, s, challenges)

	const chal = "test-challenge"
	require.NoError(t, challenges.Put(loginChallengePrefix+chal, &webauthn.SessionData{Challenge: chal}))

	_, err := v.FinishLogin(context.Background(), assertionBody(t, chal, []byte("cred-1")))
	assert.ErrorIs(t, err, ErrVerificationFailed)

	// A failed assertion never advances the stored counter
	stored, err := s.GetPasskeyByCredentialID(context.Background(), []byte("cred-1"))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), stored.Counter)
}

func TestCommitCounterCloneWarning(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "anna@example.com", "pw")
	pk := &store.PasskeyCredential{
		UserID:       u.ID,
		CredentialID: []byte("cred-1"),
		PublicKey:    []byte("pk"),
		Counter:      7,
	}
	require.NoError(t, s.CreatePasskey(context.Background(), pk))

	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)
	defer challenges.Close()
	v := newTestPasskeyVerifier(t, s, challenges)

	// Validation flags a non-advancing counter instead of erroring; the
	// login must still fail and the stored counter must stay put
	cloned := &webauthn.Credential{}
	cloned.Authenticator.CloneWarning = true
	cloned.Authenticator.SignCount = 3

	err := v.commitCounter(context.Background(), pk, cloned)
	assert.ErrorIs(t, err, ErrVerificationFailed)

	stored, err := s.GetPasskeyByCredentialID(context.Background(), []byte("cred-1"))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), stored.Counter)
}

func TestCommitCounterAdvances(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "anna@example.com", "pw")
	pk := &store.PasskeyCredential{
		UserID:       u.ID,
		CredentialID: []byte("cred-1"),
		PublicKey:    []byte("pk"),
		Counter:      7,
	}
	require.NoError(t, s.CreatePasskey(context.Background(), pk))

	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)
	defer challenges.Close()
	v := newTestPasskeyVerifier(t, s, challenges)

	clean := &webauthn.Credential{}
	clean.Authenticator.SignCount = 8

	require.NoError(t, v.commitCounter(context.Background(), pk, clean))

	stored, err := s.GetPasskeyByCredentialID(context.Background(), []byte("cred-1"))
	require.NoError(t, err)
	assert.Equal(t, uint32(8), stored.Counter)
}

func TestDefaultDeviceName(t *testing.T) {
	synced := &webauthn.Credential{}
	synced.Flags.BackupEligible = true
	synced.Flags.BackupState = true
	assert.Equal(t, "Synced passkey", defaultDeviceName(synced))

	eligible := &webauthn.Credential{}
	eligible.Flags.BackupEligible = true
	assert.Equal(t, "Passkey", defaultDeviceName(eligible))

	bound := &webauthn.Credential{}
	assert.Equal(t, "Security key", defaultDeviceName(bound))
}
