// ABOUTME: WebAuthn passkey registration and discoverable login ceremonies
// ABOUTME: Pending challenges live in an in-memory store and are single-use

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/kredsnet/medlemsportal/internal/challenge"
	"github.com/kredsnet/medlemsportal/internal/store"
)

// Challenge key prefixes keep registration and login ceremonies from
// colliding in the shared store.
const (
	regChallengePrefix   = "reg:"
	loginChallengePrefix = "login:"
)

// PasskeyConfig holds the relying party identity presented to authenticators.
type PasskeyConfig struct {
	RPID        string
	Origin      string
	DisplayName string
}

// PasskeyVerifier runs WebAuthn ceremonies against stored credentials.
type PasskeyVerifier struct {
	wa         *webauthn.WebAuthn
	users      store.UserStore
	passkeys   store.PasskeyStore
	challenges *challenge.Store
	logger     *slog.Logger
}

// NewPasskeyVerifier builds a verifier for the given relying party.
func NewPasskeyVerifier(cfg PasskeyConfig, users store.UserStore, passkeys store.PasskeyStore, challenges *challenge.Store) (*PasskeyVerifier, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.DisplayName,
		RPID:          cfg.RPID,
		RPOrigins:     []string{cfg.Origin},
	})
	if err != nil {
		return nil, fmt.Errorf("configuring webauthn: %w", err)
	}

	return &PasskeyVerifier{
		wa:         wa,
		users:      users,
		passkeys:   passkeys,
		challenges: challenges,
		logger:     slog.Default().With("component", "auth"),
	}, nil
}

// webAuthnUser adapts a portal user and their credentials to webauthn.User.
type webAuthnUser struct {
	user  *store.User
	creds []*store.PasskeyCredential
}

func (u *webAuthnUser) WebAuthnID() []byte {
	return []byte(u.user.ID)
}

func (u *webAuthnUser) WebAuthnName() string {
	return u.user.Email
}

func (u *webAuthnUser) WebAuthnDisplayName() string {
	if u.user.Name != "" {
		return u.user.Name
	}
	return u.user.Email
}

func (u *webAuthnUser) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, len(u.creds))
	for i, c := range u.creds {
		creds[i] = webauthn.Credential{
			ID:              c.CredentialID,
			PublicKey:       c.PublicKey,
			AttestationType: c.AttestationType,
			Authenticator: webauthn.Authenticator{
				SignCount: c.Counter,
			},
		}
		if c.Transports != "" {
			var transports []protocol.AuthenticatorTransport
			_ = json.Unmarshal([]byte(c.Transports), &transports)
			creds[i].Transport = transports
		}
	}
	return creds
}

// BeginRegistration opens a registration ceremony for an authenticated user.
// Already-registered credentials are sent as exclusions so the browser will
// not offer to re-enroll the same authenticator.
func (v *PasskeyVerifier) BeginRegistration(ctx context.Context, user *store.User) (*protocol.CredentialCreation, error) {
	existing, err := v.passkeys.ListPasskeysByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing passkeys: %w", err)
	}

	exclusions := make([]protocol.CredentialDescriptor, len(existing))
	for i, c := range existing {
		exclusions[i] = protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: c.CredentialID,
		}
	}

	waUser := &webAuthnUser{user: user, creds: existing}

	options, session, err := v.wa.BeginRegistration(waUser,
		webauthn.WithExclusions(exclusions),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementRequired,
			UserVerification: protocol.VerificationPreferred,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("beginning registration: %w", err)
	}

	if err := v.challenges.Put(regChallengePrefix+user.ID, session); err != nil {
		return nil, err
	}

	return options, nil
}

// FinishRegistration completes a registration ceremony and persists the new
// credential. A missing challenge means it expired or was already consumed.
// deviceName overrides the label derived from the authenticator's backup flags.
func (v *PasskeyVerifier) FinishRegistration(ctx context.Context, user *store.User, body io.Reader, deviceName string) (*store.PasskeyCredential, error) {
	session, ok := v.challenges.Take(regChallengePrefix + user.ID)
	if !ok {
		return nil, ErrChallengeExpired
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	existing, err := v.passkeys.ListPasskeysByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing passkeys: %w", err)
	}
	waUser := &webAuthnUser{user: user, creds: existing}

	credential, err := v.wa.CreateCredential(waUser, *session, parsed)
	if err != nil {
		v.logger.Warn("passkey registration rejected", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	transportsJSON, err := json.Marshal(credential.Transport)
	if err != nil {
		return nil, fmt.Errorf("encoding transports: %w", err)
	}

	if deviceName == "" {
		deviceName = defaultDeviceName(credential)
	}

	cred := &store.PasskeyCredential{
		UserID:          user.ID,
		CredentialID:    credential.ID,
		PublicKey:       credential.PublicKey,
		AttestationType: credential.AttestationType,
		Counter:         credential.Authenticator.SignCount,
		Transports:      string(transportsJSON),
		DeviceName:      deviceName,
	}
	if err := v.passkeys.CreatePasskey(ctx, cred); err != nil {
		return nil, err
	}

	v.logger.Info("passkey registered", "user_id", user.ID, "passkey_id", cred.ID)
	return cred, nil
}

// defaultDeviceName labels a credential from its backup flags when the user
// did not supply a name.
func defaultDeviceName(cred *webauthn.Credential) string {
	if cred.Flags.BackupEligible {
		if cred.Flags.BackupState {
			return "Synced passkey"
		}
		return "Passkey"
	}
	return "Security key"
}

// BeginLogin opens a usernameless discoverable-credential ceremony. The
// pending session is keyed by the challenge value itself, which the browser
// echoes back in the client data on finish.
func (v *PasskeyVerifier) BeginLogin(ctx context.Context) (*protocol.CredentialAssertion, error) {
	options, session, err := v.wa.BeginDiscoverableLogin()
	if err != nil {
		return nil, fmt.Errorf("beginning login: %w", err)
	}

	if err := v.challenges.Put(loginChallengePrefix+session.Challenge, session); err != nil {
		return nil, err
	}

	return options, nil
}

// FinishLogin validates a discoverable-login assertion and resolves it to a
// user. The challenge is recovered from the echoed client data, consumed
// exactly once, and the stored signature counter is advanced by compare and
// swap only after the assertion verifies cleanly.
func (v *PasskeyVerifier) FinishLogin(ctx context.Context, body io.Reader) (*store.User, error) {
	parsed, err := protocol.ParseCredentialRequestResponseBody(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	echoed := parsed.Response.CollectedClientData.Challenge
	session, ok := v.challenges.Take(loginChallengePrefix + echoed)
	if !ok {
		return nil, ErrChallengeExpired
	}

	stored, err := v.passkeys.GetPasskeyByCredentialID(ctx, parsed.RawID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	user, err := v.users.GetUser(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	allCreds, err := v.passkeys.ListPasskeysByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing passkeys: %w", err)
	}
	waUser := &webAuthnUser{user: user, creds: allCreds}

	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		if len(userHandle) > 0 && string(userHandle) != user.ID {
			return nil, errors.New("user handle mismatch")
		}
		return waUser, nil
	}

	credential, err := v.wa.ValidateDiscoverableLogin(handler, *session, parsed)
	if err != nil {
		v.logger.Warn("passkey assertion rejected", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	if err := v.commitCounter(ctx, stored, credential); err != nil {
		return nil, err
	}

	v.logger.Info("passkey login", "user_id", user.ID, "passkey_id", stored.ID)
	return user, nil
}

// commitCounter advances the stored signature counter after a verified
// assertion. A clone warning from validation means the reported counter did
// not advance on a counter-bearing authenticator, so the credential may have
// been copied; the login fails and the stored counter stays untouched.
func (v *PasskeyVerifier) commitCounter(ctx context.Context, stored *store.PasskeyCredential, credential *webauthn.Credential) error {
	if credential.Authenticator.CloneWarning {
		v.logger.Warn("passkey counter regression", "user_id", stored.UserID, "passkey_id", stored.ID,
			"stored", stored.Counter, "reported", credential.Authenticator.SignCount)
		return fmt.Errorf("%w: signature counter regression", ErrVerificationFailed)
	}

	if err := v.passkeys.UpdatePasskeyCounter(ctx, stored.ID, stored.Counter, credential.Authenticator.SignCount); err != nil {
		if errors.Is(err, store.ErrCounterConflict) {
			return fmt.Errorf("%w: concurrent counter update", ErrVerificationFailed)
		}
		return err
	}
	return nil
}
