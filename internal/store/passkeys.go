// ABOUTME: Passkey credential store methods for WebAuthn authenticators
// ABOUTME: Counter updates are compare-and-swap to block concurrent replay

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreatePasskey stores a new WebAuthn credential. Generates ID and CreatedAt
// if not set. Returns ErrDuplicateCredential if the authenticator-supplied
// credential ID is already registered to any account.
func (s *SQLiteStore) CreatePasskey(ctx context.Context, cred *PasskeyCredential) error {
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO passkey_credentials (id, user_id, credential_id, public_key, attestation_type, counter, transports, device_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		cred.ID,
		cred.UserID,
		cred.CredentialID,
		cred.PublicKey,
		nullString(cred.AttestationType),
		cred.Counter,
		nullString(cred.Transports),
		nullString(cred.DeviceName),
		cred.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateCredential
		}
		return fmt.Errorf("inserting passkey: %w", err)
	}

	s.logger.Debug("created passkey", "id", cred.ID, "user_id", cred.UserID, "device", cred.DeviceName)
	return nil
}

const passkeyColumns = `id, user_id, credential_id, public_key, attestation_type, counter, transports, device_name, created_at`

// scanPasskey scans a row into a PasskeyCredential.
func scanPasskey(scanner interface{ Scan(dest ...any) error }) (*PasskeyCredential, error) {
	var cred PasskeyCredential
	var attestation, transports, deviceName sql.NullString
	var createdAt string

	if err := scanner.Scan(
		&cred.ID,
		&cred.UserID,
		&cred.CredentialID,
		&cred.PublicKey,
		&attestation,
		&cred.Counter,
		&transports,
		&deviceName,
		&createdAt,
	); err != nil {
		return nil, err
	}

	cred.AttestationType = attestation.String
	cred.Transports = transports.String
	cred.DeviceName = deviceName.String

	var err error
	cred.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &cred, nil
}

// GetPasskey retrieves a credential by its internal ID.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetPasskey(ctx context.Context, id string) (*PasskeyCredential, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+passkeyColumns+` FROM passkey_credentials WHERE id = ?`, id)
	cred, err := scanPasskey(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying passkey: %w", err)
	}
	return cred, nil
}

// GetPasskeyByCredentialID retrieves a credential by the authenticator-supplied ID.
// Returns ErrNotFound if no account has registered it.
func (s *SQLiteStore) GetPasskeyByCredentialID(ctx context.Context, credentialID []byte) (*PasskeyCredential, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+passkeyColumns+` FROM passkey_credentials WHERE credential_id = ?`, credentialID)
	cred, err := scanPasskey(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying passkey by credential id: %w", err)
	}
	return cred, nil
}

// ListPasskeysByUser returns all credentials registered by a user, oldest first.
func (s *SQLiteStore) ListPasskeysByUser(ctx context.Context, userID string) ([]*PasskeyCredential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+passkeyColumns+` FROM passkey_credentials WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing passkeys: %w", err)
	}
	defer rows.Close()

	var creds []*PasskeyCredential
	for rows.Next() {
		cred, err := scanPasskey(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning passkey: %w", err)
		}
		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passkeys: %w", err)
	}

	if creds == nil {
		creds = []*PasskeyCredential{}
	}
	return creds, nil
}

// UpdatePasskeyCounter overwrites the stored signature counter, but only if
// it still holds the expected prior value. Returns ErrCounterConflict when
// the compare-and-swap loses to a concurrent update, ErrNotFound if the
// credential doesn't exist.
func (s *SQLiteStore) UpdatePasskeyCounter(ctx context.Context, id string, oldCounter, newCounter uint32) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE passkey_credentials SET counter = ? WHERE id = ? AND counter = ?`,
		newCounter, id, oldCounter,
	)
	if err != nil {
		return fmt.Errorf("updating passkey counter: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking counter update result: %w", err)
	}
	if rows == 0 {
		if _, getErr := s.GetPasskey(ctx, id); getErr != nil {
			return getErr
		}
		return ErrCounterConflict
	}

	s.logger.Debug("updated passkey counter", "id", id, "counter", newCounter)
	return nil
}

// DeletePasskey removes a credential.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) DeletePasskey(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM passkey_credentials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting passkey: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted passkey", "id", id)
	return nil
}
