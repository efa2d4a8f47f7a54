// ABOUTME: Magic link store methods for single-use passwordless login tokens
// ABOUTME: Consumption is a conditional update so a token can never be spent twice

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateMagicLink stores a new login token. Generates ID and CreatedAt if not set.
func (s *SQLiteStore) CreateMagicLink(ctx context.Context, link *MagicLink) error {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	link.Email = NormalizeEmail(link.Email)

	query := `
		INSERT INTO magic_links (id, token, email, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, NULL, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		link.ID,
		link.Token,
		link.Email,
		link.ExpiresAt.UTC().Format(time.RFC3339),
		link.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting magic link: %w", err)
	}

	s.logger.Debug("created magic link", "id", link.ID, "email", link.Email)
	return nil
}

// GetMagicLink reads a token without consuming it. Used and expired tokens
// are still returned until the purge removes them; callers use this to
// classify why a consume failed. Returns ErrNotFound for an unknown token.
func (s *SQLiteStore) GetMagicLink(ctx context.Context, token string) (*MagicLink, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, token, email, expires_at, used_at, created_at FROM magic_links WHERE token = ?`, token,
	)
	link, err := scanMagicLink(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying magic link: %w", err)
	}
	return link, nil
}

// scanMagicLink scans a full magic_links row.
func scanMagicLink(scanner interface{ Scan(dest ...any) error }) (*MagicLink, error) {
	var link MagicLink
	var expiresAt, createdAt string
	var usedAt sql.NullString

	if err := scanner.Scan(&link.ID, &link.Token, &link.Email, &expiresAt, &usedAt, &createdAt); err != nil {
		return nil, err
	}

	var err error
	link.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	link.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if usedAt.Valid {
		t, err := time.Parse(time.RFC3339, usedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing used_at: %w", err)
		}
		link.UsedAt = &t
	}
	return &link, nil
}

// ConsumeMagicLink atomically marks an unused, unexpired token as used and
// returns it. The update is conditioned on used_at still being NULL and the
// expiry lying in the future, so concurrent redemptions of the same token
// cannot both succeed. Returns ErrNotFound for a missing, expired, or
// already-used token; callers wanting to tell those apart re-read the row
// with GetMagicLink afterwards.
func (s *SQLiteStore) ConsumeMagicLink(ctx context.Context, token string, now time.Time) (*MagicLink, error) {
	nowStr := now.UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		`UPDATE magic_links SET used_at = ? WHERE token = ? AND used_at IS NULL AND expires_at > ?`,
		nowStr, token, nowStr,
	)
	if err != nil {
		return nil, fmt.Errorf("consuming magic link: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking consume result: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	link, err := scanMagicLink(s.db.QueryRowContext(ctx,
		`SELECT id, token, email, expires_at, used_at, created_at FROM magic_links WHERE token = ?`, token,
	))
	if err != nil {
		return nil, fmt.Errorf("reading consumed magic link: %w", err)
	}

	s.logger.Debug("consumed magic link", "id", link.ID, "email", link.Email)
	return link, nil
}

// PurgeExpiredMagicLinks deletes tokens whose expiry is before the given cutoff.
// Used and unused tokens alike are purged once past retention.
func (s *SQLiteStore) PurgeExpiredMagicLinks(ctx context.Context, olderThan time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM magic_links WHERE expires_at < ?`,
		olderThan.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("purging magic links: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		s.logger.Debug("purged expired magic links", "count", rows)
	}
	return nil
}

// NewMagicLinkToken returns a fresh unguessable token value.
func NewMagicLinkToken() string {
	return uuid.New().String()
}
