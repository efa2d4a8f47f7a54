// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides user/role/passkey/magic-link persistence with automatic schema creation

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id                    TEXT PRIMARY KEY,
			email                 TEXT NOT NULL UNIQUE,
			name                  TEXT NOT NULL,
			password_hash         TEXT NOT NULL DEFAULT '',
			is_active             INTEGER NOT NULL DEFAULT 1,
			notifications_enabled INTEGER NOT NULL DEFAULT 1,
			phone                 TEXT,
			address               TEXT,
			created_at            TEXT NOT NULL,
			updated_at            TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS roles (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			description TEXT
		);

		CREATE TABLE IF NOT EXISTS user_roles (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role_id TEXT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,

			PRIMARY KEY (user_id, role_id)
		);

		CREATE INDEX IF NOT EXISTS idx_user_roles_user ON user_roles(user_id);

		CREATE TABLE IF NOT EXISTS passkey_credentials (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			credential_id    BLOB NOT NULL UNIQUE,
			public_key       BLOB NOT NULL,
			attestation_type TEXT,
			counter          INTEGER NOT NULL DEFAULT 0,
			transports       TEXT,
			device_name      TEXT,
			created_at       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_passkeys_user ON passkey_credentials(user_id);

		CREATE TABLE IF NOT EXISTS magic_links (
			id         TEXT PRIMARY KEY,
			token      TEXT NOT NULL UNIQUE,
			email      TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			used_at    TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_magic_links_token ON magic_links(token);
		CREATE INDEX IF NOT EXISTS idx_magic_links_expires ON magic_links(expires_at);

		CREATE TABLE IF NOT EXISTS audit_logs (
			id         TEXT PRIMARY KEY,
			user_id    TEXT REFERENCES users(id) ON DELETE SET NULL,
			action     TEXT NOT NULL,
			details    TEXT,
			ip_address TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_logs(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_logs(user_id);
		CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_logs(action);

		CREATE TABLE IF NOT EXISTS categories (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			color      TEXT NOT NULL DEFAULT 'gray',
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS board_posts (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			content          TEXT NOT NULL,
			is_pinned        INTEGER NOT NULL DEFAULT 0,
			comments_enabled INTEGER NOT NULL DEFAULT 1,
			author_id        TEXT NOT NULL REFERENCES users(id),
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_board_posts_created ON board_posts(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// nullString returns nil for empty strings, otherwise the string
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to the 0/1 representation SQLite stores
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
