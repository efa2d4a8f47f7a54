// ABOUTME: Audit log entity and store methods for tracking auth and admin actions
// ABOUTME: Records who did what from which IP for compliance and debugging

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents an auditable action.
type AuditAction string

const (
	AuditLogin              AuditAction = "login"
	AuditLoginFailed        AuditAction = "login_failed"
	AuditLogout             AuditAction = "logout"
	AuditPasskeyRegistered  AuditAction = "passkey_registered"
	AuditPasskeyDeleted     AuditAction = "passkey_deleted"
	AuditPasskeyLogin       AuditAction = "passkey_login"
	AuditMagicLinkRequested AuditAction = "magic_link_requested"
	AuditMagicLinkLogin     AuditAction = "magic_link_login"
	AuditEmailSent          AuditAction = "email_sent"
	AuditEmailFailed        AuditAction = "email_failed"
	AuditUserCreated        AuditAction = "user_created"
	AuditUserUpdated        AuditAction = "user_updated"
	AuditUserDeleted        AuditAction = "user_deleted"
	AuditPostCreated        AuditAction = "post_created"
	AuditPostUpdated        AuditAction = "post_updated"
	AuditPostDeleted        AuditAction = "post_deleted"
	AuditNotificationsSet   AuditAction = "notifications_toggled"
)

// AuditEntry represents a single audit log entry.
// UserID is nil when the actor is unknown (e.g. a failed login).
type AuditEntry struct {
	ID        string
	UserID    *string
	Action    AuditAction
	Details   string
	IPAddress string
	CreatedAt time.Time
}

// AuditFilter specifies filtering options for listing audit entries.
type AuditFilter struct {
	Since  *time.Time
	UserID *string
	Action *AuditAction
	Limit  int // default 100, max 1000
}

// AuditStore defines audit log persistence.
type AuditStore interface {
	AppendAudit(ctx context.Context, e *AuditEntry) error
	ListAudit(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

// AppendAudit appends a new entry to the audit log.
// Generates ID and CreatedAt if not set.
func (s *SQLiteStore) AppendAudit(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, details, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		e.Action,
		nullString(e.Details),
		nullString(e.IPAddress),
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	s.logger.Debug("appended audit log", "id", e.ID, "action", e.Action)
	return nil
}

// normalizeAuditLimit applies default (100) and cap (1000) to audit limit.
func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

const auditQuery = `
	SELECT id, user_id, action, details, ip_address, created_at
	FROM audit_logs
	WHERE (? IS NULL OR created_at >= ?)
	  AND (? IS NULL OR user_id = ?)
	  AND (? IS NULL OR action = ?)
	ORDER BY created_at DESC
	LIMIT ?
`

// ListAudit returns audit entries matching the filter criteria.
// Results are returned newest first.
func (s *SQLiteStore) ListAudit(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	limit := normalizeAuditLimit(f.Limit)

	var sinceStr, actionStr *string
	if f.Since != nil {
		v := f.Since.UTC().Format(time.RFC3339)
		sinceStr = &v
	}
	if f.Action != nil {
		v := string(*f.Action)
		actionStr = &v
	}

	rows, err := s.db.QueryContext(ctx, auditQuery,
		sinceStr, sinceStr,
		f.UserID, f.UserID,
		actionStr, actionStr,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var userID, details, ip sql.NullString
		var actionStr, createdAt string

		if err := rows.Scan(&e.ID, &userID, &actionStr, &details, &ip, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		if userID.Valid {
			v := userID.String
			e.UserID = &v
		}
		e.Action = AuditAction(actionStr)
		e.Details = details.String
		e.IPAddress = ip.String
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}
