// ABOUTME: Fire-and-forget audit recording decoupled from request handling
// ABOUTME: A failed audit write is logged locally and never fails the request

package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/kredsnet/medlemsportal/internal/store"
)

// writeTimeout bounds how long a background audit write may take.
const writeTimeout = 5 * time.Second

// Recorder appends audit entries in the background.
type Recorder struct {
	store  store.AuditStore
	logger *slog.Logger
}

// NewRecorder creates a recorder backed by the given audit store.
func NewRecorder(s store.AuditStore) *Recorder {
	return &Recorder{
		store:  s,
		logger: slog.Default().With("component", "audit"),
	}
}

// Record appends an entry asynchronously. The caller's request proceeds
// regardless of whether the write succeeds; failures only show up in logs.
func (r *Recorder) Record(action store.AuditAction, userID *string, ip, details string) {
	entry := &store.AuditEntry{
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: ip,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := r.store.AppendAudit(ctx, entry); err != nil {
			r.logger.Error("audit write failed", "action", action, "error", err)
		}
	}()
}

// RecordUser is Record with a known actor.
func (r *Recorder) RecordUser(action store.AuditAction, userID, ip, details string) {
	r.Record(action, &userID, ip, details)
}

// RecordAnonymous is Record with no known actor, for failed logins and
// unauthenticated probes.
func (r *Recorder) RecordAnonymous(action store.AuditAction, ip, details string) {
	r.Record(action, nil, ip, details)
}
