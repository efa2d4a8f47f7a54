// Package store provides persistence for medlemsportal.
//
// # Entities
//
// The store manages the durable state behind the portal:
//
//   - Users: member accounts with email (unique, lowercase), optional
//     bcrypt password hash, an is_active gate, and notification settings.
//   - Roles: named capabilities assigned many-to-many to users. The
//     "admin" role is a universal override in authorization checks.
//   - Passkey credentials: one row per registered WebAuthn authenticator,
//     with the authenticator-supplied credential ID (globally unique),
//     public key material, and a signature counter.
//   - Magic links: single-use passwordless login tokens with absolute
//     expiry and an atomic consumption path.
//   - Audit logs: who did what from which IP.
//   - Board posts and categories: the bulletin board surface.
//
// # Atomicity contracts
//
// Two operations carry compare-and-swap semantics that the auth core
// relies on:
//
//   - ConsumeMagicLink conditions the used_at update on the token still
//     being unused and unexpired, so concurrent redemptions of the same
//     token cannot both succeed.
//   - UpdatePasskeyCounter conditions the write on the stored counter
//     still holding the expected prior value, closing the window for
//     concurrent counter replay.
//
// # Implementation
//
// SQLiteStore is the only implementation, using modernc.org/sqlite with
// WAL mode and foreign keys enabled. The schema is created automatically
// on first open.
package store
