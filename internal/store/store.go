// ABOUTME: Store interface and data types for medlemsportal persistence
// ABOUTME: Defines User, PasskeyCredential, MagicLink structs and store contracts

package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when creating a user with an email that is already taken
var ErrDuplicateEmail = errors.New("email already registered")

// ErrDuplicateRole is returned when creating a role whose name already exists
var ErrDuplicateRole = errors.New("role already exists")

// ErrDuplicateCredential is returned when registering a passkey credential ID
// that is already bound to an account
var ErrDuplicateCredential = errors.New("credential already registered")

// ErrCounterConflict is returned when a passkey counter update loses the
// compare-and-swap against the stored value
var ErrCounterConflict = errors.New("signature counter conflict")

// User represents a portal member account.
// PasswordHash is empty for accounts that only log in via passkey or magic link.
type User struct {
	ID                   string
	Email                string // stored lowercase
	Name                 string
	PasswordHash         string
	IsActive             bool
	NotificationsEnabled bool
	Phone                string
	Address              string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Role represents a named capability that can be assigned to users.
// The "admin" role satisfies every authorization check.
type Role struct {
	ID          string
	Name        string
	Description string
}

// PasskeyCredential represents one registered WebAuthn authenticator.
type PasskeyCredential struct {
	ID              string
	UserID          string
	CredentialID    []byte // authenticator-supplied ID, unique across all users
	PublicKey       []byte
	AttestationType string
	Counter         uint32
	Transports      string // JSON array of transport hints, empty if unknown
	DeviceName      string
	CreatedAt       time.Time
}

// MagicLink represents a single-use passwordless login token.
type MagicLink struct {
	ID        string
	Token     string
	Email     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserStore defines user account persistence.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]*User, error)
}

// RoleStore defines role catalog and assignment persistence.
type RoleStore interface {
	CreateRole(ctx context.Context, role *Role) error
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	ListRoles(ctx context.Context) ([]*Role, error)
	AssignRole(ctx context.Context, userID, roleID string) error
	UnassignRole(ctx context.Context, userID, roleID string) error
	ListUserRoles(ctx context.Context, userID string) ([]string, error)
}

// PasskeyStore defines WebAuthn credential persistence.
type PasskeyStore interface {
	CreatePasskey(ctx context.Context, cred *PasskeyCredential) error
	GetPasskey(ctx context.Context, id string) (*PasskeyCredential, error)
	GetPasskeyByCredentialID(ctx context.Context, credentialID []byte) (*PasskeyCredential, error)
	ListPasskeysByUser(ctx context.Context, userID string) ([]*PasskeyCredential, error)
	UpdatePasskeyCounter(ctx context.Context, id string, oldCounter, newCounter uint32) error
	DeletePasskey(ctx context.Context, id string) error
}

// MagicLinkStore defines single-use login token persistence.
// ConsumeMagicLink must be atomic: the row transitions from unused to used
// exactly once even under concurrent redemption.
type MagicLinkStore interface {
	CreateMagicLink(ctx context.Context, link *MagicLink) error
	GetMagicLink(ctx context.Context, token string) (*MagicLink, error)
	ConsumeMagicLink(ctx context.Context, token string, now time.Time) (*MagicLink, error)
	PurgeExpiredMagicLinks(ctx context.Context, olderThan time.Time) error
}

// Store combines all persistence contracts backed by a single database.
type Store interface {
	UserStore
	RoleStore
	PasskeyStore
	MagicLinkStore
	AuditStore
	BoardStore

	// Close releases any resources held by the store
	Close() error
}
