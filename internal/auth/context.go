// ABOUTME: Authenticated user identity propagated through request context
// ABOUTME: Provides WithUser/FromContext plus the role check primitives

package auth

import (
	"context"
	"slices"

	"github.com/kredsnet/medlemsportal/internal/store"
)

// User holds the authenticated identity extracted from a session token.
// This is populated by the session middleware and retrieved from context
// in handlers.
type User struct {
	ID    string
	Email string
	Name  string
	Roles []string
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return slices.Contains(u.Roles, store.RoleAdmin)
}

// HasRole returns true if the user holds the given role, or holds admin,
// which satisfies every check.
func (u *User) HasRole(role string) bool {
	return u.IsAdmin() || slices.Contains(u.Roles, role)
}

// IsSelf returns true if the user owns the given resource owner ID.
// Ownership checks compose with role checks; they are not a separate
// authorization system.
func (u *User) IsSelf(ownerID string) bool {
	return u.ID == ownerID
}

// userContextKey is the key type for storing User in context.Context.
type userContextKey struct{}

// WithUser returns a new context with the authenticated user attached.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// FromContext retrieves the authenticated user from the context,
// returning nil if not present.
func FromContext(ctx context.Context) *User {
	val := ctx.Value(userContextKey{})
	if val == nil {
		return nil
	}
	user, ok := val.(*User)
	if !ok {
		return nil
	}
	return user
}

// RequireUser returns the authenticated user from the context, or
// ErrUnauthenticated when there is none.
func RequireUser(ctx context.Context) (*User, error) {
	user := FromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireRole returns the authenticated user if it holds any of the
// allowed roles (admin always qualifies). Fails with ErrUnauthenticated
// when no user is present, ErrForbidden when no role matches.
func RequireRole(ctx context.Context, allowedRoles ...string) (*User, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	if user.IsAdmin() {
		return user, nil
	}
	for _, role := range allowedRoles {
		if slices.Contains(user.Roles, role) {
			return user, nil
		}
	}
	return nil, ErrForbidden
}

// UserFromClaims converts verified session claims into a context user.
func UserFromClaims(claims *Claims) *User {
	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	return &User{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
		Roles: roles,
	}
}
