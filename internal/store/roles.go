// ABOUTME: Role catalog and assignment store methods for authorization
// ABOUTME: Roles are many-to-many with users; the admin role overrides all checks

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// RoleAdmin satisfies every authorization check regardless of the role required.
const RoleAdmin = "admin"

// CreateRole creates a new role. Generates an ID if not set.
// Returns ErrDuplicateRole if the name already exists.
func (s *SQLiteStore) CreateRole(ctx context.Context, role *Role) error {
	if role.ID == "" {
		role.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, description) VALUES (?, ?, ?)`,
		role.ID, role.Name, nullString(role.Description),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateRole
		}
		return fmt.Errorf("inserting role: %w", err)
	}

	s.logger.Debug("created role", "id", role.ID, "name", role.Name)
	return nil
}

// GetRoleByName retrieves a role by its unique name.
// Returns ErrNotFound if the role doesn't exist.
func (s *SQLiteStore) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	var role Role
	var description sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM roles WHERE name = ?`, name,
	).Scan(&role.ID, &role.Name, &description)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying role: %w", err)
	}

	role.Description = description.String
	return &role, nil
}

// ListRoles returns all roles ordered by name.
func (s *SQLiteStore) ListRoles(ctx context.Context) ([]*Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		var role Role
		var description sql.NullString
		if err := rows.Scan(&role.ID, &role.Name, &description); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		role.Description = description.String
		roles = append(roles, &role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}

	if roles == nil {
		roles = []*Role{}
	}
	return roles, nil
}

// AssignRole assigns a role to a user. This operation is idempotent -
// assigning an existing role succeeds silently.
func (s *SQLiteStore) AssignRole(ctx context.Context, userID, roleID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)`,
		userID, roleID,
	)
	if err != nil {
		return fmt.Errorf("assigning role: %w", err)
	}

	s.logger.Debug("assigned role", "user_id", userID, "role_id", roleID)
	return nil
}

// UnassignRole removes a role from a user. This operation is idempotent -
// removing a non-existent assignment succeeds silently.
func (s *SQLiteStore) UnassignRole(ctx context.Context, userID, roleID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ? AND role_id = ?`,
		userID, roleID,
	)
	if err != nil {
		return fmt.Errorf("unassigning role: %w", err)
	}

	s.logger.Debug("unassigned role", "user_id", userID, "role_id", roleID)
	return nil
}

// ListUserRoles returns the role names assigned to a user, ordered by name.
// Returns an empty slice for unknown users (not an error).
func (s *SQLiteStore) ListUserRoles(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT r.name FROM roles r
		INNER JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.name
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing user roles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning role name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user roles: %w", err)
	}

	// Return empty slice (not nil) if no roles
	if names == nil {
		names = []string{}
	}
	return names, nil
}
