// ABOUTME: Entry point for the portal-admin maintenance CLI
// ABOUTME: Manages users and roles directly against the portal database

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/kredsnet/medlemsportal/internal/auth"
	"github.com/kredsnet/medlemsportal/internal/config"
	"github.com/kredsnet/medlemsportal/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: portal-admin <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  seed                                    Create the base roles (admin, board, member)")
		fmt.Println("  create-user --email E --name N [--password P] [--role R]")
		fmt.Println("  set-password --email E --password P     Set or replace a user's password")
		fmt.Println("  grant-role --email E --role R           Grant a role to a user")
		fmt.Println("  revoke-role --email E --role R          Revoke a role from a user")
		fmt.Println("  deactivate --email E                    Disable an account")
		fmt.Println("  list-users                              List all users with their roles")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "seed":
		err = withStore(runSeed)(ctx)
	case "create-user":
		err = withStore(runCreateUser)(ctx)
	case "set-password":
		err = withStore(runSetPassword)(ctx)
	case "grant-role":
		err = withStore(runGrantRole)(ctx)
	case "revoke-role":
		err = withStore(runRevokeRole)(ctx)
	case "deactivate":
		err = withStore(runDeactivate)(ctx)
	case "list-users":
		err = withStore(runListUsers)(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath mirrors the server's config resolution.
func getConfigPath() string {
	if envPath := os.Getenv("PORTAL_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "portal.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "medlemsportal", "portal.yaml")
}

// withStore opens the configured database around a command.
func withStore(fn func(context.Context, *store.SQLiteStore) error) func(context.Context) error {
	return func(ctx context.Context) error {
		cfg, err := config.Load(getConfigPath())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		s, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer s.Close()

		return fn(ctx, s)
	}
}

// parseFlags does minimal flag parsing, supporting "--key value" and
// "--key=value" forms.
func parseFlags(args []string, known ...string) (map[string]string, error) {
	out := map[string]string{}
	isKnown := func(name string) bool {
		for _, k := range known {
			if k == name {
				return true
			}
		}
		return false
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("unexpected argument: %s", arg)
		}
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !isKnown(name) {
			return nil, fmt.Errorf("unknown flag: --%s", name)
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		out[name] = value
	}
	return out, nil
}

// runSeed creates the base role catalog. Safe to run repeatedly.
func runSeed(ctx context.Context, s *store.SQLiteStore) error {
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	roles := []store.Role{
		{Name: store.RoleAdmin, Description: "Full access to everything"},
		{Name: "write-board", Description: "Create and manage bulletin board posts"},
		{Name: "member", Description: "Regular member"},
	}

	for _, role := range roles {
		r := role
		if err := s.CreateRole(ctx, &r); err != nil {
			if errors.Is(err, store.ErrDuplicateRole) {
				gray.Printf("  - role exists: %s\n", r.Name)
				continue
			}
			return fmt.Errorf("creating role %s: %w", r.Name, err)
		}
		green.Printf("  ✓ created role: %s\n", r.Name)
	}
	return nil
}

func runCreateUser(ctx context.Context, s *store.SQLiteStore) error {
	flags, err := parseFlags(os.Args[2:], "email", "name", "password", "role")
	if err != nil {
		return err
	}
	if flags["email"] == "" || flags["name"] == "" {
		return fmt.Errorf("--email and --name are required")
	}

	user := &store.User{
		Email:                flags["email"],
		Name:                 flags["name"],
		IsActive:             true,
		NotificationsEnabled: true,
	}
	if pw := flags["password"]; pw != "" {
		hash, err := auth.HashPassword(pw)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ created user: %s (%s)\n", user.Email, user.ID)

	if roleName := flags["role"]; roleName != "" {
		role, err := s.GetRoleByName(ctx, roleName)
		if err != nil {
			return fmt.Errorf("looking up role %s (run seed first?): %w", roleName, err)
		}
		if err := s.AssignRole(ctx, user.ID, role.ID); err != nil {
			return fmt.Errorf("assigning role: %w", err)
		}
		green.Printf("  ✓ granted role: %s\n", roleName)
	}

	if user.PasswordHash == "" {
		color.New(color.FgYellow).Println("  No password set; the user can only log in via magic link or passkey.")
	}
	return nil
}

func runSetPassword(ctx context.Context, s *store.SQLiteStore) error {
	flags, err := parseFlags(os.Args[2:], "email", "password")
	if err != nil {
		return err
	}
	if flags["email"] == "" || flags["password"] == "" {
		return fmt.Errorf("--email and --password are required")
	}

	user, err := s.GetUserByEmail(ctx, flags["email"])
	if err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}

	hash, err := auth.HashPassword(flags["password"])
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	color.New(color.FgGreen).Printf("  ✓ password updated for %s\n", user.Email)
	return nil
}

func resolveUserAndRole(ctx context.Context, s *store.SQLiteStore) (*store.User, *store.Role, error) {
	flags, err := parseFlags(os.Args[2:], "email", "role")
	if err != nil {
		return nil, nil, err
	}
	if flags["email"] == "" || flags["role"] == "" {
		return nil, nil, fmt.Errorf("--email and --role are required")
	}

	user, err := s.GetUserByEmail(ctx, flags["email"])
	if err != nil {
		return nil, nil, fmt.Errorf("looking up user: %w", err)
	}
	role, err := s.GetRoleByName(ctx, flags["role"])
	if err != nil {
		return nil, nil, fmt.Errorf("looking up role: %w", err)
	}
	return user, role, nil
}

func runGrantRole(ctx context.Context, s *store.SQLiteStore) error {
	user, role, err := resolveUserAndRole(ctx, s)
	if err != nil {
		return err
	}
	if err := s.AssignRole(ctx, user.ID, role.ID); err != nil {
		return fmt.Errorf("assigning role: %w", err)
	}
	color.New(color.FgGreen).Printf("  ✓ granted %s to %s\n", role.Name, user.Email)
	return nil
}

func runRevokeRole(ctx context.Context, s *store.SQLiteStore) error {
	user, role, err := resolveUserAndRole(ctx, s)
	if err != nil {
		return err
	}
	if err := s.UnassignRole(ctx, user.ID, role.ID); err != nil {
		return fmt.Errorf("unassigning role: %w", err)
	}
	color.New(color.FgGreen).Printf("  ✓ revoked %s from %s\n", role.Name, user.Email)
	return nil
}

func runDeactivate(ctx context.Context, s *store.SQLiteStore) error {
	flags, err := parseFlags(os.Args[2:], "email")
	if err != nil {
		return err
	}
	if flags["email"] == "" {
		return fmt.Errorf("--email is required")
	}

	user, err := s.GetUserByEmail(ctx, flags["email"])
	if err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}
	user.IsActive = false
	if err := s.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	color.New(color.FgYellow).Printf("  ✓ deactivated %s\n", user.Email)
	return nil
}

func runListUsers(ctx context.Context, s *store.SQLiteStore) error {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	for _, u := range users {
		roles, err := s.ListUserRoles(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("listing roles for %s: %w", u.Email, err)
		}

		cyan.Printf("%s", u.Email)
		fmt.Printf("  %s", u.Name)
		if len(roles) > 0 {
			fmt.Printf("  [%s]", strings.Join(roles, ", "))
		}
		if !u.IsActive {
			color.New(color.FgRed).Print("  (inactive)")
		}
		if u.PasswordHash == "" {
			gray.Print("  (no password)")
		}
		fmt.Println()
	}

	gray.Printf("\n%d user(s)\n", len(users))
	return nil
}
