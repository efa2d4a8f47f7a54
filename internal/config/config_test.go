// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers env expansion, duration parsing, defaults, and required fields

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
server:
  http_addr: ":9090"
  base_url: "https://portal.example.org"
  production: true
database:
  path: "/tmp/portal.db"
webauthn:
  rp_id: "portal.example.org"
  origin: "https://portal.example.org"
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
`

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.True(t, cfg.Server.Production)
	assert.Equal(t, "/tmp/portal.db", cfg.Database.Path)
	assert.Equal(t, "portal.example.org", cfg.WebAuthn.RPID)
	assert.Equal(t, DefaultSessionDuration, cfg.Auth.SessionDuration)
	assert.Equal(t, "Medlemsportal", cfg.WebAuthn.AppName, "app name defaults")
	assert.Equal(t, 587, cfg.SMTP.Port, "smtp port defaults")
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_PORTAL_SECRET", "fedcba9876543210fedcba9876543210")

	path := writeConfig(t, `
database:
  path: "/tmp/portal.db"
auth:
  jwt_secret: "${TEST_PORTAL_SECRET}"
webauthn:
  rp_id: "localhost"
  origin: "http://localhost:8080"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fedcba9876543210fedcba9876543210", cfg.Auth.JWTSecret)
}

func TestLoad_SessionDuration(t *testing.T) {
	path := writeConfig(t, validConfig+`
  session_duration: "24h"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionDuration)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, validConfig+`
  session_duration: "not-a-duration"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: "auth.jwt_secret",
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "too-short" },
			wantErr: "32 characters",
		},
		{
			name:    "missing rp_id",
			mutate:  func(c *Config) { c.WebAuthn.RPID = "" },
			wantErr: "webauthn.rp_id",
		},
		{
			name:    "missing origin",
			mutate:  func(c *Config) { c.WebAuthn.Origin = "" },
			wantErr: "webauthn.origin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: DatabaseConfig{Path: "/tmp/p.db"},
				Auth:     AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef"},
				WebAuthn: WebAuthnConfig{RPID: "localhost", Origin: "http://localhost"},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
