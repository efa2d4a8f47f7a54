// ABOUTME: HTTP API server wiring verifiers, stores, and rate limits together
// ABOUTME: Routes are registered on a stdlib mux with method patterns

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kredsnet/medlemsportal/internal/audit"
	"github.com/kredsnet/medlemsportal/internal/auth"
	"github.com/kredsnet/medlemsportal/internal/challenge"
	"github.com/kredsnet/medlemsportal/internal/config"
	"github.com/kredsnet/medlemsportal/internal/mail"
	"github.com/kredsnet/medlemsportal/internal/ratelimit"
	"github.com/kredsnet/medlemsportal/internal/store"
)

// Per-endpoint abuse limits. Keys are client IPs except for the global
// email budget, which lives inside the mailer.
const (
	magicRequestLimit = 5
	magicVerifyLimit  = 10
	magicWindow       = 15 * time.Minute

	passkeyOptionsLimit  = 20
	passkeyOptionsWindow = time.Minute
)

// Server holds the portal's HTTP surface.
type Server struct {
	store      store.Store
	issuer     *auth.Issuer
	passwords  *auth.PasswordVerifier
	magicLinks *auth.MagicLinkVerifier
	passkeys   *auth.PasskeyVerifier
	challenges *challenge.Store
	recorder   *audit.Recorder
	mailer     mail.Mailer

	magicRequestLimiter *ratelimit.Limiter
	magicVerifyLimiter  *ratelimit.Limiter
	passkeyLimiter      *ratelimit.Limiter

	baseURL    string
	production bool
	logger     *slog.Logger
}

// NewServer builds the API server from configuration and a backing store.
func NewServer(cfg *config.Config, st store.Store) (*Server, error) {
	mailer := mail.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From, cfg.WebAuthn.AppName)
	challenges := challenge.New(challenge.DefaultTTL, challenge.DefaultMaxSize)

	passkeys, err := auth.NewPasskeyVerifier(auth.PasskeyConfig{
		RPID:        cfg.WebAuthn.RPID,
		Origin:      cfg.WebAuthn.Origin,
		DisplayName: cfg.WebAuthn.AppName,
	}, st, st, challenges)
	if err != nil {
		challenges.Close()
		mailer.Close()
		return nil, err
	}

	issuer := auth.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.SessionDuration)

	return &Server{
		store:      st,
		issuer:     issuer,
		passwords:  auth.NewPasswordVerifier(st),
		magicLinks: auth.NewMagicLinkVerifier(st, st, mailer, cfg.Server.BaseURL),
		passkeys:   passkeys,
		challenges: challenges,
		recorder:   audit.NewRecorder(st),
		mailer:     mailer,

		magicRequestLimiter: ratelimit.New(magicRequestLimit, magicWindow),
		magicVerifyLimiter:  ratelimit.New(magicVerifyLimit, magicWindow),
		passkeyLimiter:      ratelimit.New(passkeyOptionsLimit, passkeyOptionsWindow),

		baseURL:    cfg.Server.BaseURL,
		production: cfg.Server.Production,
		logger:     slog.Default().With("component", "api"),
	}, nil
}

// RegisterRoutes registers all portal routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Session endpoints (no auth)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("POST /api/auth/magic-link", s.handleMagicLinkRequest)
	mux.HandleFunc("GET /api/auth/magic-link/verify", s.handleMagicLinkVerify)
	mux.HandleFunc("POST /api/auth/passkey/login-options", s.handlePasskeyLoginOptions)
	mux.HandleFunc("POST /api/auth/passkey/login", s.handlePasskeyLogin)

	// Current user
	mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("PUT /api/auth/notifications", s.requireAuth(s.handleNotifications))

	// Passkey management (authenticated)
	mux.HandleFunc("POST /api/auth/passkey/register-options", s.requireAuth(s.handlePasskeyRegisterOptions))
	mux.HandleFunc("POST /api/auth/passkey/register", s.requireAuth(s.handlePasskeyRegister))
	mux.HandleFunc("GET /api/auth/passkeys", s.requireAuth(s.handlePasskeyList))
	mux.HandleFunc("DELETE /api/auth/passkeys/{id}", s.requireAuth(s.handlePasskeyDelete))

	// Board
	mux.HandleFunc("GET /api/board/posts", s.requireAuth(s.handleBoardList))
	mux.HandleFunc("GET /api/board/posts/{id}", s.requireAuth(s.handleBoardGet))
	mux.HandleFunc("POST /api/board/posts", s.requireRole(s.handleBoardCreate, "write-board"))
	mux.HandleFunc("PUT /api/board/posts/{id}", s.requireRole(s.handleBoardUpdate, "write-board"))
	mux.HandleFunc("DELETE /api/board/posts/{id}", s.requireRole(s.handleBoardDelete, "write-board"))
	mux.HandleFunc("GET /api/categories", s.requireAuth(s.handleCategoryList))
	mux.HandleFunc("POST /api/categories", s.requireRole(s.handleCategoryCreate))

	// Members directory
	mux.HandleFunc("GET /api/members", s.requireAuth(s.handleMemberList))

	// Admin
	mux.HandleFunc("GET /api/admin/users", s.requireRole(s.handleUserList))
	mux.HandleFunc("POST /api/admin/users", s.requireRole(s.handleUserCreate))
	mux.HandleFunc("PUT /api/admin/users/{id}", s.requireRole(s.handleUserUpdate))
	mux.HandleFunc("DELETE /api/admin/users/{id}", s.requireRole(s.handleUserDelete))
	mux.HandleFunc("GET /api/admin/roles", s.requireRole(s.handleRoleList))
	mux.HandleFunc("POST /api/admin/users/{id}/roles", s.requireRole(s.handleRoleGrant))
	mux.HandleFunc("DELETE /api/admin/users/{id}/roles/{role}", s.requireRole(s.handleRoleRevoke))
	mux.HandleFunc("GET /api/admin/audit", s.requireRole(s.handleAuditList))
}

// Close releases background resources: limiters, the challenge store, and
// the mailer's outbound budget.
func (s *Server) Close() {
	s.magicRequestLimiter.Close()
	s.magicVerifyLimiter.Close()
	s.passkeyLimiter.Close()
	s.challenges.Close()
	s.mailer.Close()
}
