// ABOUTME: Session endpoints: password login, logout, magic links, current user
// ABOUTME: Login failures are audited without revealing account existence

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/kredsnet/medlemsportal/internal/auth"
	"github.com/kredsnet/medlemsportal/internal/store"
)

// userResponse is the JSON shape of a user as seen by its owner.
type userResponse struct {
	ID                   string   `json:"id"`
	Email                string   `json:"email"`
	Name                 string   `json:"name"`
	Roles                []string `json:"roles"`
	NotificationsEnabled bool     `json:"notificationsEnabled"`
	Phone                string   `json:"phone,omitempty"`
	Address              string   `json:"address,omitempty"`
}

// startSession snapshots the user's roles into a fresh session cookie and
// returns the response body. Roles granted later require a new login.
func (s *Server) startSession(ctx context.Context, w http.ResponseWriter, user *store.User) (*userResponse, error) {
	roles, err := s.store.ListUserRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(user.ID, user.Email, user.Name, roles)
	if err != nil {
		return nil, err
	}
	s.setSessionCookie(w, token)

	return &userResponse{
		ID:                   user.ID,
		Email:                user.Email,
		Name:                 user.Name,
		Roles:                roles,
		NotificationsEnabled: user.NotificationsEnabled,
		Phone:                user.Phone,
		Address:              user.Address,
	}, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	ip := clientIP(r)
	user, err := s.passwords.Verify(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrAccountDisabled) {
			s.recorder.RecordAnonymous(store.AuditLoginFailed, ip, "password")
		}
		s.writeError(w, err)
		return
	}

	resp, err := s.startSession(r.Context(), w, user)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditLogin, user.ID, ip, "password")
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user := s.sessionUser(r); user != nil {
		s.recorder.RecordUser(store.AuditLogout, user.ID, clientIP(r), "")
	}
	s.clearSessionCookie(w)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMe returns the current user, re-read from the store so profile
// edits show up without a new login. Roles still come from the session.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sessionUser := auth.FromContext(r.Context())

	user, err := s.store.GetUser(r.Context(), sessionUser.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Account deleted since the session was issued
			s.clearSessionCookie(w)
			s.writeError(w, auth.ErrUnauthenticated)
			return
		}
		s.writeError(w, err)
		return
	}
	if !user.IsActive {
		s.clearSessionCookie(w)
		s.writeError(w, auth.ErrAccountDisabled)
		return
	}

	s.writeJSON(w, http.StatusOK, &userResponse{
		ID:                   user.ID,
		Email:                user.Email,
		Name:                 user.Name,
		Roles:                sessionUser.Roles,
		NotificationsEnabled: user.NotificationsEnabled,
		Phone:                user.Phone,
		Address:              user.Address,
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	sessionUser := auth.FromContext(r.Context())

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	user, err := s.store.GetUser(r.Context(), sessionUser.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user.NotificationsEnabled = req.Enabled
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditNotificationsSet, user.ID, clientIP(r), "")
	s.writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

// handleMagicLinkRequest always responds with the same body so it cannot be
// used to probe which emails have accounts.
func (s *Server) handleMagicLinkRequest(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !s.magicRequestLimiter.Allow(ip) {
		s.writeError(w, auth.ErrRateLimited)
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	issued, err := s.magicLinks.Request(r.Context(), req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Only matched requests reach the audit log, so probing an address
	// does not plant it there. The response stays identical either way.
	if issued {
		s.recorder.RecordAnonymous(store.AuditMagicLinkRequested, ip, store.NormalizeEmail(req.Email))
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the address has an account, a login link is on its way",
	})
}

// handleMagicLinkVerify is hit from the email client, so it answers with
// redirects rather than JSON.
func (s *Server) handleMagicLinkVerify(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !s.magicVerifyLimiter.Allow(ip) {
		s.writeError(w, auth.ErrRateLimited)
		return
	}

	token := r.URL.Query().Get("token")
	user, err := s.magicLinks.Redeem(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredLink) {
			http.Redirect(w, r, "/login?error=expired_link", http.StatusFound)
			return
		}
		if errors.Is(err, auth.ErrInvalidOrExpiredLink) {
			http.Redirect(w, r, "/login?error=invalid_link", http.StatusFound)
			return
		}
		s.writeError(w, err)
		return
	}

	if _, err := s.startSession(r.Context(), w, user); err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditMagicLinkLogin, user.ID, ip, "")
	http.Redirect(w, r, "/", http.StatusFound)
}
