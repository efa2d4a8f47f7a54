// ABOUTME: Passkey endpoints: registration and login ceremonies, listing, deletion
// ABOUTME: Login options are rate limited since each one parks a server-side challenge

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kredsnet/medlemsportal/internal/auth"
	"github.com/kredsnet/medlemsportal/internal/store"
)

func (s *Server) handlePasskeyRegisterOptions(w http.ResponseWriter, r *http.Request) {
	sessionUser := auth.FromContext(r.Context())

	user, err := s.store.GetUser(r.Context(), sessionUser.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	options, err := s.passkeys.BeginRegistration(r.Context(), user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, options)
}

func (s *Server) handlePasskeyRegister(w http.ResponseWriter, r *http.Request) {
	sessionUser := auth.FromContext(r.Context())

	var req struct {
		Response   json.RawMessage `json:"response"`
		DeviceName string          `json:"deviceName"`
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

	cred, err := s.passkeys.FinishRegistration(r.Context(), user, bytes.NewReader(req.Response), req.DeviceName)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditPasskeyRegistered, user.ID, clientIP(r), cred.DeviceName)
	s.writeJSON(w, http.StatusOK, passkeyResponse(cred))
}

func (s *Server) handlePasskeyLoginOptions(w http.ResponseWriter, r *http.Request) {
	if !s.passkeyLimiter.Allow(clientIP(r)) {
		s.writeError(w, auth.ErrRateLimited)
		return
	}

	options, err := s.passkeys.BeginLogin(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, options)
}

func (s *Server) handlePasskeyLogin(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	user, err := s.passkeys.FinishLogin(r.Context(), http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrVerificationFailed) {
			s.recorder.RecordAnonymous(store.AuditLoginFailed, ip, "passkey")
		}
		s.writeError(w, err)
		return
	}

	resp, err := s.startSession(r.Context(), w, user)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditPasskeyLogin, user.ID, ip, "")
	s.writeJSON(w, http.StatusOK, resp)
}

// passkeyJSON is the JSON shape of a registered passkey. Key material is
// never exposed.
type passkeyJSON struct {
	ID         string    `json:"id"`
	DeviceName string    `json:"deviceName"`
	CreatedAt  time.Time `json:"createdAt"`
}

func passkeyResponse(c *store.PasskeyCredential) passkeyJSON {
	return passkeyJSON{ID: c.ID, DeviceName: c.DeviceName, CreatedAt: c.CreatedAt}
}

func (s *Server) handlePasskeyList(w http.ResponseWriter, r *http.Request) {
	sessionUser := auth.FromContext(r.Context())

	creds, err := s.store.ListPasskeysByUser(r.Context(), sessionUser.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]passkeyJSON, len(creds))
	for i, c := range creds {
		out[i] = passkeyResponse(c)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePasskeyDelete(w http.ResponseWriter, r *http.Request) {
	sessionUser := auth.FromContext(r.Context())
	id := r.PathValue("id")

	cred, err := s.store.GetPasskey(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Members manage only their own passkeys; admin can clean up any
	if !sessionUser.IsSelf(cred.UserID) && !sessionUser.IsAdmin() {
		s.writeError(w, auth.ErrForbidden)
		return
	}

	if err := s.store.DeletePasskey(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditPasskeyDeleted, sessionUser.ID, clientIP(r), cred.DeviceName)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
