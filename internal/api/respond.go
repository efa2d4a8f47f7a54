// ABOUTME: JSON response and error mapping helpers for the API
// ABOUTME: Maps the auth error taxonomy onto HTTP status codes

package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/kredsnet/medlemsportal/internal/auth"
	"github.com/kredsnet/medlemsportal/internal/challenge"
	"github.com/kredsnet/medlemsportal/internal/store"
)

// writeJSON writes v as a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to encode response", "error", err)
	}
}

// writeError maps an error to a status code and a stable JSON shape.
// Internal details never leak; unknown errors become a plain 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrAccountDisabled):
		status, message = http.StatusForbidden, "Account is disabled"
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidSession):
		status, message = http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, auth.ErrForbidden):
		status, message = http.StatusForbidden, "Forbidden"
	case errors.Is(err, auth.ErrChallengeExpired):
		status, message = http.StatusBadRequest, "Challenge expired, restart the ceremony"
	case errors.Is(err, auth.ErrVerificationFailed):
		status, message = http.StatusUnauthorized, "Verification failed"
	case errors.Is(err, auth.ErrInvalidOrExpiredLink):
		status, message = http.StatusBadRequest, "Invalid or expired link"
	case errors.Is(err, auth.ErrRateLimited):
		status, message = http.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, challenge.ErrAtCapacity):
		status, message = http.StatusServiceUnavailable, "Try again shortly"
	case errors.Is(err, store.ErrNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrDuplicateEmail):
		status, message = http.StatusConflict, "Email already registered"
	case errors.Is(err, store.ErrDuplicateCredential):
		status, message = http.StatusConflict, "Credential already registered"
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a request body into v, capping it at 1 MiB.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
}

// clientIP extracts the caller's IP, trusting X-Forwarded-For from the
// reverse proxy in front of the portal.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
