// ABOUTME: Session cookie handling and auth middleware
// ABOUTME: Every protected route reads the auth_token cookie, no server-side sessions

package api

import (
	"net/http"

	"github.com/kredsnet/medlemsportal/internal/auth"
)

// sessionCookieName is the cookie carrying the session JWT.
const sessionCookieName = "auth_token"

// setSessionCookie issues the session cookie. Secure is only set in
// production so local development over plain HTTP still works.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.issuer.Lifetime().Seconds()),
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie immediately.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionUser resolves the request's session cookie to a user, or nil when
// there is no valid session. An invalid token is treated the same as none.
func (s *Server) sessionUser(r *http.Request) *auth.User {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	claims, err := s.issuer.Verify(cookie.Value)
	if err != nil {
		return nil
	}
	return auth.UserFromClaims(claims)
}

// requireAuth wraps a handler so it only runs with a valid session, with
// the user attached to the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := s.sessionUser(r)
		if user == nil {
			s.writeError(w, auth.ErrUnauthenticated)
			return
		}
		next(w, r.WithContext(auth.WithUser(r.Context(), user)))
	}
}

// requireRole wraps a handler so it only runs when the session user holds
// one of the roles. No roles means admin-only; admin passes any check.
func (s *Server) requireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := s.sessionUser(r)
		if user == nil {
			s.writeError(w, auth.ErrUnauthenticated)
			return
		}
		ctx := auth.WithUser(r.Context(), user)
		if _, err := auth.RequireRole(ctx, roles...); err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r.WithContext(ctx))
	}
}
