// ABOUTME: Admin endpoints: user management, role grants, audit inspection
// ABOUTME: Also the member directory visible to every logged-in member

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kredsnet/medlemsportal/internal/auth"
	"github.com/kredsnet/medlemsportal/internal/store"
)

// memberJSON is the directory view of a user, without admin-only fields.
type memberJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

func (s *Server) handleMemberList(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := []memberJSON{}
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		out = append(out, memberJSON{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// adminUserJSON is the admin view of a user, including account state.
type adminUserJSON struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	Name                 string    `json:"name"`
	IsActive             bool      `json:"isActive"`
	NotificationsEnabled bool      `json:"notificationsEnabled"`
	Phone                string    `json:"phone,omitempty"`
	Address              string    `json:"address,omitempty"`
	Roles                []string  `json:"roles"`
	HasPassword          bool      `json:"hasPassword"`
	CreatedAt            time.Time `json:"createdAt"`
}

func (s *Server) adminUserResponse(r *http.Request, u *store.User) (adminUserJSON, error) {
	roles, err := s.store.ListUserRoles(r.Context(), u.ID)
	if err != nil {
		return adminUserJSON{}, err
	}
	return adminUserJSON{
		ID:                   u.ID,
		Email:                u.Email,
		Name:                 u.Name,
		IsActive:             u.IsActive,
		NotificationsEnabled: u.NotificationsEnabled,
		Phone:                u.Phone,
		Address:              u.Address,
		Roles:                roles,
		HasPassword:          u.PasswordHash != "",
		CreatedAt:            u.CreatedAt,
	}, nil
}

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]adminUserJSON, 0, len(users))
	for _, u := range users {
		ju, err := s.adminUserResponse(r, u)
		if err != nil {
			s.writeError(w, err)
			return
		}
		out = append(out, ju)
	}
	s.writeJSON(w, http.StatusOK, out)
}

type adminUserRequest struct {
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Password *string `json:"password"`
	IsActive *bool   `json:"isActive"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

func (s *Server) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	actor := auth.FromContext(r.Context())

	var req adminUserRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	user := &store.User{
		Email:                req.Email,
		Name:                 req.Name,
		IsActive:             true,
		NotificationsEnabled: true,
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.writeError(w, err)
			return
		}
		user.PasswordHash = hash
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Address != nil {
		user.Address = *req.Address
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditUserCreated, actor.ID, clientIP(r), user.ID)
	resp, err := s.adminUserResponse(r, user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	actor := auth.FromContext(r.Context())

	var req adminUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	user, err := s.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.writeError(w, err)
			return
		}
		user.PasswordHash = hash
	}

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditUserUpdated, actor.ID, clientIP(r), user.ID)
	resp, err := s.adminUserResponse(r, user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	actor := auth.FromContext(r.Context())
	id := r.PathValue("id")

	if actor.IsSelf(id) {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Cannot delete your own account"})
		return
	}

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditUserDeleted, actor.ID, clientIP(r), id)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type roleJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleRoleList(w http.ResponseWriter, r *http.Request) {
	roles, err := s.store.ListRoles(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]roleJSON, len(roles))
	for i, role := range roles {
		out[i] = roleJSON{ID: role.ID, Name: role.Name, Description: role.Description}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRoleGrant(w http.ResponseWriter, r *http.Request) {
	actor := auth.FromContext(r.Context())
	userID := r.PathValue("id")

	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Role == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if _, err := s.store.GetUser(r.Context(), userID); err != nil {
		s.writeError(w, err)
		return
	}
	role, err := s.store.GetRoleByName(r.Context(), req.Role)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.AssignRole(r.Context(), userID, role.ID); err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditUserUpdated, actor.ID, clientIP(r), "granted "+role.Name+" to "+userID)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoleRevoke(w http.ResponseWriter, r *http.Request) {
	actor := auth.FromContext(r.Context())
	userID := r.PathValue("id")

	role, err := s.store.GetRoleByName(r.Context(), r.PathValue("role"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.UnassignRole(r.Context(), userID, role.ID); err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditUserUpdated, actor.ID, clientIP(r), "revoked "+role.Name+" from "+userID)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type auditEntryJSON struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"userId"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	filter := store.AuditFilter{}
	q := r.URL.Query()

	if v := q.Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := q.Get("action"); v != "" {
		a := store.AuditAction(v)
		filter.Action = &a
	}
	if v := q.Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid since timestamp"})
			return
		}
		filter.Since = &ts
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	entries, err := s.store.ListAudit(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]auditEntryJSON, len(entries))
	for i, e := range entries {
		out[i] = auditEntryJSON{
			ID:        e.ID,
			UserID:    e.UserID,
			Action:    string(e.Action),
			Details:   e.Details,
			IPAddress: e.IPAddress,
			CreatedAt: e.CreatedAt,
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}
