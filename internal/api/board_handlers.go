// ABOUTME: Bulletin board endpoints: posts and categories
// ABOUTME: New posts fan out notification email to opted-in members in the background

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kredsnet/medlemsportal/internal/auth"
	"github.com/kredsnet/medlemsportal/internal/mail"
	"github.com/kredsnet/medlemsportal/internal/store"
)

type boardPostJSON struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	IsPinned        bool      `json:"isPinned"`
	CommentsEnabled bool      `json:"commentsEnabled"`
	AuthorID        string    `json:"authorId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func boardPostResponse(p *store.BoardPost) boardPostJSON {
	return boardPostJSON{
		ID:              p.ID,
		Title:           p.Title,
		Content:         p.Content,
		IsPinned:        p.IsPinned,
		CommentsEnabled: p.CommentsEnabled,
		AuthorID:        p.AuthorID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (s *Server) handleBoardList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	posts, err := s.store.ListBoardPosts(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]boardPostJSON, len(posts))
	for i, p := range posts {
		out[i] = boardPostResponse(p)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBoardGet(w http.ResponseWriter, r *http.Request) {
	post, err := s.store.GetBoardPost(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, boardPostResponse(post))
}

type boardPostRequest struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	IsPinned        bool   `json:"isPinned"`
	CommentsEnabled bool   `json:"commentsEnabled"`
}

func (s *Server) handleBoardCreate(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	var req boardPostRequest
	if err := decodeJSON(r, &req); err != nil || req.Title == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	post := &store.BoardPost{
		Title:           req.Title,
		Content:         req.Content,
		IsPinned:        req.IsPinned,
		CommentsEnabled: req.CommentsEnabled,
		AuthorID:        user.ID,
	}
	if err := s.store.CreateBoardPost(r.Context(), post); err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditPostCreated, user.ID, clientIP(r), post.Title)
	go s.notifyMembers(post)

	s.writeJSON(w, http.StatusCreated, boardPostResponse(post))
}

// notifyMembers emails every active member who has notifications enabled
// about a new post. Runs detached from the request; delivery failures are
// audited per recipient but never surface to the author.
func (s *Server) notifyMembers(post *store.BoardPost) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Error("listing members for notification failed", "error", err)
		return
	}

	subject := "New post: " + post.Title
	body := mail.PostNotificationBody(post.Title, post.Content, fmt.Sprintf("%s/board/%s", s.baseURL, post.ID))

	for _, u := range users {
		if !u.IsActive || !u.NotificationsEnabled {
			continue
		}
		if err := s.mailer.Send(ctx, u.Email, subject, body); err != nil {
			s.recorder.RecordUser(store.AuditEmailFailed, u.ID, "", post.ID)
			continue
		}
		s.recorder.RecordUser(store.AuditEmailSent, u.ID, "", post.ID)
	}
}

func (s *Server) handleBoardUpdate(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	var req boardPostRequest
	if err := decodeJSON(r, &req); err != nil || req.Title == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	post, err := s.store.GetBoardPost(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	post.Title = req.Title
	post.Content = req.Content
	post.IsPinned = req.IsPinned
	post.CommentsEnabled = req.CommentsEnabled
	if err := s.store.UpdateBoardPost(r.Context(), post); err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditPostUpdated, user.ID, clientIP(r), post.ID)
	s.writeJSON(w, http.StatusOK, boardPostResponse(post))
}

func (s *Server) handleBoardDelete(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())
	id := r.PathValue("id")

	if err := s.store.DeleteBoardPost(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	s.recorder.RecordUser(store.AuditPostDeleted, user.ID, clientIP(r), id)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type categoryJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]categoryJSON, len(cats))
	for i, c := range cats {
		out[i] = categoryJSON{ID: c.ID, Name: c.Name, Color: c.Color}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	cat := &store.Category{Name: req.Name, Color: req.Color}
	if err := s.store.CreateCategory(r.Context(), cat); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, categoryJSON{ID: cat.ID, Name: cat.Name, Color: cat.Color})
}
