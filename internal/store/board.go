// ABOUTME: Board post and category store methods for the bulletin board
// ABOUTME: Posts are the role-gated business surface consuming the auth core

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BoardPost represents a bulletin board post. Content is markdown.
type BoardPost struct {
	ID              string
	Title           string
	Content         string
	IsPinned        bool
	CommentsEnabled bool
	AuthorID        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Category represents a document/post category with a display color.
type Category struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
}

// BoardStore defines bulletin board persistence.
type BoardStore interface {
	CreateBoardPost(ctx context.Context, post *BoardPost) error
	GetBoardPost(ctx context.Context, id string) (*BoardPost, error)
	UpdateBoardPost(ctx context.Context, post *BoardPost) error
	DeleteBoardPost(ctx context.Context, id string) error
	ListBoardPosts(ctx context.Context, limit int) ([]*BoardPost, error)
	CreateCategory(ctx context.Context, cat *Category) error
	ListCategories(ctx context.Context) ([]*Category, error)
}

// CreateBoardPost creates a new post. Generates ID and timestamps if not set.
func (s *SQLiteStore) CreateBoardPost(ctx context.Context, post *BoardPost) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = now
	}

	query := `
		INSERT INTO board_posts (id, title, content, is_pinned, comments_enabled, author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		post.ID,
		post.Title,
		post.Content,
		boolToInt(post.IsPinned),
		boolToInt(post.CommentsEnabled),
		post.AuthorID,
		post.CreatedAt.Format(time.RFC3339),
		post.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting board post: %w", err)
	}

	s.logger.Debug("created board post", "id", post.ID, "title", post.Title)
	return nil
}

const boardColumns = `id, title, content, is_pinned, comments_enabled, author_id, created_at, updated_at`

// scanBoardPost scans a row into a BoardPost.
func scanBoardPost(scanner interface{ Scan(dest ...any) error }) (*BoardPost, error) {
	var post BoardPost
	var pinned, comments int
	var createdAt, updatedAt string

	if err := scanner.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&pinned,
		&comments,
		&post.AuthorID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	post.IsPinned = pinned != 0
	post.CommentsEnabled = comments != 0

	var err error
	post.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	post.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &post, nil
}

// GetBoardPost retrieves a post by ID.
// Returns ErrNotFound if the post doesn't exist.
func (s *SQLiteStore) GetBoardPost(ctx context.Context, id string) (*BoardPost, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM board_posts WHERE id = ?`, id)
	post, err := scanBoardPost(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying board post: %w", err)
	}
	return post, nil
}

// UpdateBoardPost updates a post's mutable fields.
// Returns ErrNotFound if the post doesn't exist.
func (s *SQLiteStore) UpdateBoardPost(ctx context.Context, post *BoardPost) error {
	post.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE board_posts SET title = ?, content = ?, is_pinned = ?, comments_enabled = ?, updated_at = ? WHERE id = ?`,
		post.Title,
		post.Content,
		boolToInt(post.IsPinned),
		boolToInt(post.CommentsEnabled),
		post.UpdatedAt.Format(time.RFC3339),
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("updating board post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated board post", "id", post.ID)
	return nil
}

// DeleteBoardPost removes a post.
// Returns ErrNotFound if the post doesn't exist.
func (s *SQLiteStore) DeleteBoardPost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM board_posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting board post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted board post", "id", id)
	return nil
}

// ListBoardPosts returns posts, pinned first then newest first.
// If limit is 0 or negative, all posts are returned.
func (s *SQLiteStore) ListBoardPosts(ctx context.Context, limit int) ([]*BoardPost, error) {
	query := `SELECT ` + boardColumns + ` FROM board_posts ORDER BY is_pinned DESC, created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing board posts: %w", err)
	}
	defer rows.Close()

	var posts []*BoardPost
	for rows.Next() {
		post, err := scanBoardPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning board post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating board posts: %w", err)
	}

	if posts == nil {
		posts = []*BoardPost{}
	}
	return posts, nil
}

// CreateCategory creates a new category. Generates ID and CreatedAt if not set.
func (s *SQLiteStore) CreateCategory(ctx context.Context, cat *Category) error {
	if cat.ID == "" {
		cat.ID = uuid.New().String()
	}
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, color, created_at) VALUES (?, ?, ?, ?)`,
		cat.ID, cat.Name, cat.Color, cat.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}

	s.logger.Debug("created category", "id", cat.ID, "name", cat.Name)
	return nil
}

// ListCategories returns all categories ordered by name.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	cats := []*Category{}
	for rows.Next() {
		var cat Category
		var createdAt string
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Color, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		cat.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		cats = append(cats, &cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return cats, nil
}
