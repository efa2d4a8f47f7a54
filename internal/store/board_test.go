// ABOUTME: Tests for board post and category persistence
// ABOUTME: Covers CRUD, pinned-first ordering, and category listing

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestAuthor creates a user to satisfy the author foreign key.
func createTestAuthor(t *testing.T, s *SQLiteStore) string {
	t.Helper()
	u := &User{Email: "author@example.com", Name: "Author", IsActive: true}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u.ID
}

func TestBoardPostCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()
	authorID := createTestAuthor(t, s)

	post := &BoardPost{Title: "Dugnad", Content: "Vi møtes kl 10.", AuthorID: authorID}
	require.NoError(t, s.CreateBoardPost(ctx, post))
	require.NotEmpty(t, post.ID)

	got, err := s.GetBoardPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dugnad", got.Title)
	assert.False(t, got.IsPinned)

	got.Title = "Dugnad (flyttet)"
	got.IsPinned = true
	require.NoError(t, s.UpdateBoardPost(ctx, got))

	again, err := s.GetBoardPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dugnad (flyttet)", again.Title)
	assert.True(t, again.IsPinned)

	require.NoError(t, s.DeleteBoardPost(ctx, post.ID))
	_, err = s.GetBoardPost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteBoardPost(ctx, post.ID), ErrNotFound)
}

func TestListBoardPostsOrdering(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()
	authorID := createTestAuthor(t, s)

	old := &BoardPost{Title: "old", AuthorID: authorID, CreatedAt: time.Now().Add(-2 * time.Hour).UTC()}
	newer := &BoardPost{Title: "newer", AuthorID: authorID, CreatedAt: time.Now().Add(-time.Hour).UTC()}
	pinned := &BoardPost{Title: "pinned", AuthorID: authorID, IsPinned: true, CreatedAt: time.Now().Add(-3 * time.Hour).UTC()}
	for _, p := range []*BoardPost{old, newer, pinned} {
		require.NoError(t, s.CreateBoardPost(ctx, p))
	}

	posts, err := s.ListBoardPosts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "pinned", posts[0].Title, "pinned posts come first")
	assert.Equal(t, "newer", posts[1].Title)
	assert.Equal(t, "old", posts[2].Title)

	limited, err := s.ListBoardPosts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCategories(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	empty, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.CreateCategory(ctx, &Category{Name: "Referater", Color: "#336699"}))
	require.NoError(t, s.CreateCategory(ctx, &Category{Name: "Arrangement", Color: "#993366"}))

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Arrangement", cats[0].Name, "categories are ordered by name")
	assert.Equal(t, "Referater", cats[1].Name)
}
