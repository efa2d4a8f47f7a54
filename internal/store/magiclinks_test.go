// ABOUTME: Tests for magic link store methods
// ABOUTME: Covers atomic single-use consumption, expiry, concurrency, and purging

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumeMagicLink(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	link := &MagicLink{
		Token:     NewMagicLinkToken(),
		Email:     "member@example.com",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, s.CreateMagicLink(ctx, link))

	got, err := s.ConsumeMagicLink(ctx, link.Token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "member@example.com", got.Email)
	require.NotNil(t, got.UsedAt)
}

func TestGetMagicLink(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	link := &MagicLink{
		Token:     NewMagicLinkToken(),
		Email:     "member@example.com",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, s.CreateMagicLink(ctx, link))

	// Expired and used rows stay readable until purged
	got, err := s.GetMagicLink(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, "member@example.com", got.Email)
	assert.Nil(t, got.UsedAt)

	_, err = s.GetMagicLink(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMagicLinkDoesNotConsume(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	link := &MagicLink{
		Token:     NewMagicLinkToken(),
		Email:     "member@example.com",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, s.CreateMagicLink(ctx, link))

	_, err := s.GetMagicLink(ctx, link.Token)
	require.NoError(t, err)

	got, err := s.ConsumeMagicLink(ctx, link.Token, time.Now())
	require.NoError(t, err, "a read must not spend the token")
	require.NotNil(t, got.UsedAt)

	after, err := s.GetMagicLink(ctx, link.Token)
	require.NoError(t, err)
	assert.NotNil(t, after.UsedAt)
}

func TestConsumeMagicLink_Missing(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	_, err := s.ConsumeMagicLink(context.Background(), "no-such-token", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeMagicLink_Expired(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	link := &MagicLink{
		Token:     NewMagicLinkToken(),
		Email:     "late@example.com",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, s.CreateMagicLink(ctx, link))

	_, err := s.ConsumeMagicLink(ctx, link.Token, time.Now())
	assert.ErrorIs(t, err, ErrNotFound, "expired token must be indistinguishable from a missing one")
}

func TestConsumeMagicLink_AlreadyUsed(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	link := &MagicLink{
		Token:     NewMagicLinkToken(),
		Email:     "once@example.com",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, s.CreateMagicLink(ctx, link))

	_, err := s.ConsumeMagicLink(ctx, link.Token, time.Now())
	require.NoError(t, err)

	_, err = s.ConsumeMagicLink(ctx, link.Token, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeMagicLink_ConcurrentSingleWinner(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	link := &MagicLink{
		Token:     NewMagicLinkToken(),
		Email:     "race@example.com",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, s.CreateMagicLink(ctx, link))

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ConsumeMagicLink(ctx, link.Token, time.Now())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrNotFound)
			failures++
		}
	}

	assert.Equal(t, 1, successes, "exactly one concurrent redemption must succeed")
	assert.Equal(t, attempts-1, failures)
}

func TestPurgeExpiredMagicLinks(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	old := &MagicLink{
		Token:     NewMagicLinkToken(),
		Email:     "old@example.com",
		ExpiresAt: time.Now().Add(-2 * time.Hour),
	}
	fresh := &MagicLink{
		Token:     NewMagicLinkToken(),
		Email:     "fresh@example.com",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, s.CreateMagicLink(ctx, old))
	require.NoError(t, s.CreateMagicLink(ctx, fresh))

	// Purge tokens expired more than an hour ago
	require.NoError(t, s.PurgeExpiredMagicLinks(ctx, time.Now().Add(-time.Hour)))

	_, err := s.ConsumeMagicLink(ctx, old.Token, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ConsumeMagicLink(ctx, fresh.Token, time.Now())
	assert.NoError(t, err, "unexpired token must survive the purge")
}
