package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/pkg/requestcontext"
	"vitrine/pkg/sentinel"
)

func testResolver(store Store) *Resolver {
	return NewResolver(store, 24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestResolveMintsTokenForUnknownContext(t *testing.T) {
	r := testResolver(NewInMemoryStore())
	ctx := context.Background()

	tok := r.Resolve(ctx, "")
	require.NotEmpty(t, tok.ID)
	assert.Equal(t, 24*time.Hour, tok.ExpiresAt.Sub(tok.CreatedAt))
}

func TestResolveIsIdempotentWithinWindow(t *testing.T) {
	r := testResolver(NewInMemoryStore())
	ctx := context.Background()

	first := r.Resolve(ctx, "")
	second := r.Resolve(ctx, first.ID)
	assert.Equal(t, first.ID, second.ID, "same token inside the expiry window")
	assert.Equal(t, first.ExpiresAt, second.ExpiresAt)
}

func TestResolveRotatesExpiredToken(t *testing.T) {
	store := NewInMemoryStore()
	r := testResolver(store)

	start := time.Now()
	ctx := requestcontext.WithTime(context.Background(), start)
	first := r.Resolve(ctx, "")

	// One second past expiry: old token is discarded, a fresh one minted.
	later := requestcontext.WithTime(context.Background(), start.Add(24*time.Hour+time.Second))
	second := r.Resolve(later, first.ID)

	assert.NotEqual(t, first.ID, second.ID)
	_, err := store.Get(context.Background(), first.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "expired token removed from store")
}

func TestRotationHookFiresOnExpiryOnly(t *testing.T) {
	r := testResolver(NewInMemoryStore())

	var gotOld, gotNew string
	r.SetRotationHook(func(ctx context.Context, oldID, newID string) {
		gotOld, gotNew = oldID, newID
	})

	start := time.Now()
	ctx := requestcontext.WithTime(context.Background(), start)
	first := r.Resolve(ctx, "")
	require.Empty(t, gotOld, "minting for a fresh context is not a rotation")

	later := requestcontext.WithTime(context.Background(), start.Add(24*time.Hour+time.Second))
	second := r.Resolve(later, first.ID)

	assert.Equal(t, first.ID, gotOld)
	assert.Equal(t, second.ID, gotNew)
}

func TestResolveTokenIDsAreUnpredictable(t *testing.T) {
	r := testResolver(NewInMemoryStore())
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := r.Resolve(ctx, "")
		require.False(t, seen[tok.ID], "token IDs must not repeat")
		require.GreaterOrEqual(t, len(tok.ID), 20)
		seen[tok.ID] = true
	}
}

type failingStore struct{ err error }

func (s *failingStore) Get(ctx context.Context, id string) (Token, error) { return Token{}, s.err }
func (s *failingStore) Put(ctx context.Context, token Token) error        { return s.err }
func (s *failingStore) Delete(ctx context.Context, id string) error       { return s.err }

func TestResolveFallsBackWhenStoreUnavailable(t *testing.T) {
	r := testResolver(&failingStore{err: errors.New("redis down")})
	ctx := context.Background()

	tok := r.Resolve(ctx, "")
	require.NotEmpty(t, tok.ID, "caller never sees the storage failure")

	again := r.Resolve(ctx, tok.ID)
	assert.Equal(t, tok.ID, again.ID, "in-memory fallback stays stable for the process lifetime")
}

func TestInMemoryStoreReap(t *testing.T) {
	store := NewInMemoryStore()
	now := time.Now()

	require.NoError(t, store.Put(context.Background(), Token{ID: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Put(context.Background(), Token{ID: "dead", CreatedAt: now.Add(-25 * time.Hour), ExpiresAt: now.Add(-time.Hour)}))

	assert.Equal(t, 1, store.Reap(now))
	_, err := store.Get(context.Background(), "live")
	assert.NoError(t, err)
}
