package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halfandhalf/internal/domain/post"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(postID, ownerID string, expiredAt time.Time) post.Archived {
	return post.Archived{
		PostID:    postID,
		Store:     "Costco",
		Item:      "eggs",
		EndTime:   "18:00",
		OwnerID:   ownerID,
		ExpiredAt: expiredAt,
	}
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	t.Run("round trip", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Archive(ctx, entry("p1", "alice", now)))

		got, err := s.Get(ctx, "alice", "p1")
		require.NoError(t, err)
		assert.Equal(t, "Costco", got.Store)
		assert.Equal(t, "eggs", got.Item)
		assert.True(t, got.ExpiredAt.Equal(now))
	})

	t.Run("archiving twice keeps one row", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Archive(ctx, entry("p1", "alice", now)))
		require.NoError(t, s.Archive(ctx, entry("p1", "alice", now.Add(time.Hour))))

		list, err := s.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].ExpiredAt.Equal(now), "first archival wins")
	})

	t.Run("entries are per owner", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Archive(ctx, entry("p1", "alice", now)))
		require.NoError(t, s.Archive(ctx, entry("p2", "bob", now)))

		list, err := s.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "p1", list[0].PostID)

		_, err = s.Get(ctx, "alice", "p2")
		assert.ErrorIs(t, err, post.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	s := newStore(t)

	require.NoError(t, s.Archive(ctx, entry("old", "alice", now.Add(-2*time.Hour))))
	require.NoError(t, s.Archive(ctx, entry("new", "alice", now)))
	require.NoError(t, s.Archive(ctx, entry("mid", "alice", now.Add(-time.Hour))))

	list, err := s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{list[0].PostID, list[1].PostID, list[2].PostID})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	s := newStore(t)

	require.NoError(t, s.Archive(ctx, entry("p1", "alice", now)))
	require.NoError(t, s.Remove(ctx, "alice", "p1"))

	_, err := s.Get(ctx, "alice", "p1")
	assert.ErrorIs(t, err, post.ErrNotFound)

	assert.NoError(t, s.Remove(ctx, "alice", "p1"), "removing twice is a no-op")
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.migrate())
}
