package sweep

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainpost "halfandhalf/internal/domain/post"
	"halfandhalf/internal/infra/storage/memory"
)

type archiveSpy struct {
	mu      sync.Mutex
	entries []domainpost.Archived
	fail    bool
}

func (a *archiveSpy) Archive(ctx context.Context, entry domainpost.Archived) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return errors.New("archive unavailable")
	}
	a.entries = append(a.entries, entry)
	return nil
}

type cascadeSpy struct {
	mu      sync.Mutex
	postIDs []string
}

func (c *cascadeSpy) DeleteSessionsForPost(ctx context.Context, postID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postIDs = append(c.postIDs, postID)
	return nil
}

func newSweeper(t *testing.T) (*Sweeper, *memory.PostRepository, *archiveSpy, *cascadeSpy) {
	t.Helper()
	posts := memory.NewPostRepository()
	archive := &archiveSpy{}
	cascade := &cascadeSpy{}
	s := &Sweeper{
		Posts:    posts,
		Archives: archive,
		Cascade:  cascade,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local) },
	}
	return s, posts, archive, cascade
}

func seedPost(t *testing.T, posts *memory.PostRepository, id, date, endTime string) *domainpost.Post {
	t.Helper()
	p, err := domainpost.New(domainpost.CreateParams{
		ID: id, Store: "Costco", Item: "eggs", Date: date, EndTime: endTime, OwnerID: "alice",
	})
	require.NoError(t, err)
	require.NoError(t, posts.Save(context.Background(), p))
	return p
}

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("expired posts are archived, cascaded and removed", func(t *testing.T) {
		s, posts, archive, cascade := newSweeper(t)
		seedPost(t, posts, "dead", "2026-08-26", "18:00")
		seedPost(t, posts, "alive", "2026-08-27", "18:00")

		require.NoError(t, s.SweepOnce(ctx))

		_, err := posts.ByID(ctx, "dead")
		assert.ErrorIs(t, err, domainpost.ErrNotFound)
		_, err = posts.ByID(ctx, "alive")
		assert.NoError(t, err)

		assert.Equal(t, []string{"dead"}, cascade.postIDs)
		require.Len(t, archive.entries, 1)
		assert.Equal(t, "dead", archive.entries[0].PostID)
		assert.Equal(t, "alice", archive.entries[0].OwnerID)
		assert.Equal(t, s.Now(), archive.entries[0].ExpiredAt)
	})

	t.Run("nothing expired is a quiet pass", func(t *testing.T) {
		s, posts, archive, cascade := newSweeper(t)
		seedPost(t, posts, "alive", "2026-08-27", "18:00")

		require.NoError(t, s.SweepOnce(ctx))
		assert.Empty(t, archive.entries)
		assert.Empty(t, cascade.postIDs)
	})

	t.Run("archive failure keeps the post for the next pass", func(t *testing.T) {
		s, posts, archive, cascade := newSweeper(t)
		seedPost(t, posts, "dead", "2026-08-26", "18:00")
		archive.fail = true

		require.NoError(t, s.SweepOnce(ctx))
		_, err := posts.ByID(ctx, "dead")
		assert.NoError(t, err, "post must survive a failed expiry")
		assert.Empty(t, cascade.postIDs, "cascade must not run before archival")

		archive.fail = false
		require.NoError(t, s.SweepOnce(ctx))
		_, err = posts.ByID(ctx, "dead")
		assert.ErrorIs(t, err, domainpost.ErrNotFound)
	})
}

func TestRun(t *testing.T) {
	t.Run("requires dependencies", func(t *testing.T) {
		s := &Sweeper{}
		assert.ErrorIs(t, s.Run(context.Background()), ErrNotConfigured)
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		s, posts, _, _ := newSweeper(t)
		seedPost(t, posts, "dead", "2026-08-26", "18:00")
		s.Interval = time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := s.Run(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		_, byIDErr := posts.ByID(context.Background(), "dead")
		assert.ErrorIs(t, byIDErr, domainpost.ErrNotFound)
	})
}
