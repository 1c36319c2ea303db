package posts

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halfandhalf/internal/domain/geo"
	domainpost "halfandhalf/internal/domain/post"
	domainuser "halfandhalf/internal/domain/user"
	"halfandhalf/internal/infra/storage/memory"
)

// memArchive is a map-backed ArchiveStore for tests.
type memArchive struct {
	mu      sync.Mutex
	entries map[string]domainpost.Archived
}

func newMemArchive() *memArchive {
	return &memArchive{entries: make(map[string]domainpost.Archived)}
}

func (s *memArchive) key(ownerID, postID string) string { return ownerID + "/" + postID }

func (s *memArchive) Archive(ctx context.Context, a domainpost.Archived) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key(a.OwnerID, a.PostID)
	if _, ok := s.entries[key]; !ok {
		s.entries[key] = a
	}
	return nil
}

func (s *memArchive) List(ctx context.Context, ownerID string) ([]domainpost.Archived, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domainpost.Archived
	for _, a := range s.entries {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memArchive) Get(ctx context.Context, ownerID, postID string) (domainpost.Archived, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.entries[s.key(ownerID, postID)]
	if !ok {
		return domainpost.Archived{}, domainpost.ErrNotFound
	}
	return a, nil
}

func (s *memArchive) Remove(ctx context.Context, ownerID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, s.key(ownerID, postID))
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

func newTestService(t *testing.T) (*Service, *memory.PostRepository, *memory.UserRepository, *cascadeSpy) {
	t.Helper()
	posts := memory.NewPostRepository()
	users := memory.NewUserRepository()
	cascade := &cascadeSpy{}
	svc := &Service{
		Posts:    posts,
		Users:    users,
		Archives: newMemArchive(),
		Cascade:  cascade,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	svc.Now = func() time.Time { return time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local) }
	return svc, posts, users, cascade
}

func mustCreate(t *testing.T, svc *Service, params CreateParams) *domainpost.Post {
	t.Helper()
	p, err := svc.Create(context.Background(), params)
	require.NoError(t, err)
	return p
}

func TestCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	p := mustCreate(t, svc, CreateParams{
		Store: "Costco", Item: "eggs", EndTime: "18:00", OwnerID: "alice",
	})
	require.NotEmpty(t, p.ID)

	t.Run("owner can edit", func(t *testing.T) {
		updated, err := svc.Update(ctx, p.ID, "alice", domainpost.UpdateParams{Item: "60 eggs"})
		require.NoError(t, err)
		assert.Equal(t, "60 eggs", updated.Item)
	})

	t.Run("non-owner cannot edit", func(t *testing.T) {
		_, err := svc.Update(ctx, p.ID, "bob", domainpost.UpdateParams{Item: "hijack"})
		assert.ErrorIs(t, err, domainpost.ErrNotOwner)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, posts, _, cascade := newTestService(t)
	p := mustCreate(t, svc, CreateParams{
		Store: "Costco", Item: "eggs", EndTime: "18:00", OwnerID: "alice",
	})

	t.Run("non-owner rejected", func(t *testing.T) {
		assert.ErrorIs(t, svc.Delete(ctx, p.ID, "bob"), domainpost.ErrNotOwner)
		assert.Empty(t, cascade.postIDs)
	})

	t.Run("owner delete cascades sessions first", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, p.ID, "alice"))
		assert.Equal(t, []string{p.ID}, cascade.postIDs)
		_, err := posts.ByID(ctx, p.ID)
		assert.ErrorIs(t, err, domainpost.ErrNotFound)
	})
}

func TestListVisible(t *testing.T) {
	ctx := context.Background()

	seoul := geo.Point{Lat: 37.5665, Lon: 126.9780}
	nearby := geo.Point{Lat: 37.58, Lon: 126.99}    // ~2km from seoul
	busan := geo.Point{Lat: 35.1796, Lon: 129.0756} // ~325km from seoul

	seed := func(t *testing.T, svc *Service) map[string]string {
		ids := make(map[string]string)
		add := func(name string, params CreateParams) {
			ids[name] = mustCreate(t, svc, params).ID
		}
		add("near", CreateParams{Store: "Costco Yangjae", Item: "eggs", EndTime: "18:00", OwnerID: "bob", Location: &nearby})
		add("far", CreateParams{Store: "Costco Busan", Item: "eggs", EndTime: "18:00", OwnerID: "bob", Location: &busan})
		add("no-coord", CreateParams{Store: "Costco Somewhere", Item: "eggs", EndTime: "18:00", OwnerID: "bob"})
		add("own", CreateParams{Store: "Costco Yangjae", Item: "mine", EndTime: "18:00", OwnerID: "alice", Location: &nearby})
		add("expired", CreateParams{Store: "Costco Yangjae", Item: "late", Date: "2026-08-26", EndTime: "18:00", OwnerID: "bob", Location: &nearby})
		add("emart", CreateParams{Store: "Emart Traders", Item: "rice", EndTime: "18:00", OwnerID: "carol", Location: &nearby})
		return ids
	}

	names := func(ids map[string]string, list []*domainpost.Post) []string {
		byID := make(map[string]string, len(ids))
		for name, id := range ids {
			byID[id] = name
		}
		var out []string
		for _, p := range list {
			out = append(out, byID[p.ID])
		}
		return out
	}

	t.Run("no filters hides only expired and own posts", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		ids := seed(t, svc)
		list, err := svc.ListVisible(ctx, "alice", Filters{})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"near", "far", "no-coord", "emart"}, names(ids, list))
	})

	t.Run("location filter hides far and coordinate-less posts", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		ids := seed(t, svc)
		list, err := svc.ListVisible(ctx, "alice", Filters{Location: &seoul})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"near", "emart"}, names(ids, list))
	})

	t.Run("store filter is a case-insensitive substring", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		ids := seed(t, svc)
		list, err := svc.ListVisible(ctx, "alice", Filters{Store: "costco"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"near", "far", "no-coord"}, names(ids, list))
	})

	t.Run("blacklist hides the author everywhere", func(t *testing.T) {
		svc, _, users, _ := newTestService(t)
		ids := seed(t, svc)

		viewer, err := domainuser.NewAnonymous("alice", time.Now())
		require.NoError(t, err)
		require.NoError(t, viewer.Block("bob", time.Now()))
		require.NoError(t, users.Save(ctx, viewer))

		list, err := svc.ListVisible(ctx, "alice", Filters{})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"emart"}, names(ids, list))
	})

	t.Run("filters intersect", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		ids := seed(t, svc)
		list, err := svc.ListVisible(ctx, "alice", Filters{Store: "costco", Location: &seoul})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"near"}, names(ids, list))
	})

	t.Run("custom radius", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		svc.RadiusKm = 1000
		ids := seed(t, svc)
		list, err := svc.ListVisible(ctx, "alice", Filters{Location: &seoul})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"near", "far", "emart"}, names(ids, list))
	})

	t.Run("unknown viewer gets an empty blacklist", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		seed(t, svc)
		_, err := svc.ListVisible(ctx, "ghost", Filters{})
		assert.NoError(t, err)
	})
}

func TestArchiveAndRepost(t *testing.T) {
	ctx := context.Background()
	svc, posts, _, _ := newTestService(t)

	archived := domainpost.Archived{
		PostID:    "old",
		Store:     "Costco",
		Item:      "eggs",
		OwnerID:   "alice",
		ExpiredAt: svc.now().Add(-time.Hour),
	}
	require.NoError(t, svc.Archives.Archive(ctx, archived))

	t.Run("list", func(t *testing.T) {
		list, err := svc.ListArchive(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "old", list[0].PostID)
	})

	t.Run("repost republishes and clears the entry", func(t *testing.T) {
		p, err := svc.Repost(ctx, "alice", "old")
		require.NoError(t, err)
		assert.NotEqual(t, "old", p.ID)
		assert.Equal(t, "Costco", p.Store)
		assert.False(t, p.IsExpired(svc.now()))

		stored, err := posts.ByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.OwnerID)

		list, err := svc.ListArchive(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("repost of a missing entry fails", func(t *testing.T) {
		_, err := svc.Repost(ctx, "alice", "old")
		assert.ErrorIs(t, err, domainpost.ErrNotFound)
	})
}
