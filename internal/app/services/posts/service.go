package posts

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"halfandhalf/internal/app/events"
	"halfandhalf/internal/domain/geo"
	domainpost "halfandhalf/internal/domain/post"
	domainuser "halfandhalf/internal/domain/user"
)

// DefaultRadiusKm bounds the nearby filter when none is configured.
const DefaultRadiusKm = 30.0

// Cascader removes a post's dependent chat sessions; satisfied by the
// chat service.
type Cascader interface {
	DeleteSessionsForPost(ctx context.Context, postID string) error
}

// ArchiveStore keeps expired posts for their owners; satisfied by the
// sqlite store.
type ArchiveStore interface {
	Archive(ctx context.Context, a domainpost.Archived) error
	List(ctx context.Context, ownerID string) ([]domainpost.Archived, error)
	Get(ctx context.Context, ownerID, postID string) (domainpost.Archived, error)
	Remove(ctx context.Context, ownerID, postID string) error
}

// Service owns the post lifecycle: create, browse with filters, owner
// edits, and deletion with session cascade.
type Service struct {
	Posts    domainpost.Repository
	Users    domainuser.Repository
	Archives ArchiveStore
	Cascade  Cascader
	Events   events.Publisher
	Logger   *slog.Logger
	RadiusKm float64

	// Now is overridable in tests; zero value means time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) radius() float64 {
	if s.RadiusKm > 0 {
		return s.RadiusKm
	}
	return DefaultRadiusKm
}

func (s *Service) publisher() events.Publisher {
	if s.Events != nil {
		return s.Events
	}
	return events.Nop{}
}

// CreateParams mirrors the owner-supplied post fields.
type CreateParams struct {
	Store      string
	Item       string
	Date       string
	StartTime  string
	EndTime    string
	OwnerID    string
	OwnerEmail string
	Location   *geo.Point
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*domainpost.Post, error) {
	p, err := domainpost.New(domainpost.CreateParams{
		ID:         uuid.NewString(),
		Store:      params.Store,
		Item:       params.Item,
		Date:       params.Date,
		StartTime:  params.StartTime,
		EndTime:    params.EndTime,
		OwnerID:    params.OwnerID,
		OwnerEmail: params.OwnerEmail,
		Location:   params.Location,
		Now:        s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Posts.Save(ctx, p); err != nil {
		return nil, err
	}
	if err := s.publisher().Publish(ctx, events.PostCreated, p.ID, map[string]any{
		"post_id": p.ID, "owner_id": p.OwnerID, "store": p.Store,
	}); err != nil && s.Logger != nil {
		s.Logger.Warn("post event publish failed", "post_id", p.ID, "error", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domainpost.Post, error) {
	return s.Posts.ByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id, userID string, params domainpost.UpdateParams) (*domainpost.Post, error) {
	p, err := s.Posts.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(userID) {
		return nil, domainpost.ErrNotOwner
	}
	if err := p.Apply(params); err != nil {
		return nil, err
	}
	if err := s.Posts.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes an owned post, cascading its chat sessions first so no
// session outlives its post.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	p, err := s.Posts.ByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.OwnedBy(userID) {
		return domainpost.ErrNotOwner
	}
	if s.Cascade != nil {
		if err := s.Cascade.DeleteSessionsForPost(ctx, id); err != nil {
			return err
		}
	}
	if err := s.Posts.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.publisher().Publish(ctx, events.PostDeleted, id, map[string]any{
		"post_id": id, "owner_id": userID,
	}); err != nil && s.Logger != nil {
		s.Logger.Warn("post event publish failed", "post_id", id, "error", err)
	}
	return nil
}

func (s *Service) ListMine(ctx context.Context, ownerID string) ([]*domainpost.Post, error) {
	mine, err := s.Posts.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(mine)
	return mine, nil
}

// Filters narrow the visible listing.
type Filters struct {
	// Store is a case-insensitive substring match on the store name.
	Store string
	// Location is the viewer's coordinate; nil skips distance
	// filtering entirely.
	Location *geo.Point
}

// ListVisible applies the full filter pipeline: unexpired, not owned by
// the viewer, within radius of the viewer's coordinate (posts without a
// coordinate are hidden when one is expected), store substring, and not
// authored by a blacklisted user. Filters intersect; their order does
// not change the result.
func (s *Service) ListVisible(ctx context.Context, viewerID string, f Filters) ([]*domainpost.Post, error) {
	all, err := s.Posts.All(ctx)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blacklist(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	needle := strings.ToLower(strings.TrimSpace(f.Store))
	visible := make([]*domainpost.Post, 0, len(all))
	for _, p := range all {
		if p.IsExpired(now) {
			continue
		}
		if p.OwnedBy(viewerID) {
			continue
		}
		if f.Location != nil {
			if p.Location == nil {
				continue
			}
			if geo.DistanceBetween(*f.Location, *p.Location) > s.radius() {
				continue
			}
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Store), needle) {
			continue
		}
		if _, hidden := blocked[p.OwnerID]; hidden {
			continue
		}
		visible = append(visible, p)
	}
	sortNewestFirst(visible)
	return visible, nil
}

func (s *Service) blacklist(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	if s.Users == nil || viewerID == "" {
		return nil, nil
	}
	u, err := s.Users.ByID(ctx, domainuser.ID(viewerID))
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	blocked := make(map[string]struct{}, len(u.BlockedUserIDs))
	for _, id := range u.BlockedUserIDs {
		blocked[id] = struct{}{}
	}
	return blocked, nil
}

// ListArchive returns the caller's archived posts, newest expiry first.
func (s *Service) ListArchive(ctx context.Context, ownerID string) ([]domainpost.Archived, error) {
	return s.Archives.List(ctx, ownerID)
}

// RemoveArchive deletes one archive entry; absent entries are no-ops.
func (s *Service) RemoveArchive(ctx context.Context, ownerID, postID string) error {
	return s.Archives.Remove(ctx, ownerID, postID)
}

// Repost republishes an archived post with a fresh availability window
// of now through now+30min, then drops the archive entry.
func (s *Service) Repost(ctx context.Context, ownerID, postID string) (*domainpost.Post, error) {
	archived, err := s.Archives.Get(ctx, ownerID, postID)
	if err != nil {
		return nil, err
	}
	p, err := domainpost.New(archived.RepostDraft(uuid.NewString(), s.now()))
	if err != nil {
		return nil, err
	}
	if err := s.Posts.Save(ctx, p); err != nil {
		return nil, err
	}
	if err := s.Archives.Remove(ctx, ownerID, postID); err != nil {
		return nil, err
	}
	if err := s.publisher().Publish(ctx, events.PostCreated, p.ID, map[string]any{
		"post_id": p.ID, "owner_id": p.OwnerID, "store": p.Store, "reposted_from": postID,
	}); err != nil && s.Logger != nil {
		s.Logger.Warn("post event publish failed", "post_id", p.ID, "error", err)
	}
	return p, nil
}

func sortNewestFirst(list []*domainpost.Post) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
