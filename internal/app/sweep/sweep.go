package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"halfandhalf/internal/app/events"
	domainpost "halfandhalf/internal/domain/post"
)

// Cascader removes a post's dependent chat sessions.
type Cascader interface {
	DeleteSessionsForPost(ctx context.Context, postID string) error
}

// Archiver keeps an owner's expired post for repost.
type Archiver interface {
	Archive(ctx context.Context, a domainpost.Archived) error
}

// Sweeper periodically detects expired posts, archives them for their
// owners, cascades their chat sessions, and removes them. It bounds the
// window in which a session can outlive its post.
type Sweeper struct {
	Posts    domainpost.Repository
	Archives Archiver
	Cascade  Cascader
	Events   events.Publisher
	Logger   *slog.Logger
	Interval time.Duration

	// Now is overridable in tests; zero value means time.Now.
	Now func() time.Time
}

var ErrNotConfigured = errors.New("sweep: missing dependencies")

// Run loops until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.Posts == nil || s.Cascade == nil {
		return ErrNotConfigured
	}
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil && s.Logger != nil {
				s.Logger.Error("sweep pass failed", "error", err)
			}
		}
	}
}

// SweepOnce performs a single pass. Per-post failures are logged and do
// not stop the pass: a post that could not be removed now is retried on
// the next tick.
func (s *Sweeper) SweepOnce(ctx context.Context) (err error) {
	all, err := s.Posts.All(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	swept := 0
	for _, p := range all {
		if !p.IsExpired(now) {
			continue
		}
		if err := s.expire(ctx, p, now); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("expiry failed", "post_id", p.ID, "error", err)
			}
			continue
		}
		swept++
	}
	if swept > 0 && s.Logger != nil {
		s.Logger.Info("expired posts swept", "count", swept)
	}
	return nil
}

func (s *Sweeper) expire(ctx context.Context, p *domainpost.Post, now time.Time) error {
	if s.Archives != nil {
		if err := s.Archives.Archive(ctx, domainpost.NewArchived(p, now)); err != nil {
			return err
		}
	}
	// Cascade before removing the post so sessions never dangle.
	if err := s.Cascade.DeleteSessionsForPost(ctx, p.ID); err != nil {
		return err
	}
	if err := s.Posts.Delete(ctx, p.ID); err != nil {
		return err
	}
	if s.Events != nil {
		if err := s.Events.Publish(ctx, events.PostExpired, p.ID, map[string]any{
			"post_id": p.ID, "owner_id": p.OwnerID,
		}); err != nil && s.Logger != nil {
			s.Logger.Warn("expiry event publish failed", "post_id", p.ID, "error", err)
		}
	}
	return nil
}

func (s *Sweeper) interval() time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	return time.Minute
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
