package chat

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"halfandhalf/internal/app/events"
	domainchat "halfandhalf/internal/domain/chat"
	domainpost "halfandhalf/internal/domain/post"
)

// DefaultBatchLimit mirrors the document store's atomic-write size cap.
const DefaultBatchLimit = 500

// Config tunes session-registry policy knobs.
type Config struct {
	// BatchLimit bounds the size of bulk-delete groups.
	BatchLimit int
	// TrimWhitespace controls whether message text is trimmed before
	// the emptiness check and storage.
	TrimWhitespace bool
}

// Service owns the mapping (post, participant pair) -> session and each
// participant's private view of it. Sessions are created lazily on the
// first message send.
type Service struct {
	repo   domainchat.Repository
	posts  domainpost.Repository
	events events.Publisher
	logger *slog.Logger
	cfg    Config
	hub    *hub

	// Now is overridable in tests; zero value means time.Now.
	Now func() time.Time
}

func NewService(repo domainchat.Repository, posts domainpost.Repository, pub events.Publisher, logger *slog.Logger, cfg Config) *Service {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultBatchLimit
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		repo:   repo,
		posts:  posts,
		events: pub,
		logger: logger,
		cfg:    cfg,
		hub:    newHub(),
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SessionInfo describes an existing or prospective session.
type SessionInfo struct {
	Session *domainchat.Session
	// Exists is false for a draft: the canonical id is resolved but
	// nothing has been written yet.
	Exists bool
}

// Open resolves the canonical session between userID and the post's
// owner. It never writes: when no session exists yet the returned draft
// carries the id a subsequent SendMessage will create.
func (s *Service) Open(ctx context.Context, postID, userID string) (SessionInfo, error) {
	p, err := s.posts.ByID(ctx, postID)
	if err != nil {
		return SessionInfo{}, err
	}
	if p.OwnedBy(userID) {
		return SessionInfo{}, domainchat.ErrSelfChat
	}
	id := domainchat.SessionID(postID, userID, p.OwnerID)
	sess, err := s.repo.Session(ctx, id)
	if err != nil {
		if errors.Is(err, domainchat.ErrSessionNotFound) {
			a, b := domainchat.SortParticipants(userID, p.OwnerID)
			return SessionInfo{Session: &domainchat.Session{
				ID:           id,
				PostID:       postID,
				PostStore:    p.Store,
				PostItem:     p.Item,
				Participants: [2]string{a, b},
			}}, nil
		}
		return SessionInfo{}, err
	}
	return SessionInfo{Session: sess, Exists: true}, nil
}

// SendMessage validates text, lazily creates the session and both
// participant refs, appends the message, and increments the
// counterpart's unread count when their ref is still active. The
// sender's own unread count is never touched.
func (s *Service) SendMessage(ctx context.Context, sessionID, senderID, text string) (*domainchat.Message, error) {
	if s.cfg.TrimWhitespace {
		text = strings.TrimSpace(text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domainchat.ErrEmptyText
	}

	now := s.now()
	sess, err := s.repo.Session(ctx, sessionID)
	switch {
	case errors.Is(err, domainchat.ErrSessionNotFound):
		sess, err = s.createSession(ctx, sessionID, senderID, now)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if !sess.HasParticipant(senderID) {
			return nil, domainchat.ErrNotParticipant
		}
	}

	msg := &domainchat.Message{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: now,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	sess.LastMessageText = text
	sess.LastMessageAt = now
	if err := s.repo.SaveSession(ctx, sess); err != nil {
		return nil, err
	}

	if err := s.touchSenderRef(ctx, sess, senderID, now); err != nil {
		return nil, err
	}
	if err := s.bumpCounterpartUnread(ctx, sess, senderID); err != nil {
		return nil, err
	}

	if err := s.events.Publish(ctx, events.MessageSent, sess.ID, map[string]any{
		"session_id": sess.ID,
		"post_id":    sess.PostID,
		"sender_id":  senderID,
	}); err != nil && s.logger != nil {
		s.logger.Warn("message event publish failed", "session_id", sess.ID, "error", err)
	}
	return msg, nil
}

// createSession materializes the session named by the canonical id,
// copying the post's display fields and seeding both refs with a zero
// unread count; the send that triggered creation then bumps the
// counterpart to exactly one.
func (s *Service) createSession(ctx context.Context, sessionID, senderID string, now time.Time) (*domainchat.Session, error) {
	postID, a, b, err := domainchat.ParseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if a == b {
		return nil, domainchat.ErrSelfChat
	}
	if senderID != a && senderID != b {
		return nil, domainchat.ErrNotParticipant
	}
	p, err := s.posts.ByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	sess := &domainchat.Session{
		ID:           sessionID,
		PostID:       postID,
		PostStore:    p.Store,
		PostItem:     p.Item,
		Participants: [2]string{a, b},
		CreatedAt:    now,
	}
	if err := s.repo.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	for _, userID := range sess.Participants {
		ref := &domainchat.Ref{
			SessionID: sessionID,
			UserID:    userID,
			PostID:    postID,
			PostStore: p.Store,
			PostItem:  p.Item,
			Active:    true,
			JoinedAt:  now,
		}
		if err := s.repo.SaveRef(ctx, ref); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// touchSenderRef refreshes the sender's last-message display cache and
// reactivates their ref if they previously left and are sending again.
func (s *Service) touchSenderRef(ctx context.Context, sess *domainchat.Session, senderID string, now time.Time) error {
	ref, err := s.repo.Ref(ctx, senderID, sess.ID)
	if err != nil {
		return err
	}
	if ref == nil {
		ref = &domainchat.Ref{
			SessionID: sess.ID,
			UserID:    senderID,
			PostID:    sess.PostID,
			PostStore: sess.PostStore,
			PostItem:  sess.PostItem,
			JoinedAt:  now,
		}
	}
	ref.Active = true
	ref.LeftAt = time.Time{}
	ref.LastMessageText = sess.LastMessageText
	ref.LastMessageAt = sess.LastMessageAt
	if err := s.repo.SaveRef(ctx, ref); err != nil {
		return err
	}
	s.hub.publish(senderID, Update{SessionID: sess.ID, Ref: ref})
	return nil
}

// bumpCounterpartUnread increments the other participant's unread count
// only while their ref exists and is active. Inactive refs are left
// untouched so departed users accrue nothing.
func (s *Service) bumpCounterpartUnread(ctx context.Context, sess *domainchat.Session, senderID string) error {
	other, ok := sess.Counterpart(senderID)
	if !ok {
		return domainchat.ErrNotParticipant
	}
	ref, err := s.repo.Ref(ctx, other, sess.ID)
	if err != nil {
		return err
	}
	if ref == nil || !ref.Active {
		return nil
	}
	ref.UnreadCount++
	ref.LastMessageText = sess.LastMessageText
	ref.LastMessageAt = sess.LastMessageAt
	if err := s.repo.SaveRef(ctx, ref); err != nil {
		return err
	}
	s.hub.publish(other, Update{SessionID: sess.ID, Ref: ref})
	return nil
}

// MarkRead resets the caller's unread count. Calling it with nothing
// unread is a no-op and performs no write.
func (s *Service) MarkRead(ctx context.Context, sessionID, userID string) error {
	ref, err := s.repo.Ref(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if ref == nil {
		return domainchat.ErrNotParticipant
	}
	if ref.UnreadCount == 0 {
		return nil
	}
	ref.UnreadCount = 0
	ref.LastReadAt = s.now()
	if err := s.repo.SaveRef(ctx, ref); err != nil {
		return err
	}
	s.hub.publish(userID, Update{SessionID: sessionID, Ref: ref})
	return nil
}

// Leave marks the caller's ref inactive and, when the counterpart has
// already left (or never joined), tears the session down. The check is
// not atomic against a concurrent leave by the other participant;
// teardown therefore treats already-deleted documents as success, and
// a session both sides abandoned without teardown is reclaimed by the
// next cascade or sweep.
func (s *Service) Leave(ctx context.Context, sessionID, userID string) error {
	sess, err := s.repo.Session(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainchat.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if !sess.HasParticipant(userID) {
		return domainchat.ErrNotParticipant
	}

	ref, err := s.repo.Ref(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	now := s.now()
	if ref == nil {
		ref = &domainchat.Ref{
			SessionID: sessionID,
			UserID:    userID,
			PostID:    sess.PostID,
			PostStore: sess.PostStore,
			PostItem:  sess.PostItem,
			JoinedAt:  now,
		}
	}
	ref.Active = false
	ref.LeftAt = now
	if err := s.repo.SaveRef(ctx, ref); err != nil {
		return err
	}
	s.hub.publish(userID, Update{SessionID: sessionID, Removed: true})

	other, _ := sess.Counterpart(userID)
	otherRef, err := s.repo.Ref(ctx, other, sessionID)
	if err != nil {
		return err
	}
	if otherRef == nil || !otherRef.Active {
		s.teardown(ctx, sess)
	}
	return nil
}

// ListSessions returns the caller's active refs ordered by last
// activity, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]*domainchat.Ref, error) {
	refs, err := s.repo.RefsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := refs[:0]
	for _, r := range refs {
		if r.Active {
			active = append(active, r)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return lastActivity(active[i]).After(lastActivity(active[j]))
	})
	return active, nil
}

func lastActivity(r *domainchat.Ref) time.Time {
	if !r.LastMessageAt.IsZero() {
		return r.LastMessageAt
	}
	return r.JoinedAt
}

// ListMessages returns a session's messages in creation order. A
// non-zero limit keeps the newest limit entries; a non-zero before
// restricts to messages created strictly before it, so callers page
// backwards by passing the oldest timestamp of the previous page.
func (s *Service) ListMessages(ctx context.Context, sessionID, userID string, limit int, before time.Time) ([]*domainchat.Message, error) {
	sess, err := s.repo.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.HasParticipant(userID) {
		return nil, domainchat.ErrNotParticipant
	}
	return s.repo.Messages(ctx, sessionID, limit, before)
}

// DeleteSessionsForPost removes every session referencing postID along
// with its messages and both participants' refs, batched in groups no
// larger than the configured limit. Zero matching sessions is a no-op.
// A failed batch is logged and skipped, never escalated: the caller may
// legitimately lack write permission on other users' private refs.
func (s *Service) DeleteSessionsForPost(ctx context.Context, postID string) error {
	sessions, err := s.repo.SessionsForPost(ctx, postID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}
	var ops []domainchat.Op
	for _, sess := range sessions {
		sessOps, err := s.teardownOps(ctx, sess)
		if err != nil {
			return err
		}
		ops = append(ops, sessOps...)
	}
	s.applyBatched(ctx, ops)

	for _, sess := range sessions {
		s.notifyDestroyed(ctx, sess)
	}
	if s.logger != nil {
		s.logger.Info("chat sessions cascaded", "post_id", postID, "sessions", len(sessions))
	}
	return nil
}

// teardown destroys a single session after both participants left.
func (s *Service) teardown(ctx context.Context, sess *domainchat.Session) {
	ops, err := s.teardownOps(ctx, sess)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("teardown enumeration failed", "session_id", sess.ID, "error", err)
		}
		return
	}
	s.applyBatched(ctx, ops)
	s.notifyDestroyed(ctx, sess)
}

func (s *Service) teardownOps(ctx context.Context, sess *domainchat.Session) ([]domainchat.Op, error) {
	msgIDs, err := s.repo.MessageIDs(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	ops := make([]domainchat.Op, 0, len(msgIDs)+3)
	for _, id := range msgIDs {
		ops = append(ops, domainchat.Op{Kind: domainchat.OpDeleteMessage, SessionID: sess.ID, MessageID: id})
	}
	ops = append(ops, domainchat.Op{Kind: domainchat.OpDeleteSession, SessionID: sess.ID})
	for _, userID := range sess.Participants {
		ops = append(ops, domainchat.Op{Kind: domainchat.OpDeleteRef, SessionID: sess.ID, UserID: userID})
	}
	return ops, nil
}

// applyBatched commits ops in independent fixed-size batches. Batch
// failures are partial successes: logged, skipped, never propagated.
func (s *Service) applyBatched(ctx context.Context, ops []domainchat.Op) {
	limit := s.cfg.BatchLimit
	for start := 0; start < len(ops); start += limit {
		end := start + limit
		if end > len(ops) {
			end = len(ops)
		}
		if err := s.repo.ApplyBatch(ctx, ops[start:end]); err != nil && s.logger != nil {
			s.logger.Warn("delete batch failed", "size", end-start, "error", err)
		}
	}
}

func (s *Service) notifyDestroyed(ctx context.Context, sess *domainchat.Session) {
	for _, userID := range sess.Participants {
		s.hub.publish(userID, Update{SessionID: sess.ID, Removed: true})
	}
	if err := s.events.Publish(ctx, events.SessionDestroyed, sess.ID, map[string]any{
		"session_id": sess.ID,
		"post_id":    sess.PostID,
	}); err != nil && s.logger != nil {
		s.logger.Warn("session event publish failed", "session_id", sess.ID, "error", err)
	}
}
