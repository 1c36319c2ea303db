package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainchat "halfandhalf/internal/domain/chat"
)

// ChatRepository is an in-memory session/ref/message store. It records
// write and batch activity so tests can assert on write volume, and it
// can be told to fail selected batches to exercise partial-success
// paths.
type ChatRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domainchat.Session
	refs     map[string]*domainchat.Ref
	messages map[string][]*domainchat.Message

	// RefWrites counts SaveRef calls.
	RefWrites int
	// BatchSizes records the size of every ApplyBatch call in order.
	BatchSizes []int
	// FailBatch, when set, is consulted per batch; a non-nil return
	// rejects the whole batch without applying it.
	FailBatch func(ops []domainchat.Op) error
}

func NewChatRepository() *ChatRepository {
	return &ChatRepository{
		sessions: make(map[string]*domainchat.Session),
		refs:     make(map[string]*domainchat.Ref),
		messages: make(map[string][]*domainchat.Message),
	}
}

func refKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

func (r *ChatRepository) Session(ctx context.Context, id string) (*domainchat.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domainchat.ErrSessionNotFound
	}
	return cloneSessionDoc(s), nil
}

func (r *ChatRepository) SessionsForPost(ctx context.Context, postID string) ([]*domainchat.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainchat.Session
	for _, s := range r.sessions {
		if s.PostID == postID {
			out = append(out, cloneSessionDoc(s))
		}
	}
	return out, nil
}

func (r *ChatRepository) SaveSession(ctx context.Context, s *domainchat.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = cloneSessionDoc(s)
	return nil
}

func (r *ChatRepository) Ref(ctx context.Context, userID, sessionID string) (*domainchat.Ref, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.refs[refKey(userID, sessionID)]
	if !ok {
		return nil, nil
	}
	return cloneRef(ref), nil
}

func (r *ChatRepository) RefsForUser(ctx context.Context, userID string) ([]*domainchat.Ref, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainchat.Ref
	for _, ref := range r.refs {
		if ref.UserID == userID {
			out = append(out, cloneRef(ref))
		}
	}
	return out, nil
}

func (r *ChatRepository) SaveRef(ctx context.Context, ref *domainchat.Ref) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RefWrites++
	r.refs[refKey(ref.UserID, ref.SessionID)] = cloneRef(ref)
	return nil
}

func (r *ChatRepository) AppendMessage(ctx context.Context, m *domainchat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyMsg := *m
	r.messages[m.SessionID] = append(r.messages[m.SessionID], &copyMsg)
	return nil
}

func (r *ChatRepository) Messages(ctx context.Context, sessionID string, limit int, before time.Time) ([]*domainchat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := r.messages[sessionID]
	out := make([]*domainchat.Message, 0, len(msgs))
	for _, m := range msgs {
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		copyMsg := *m
		out = append(out, &copyMsg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *ChatRepository) MessageIDs(ctx context.Context, sessionID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := r.messages[sessionID]
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// ApplyBatch applies delete operations atomically within the batch.
// Missing documents are ignored, matching document-store delete
// semantics.
func (r *ChatRepository) ApplyBatch(ctx context.Context, ops []domainchat.Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.BatchSizes = append(r.BatchSizes, len(ops))
	if r.FailBatch != nil {
		if err := r.FailBatch(ops); err != nil {
			return err
		}
	}
	for _, op := range ops {
		switch op.Kind {
		case domainchat.OpDeleteMessage:
			msgs := r.messages[op.SessionID]
			for i, m := range msgs {
				if m.ID == op.MessageID {
					r.messages[op.SessionID] = append(msgs[:i], msgs[i+1:]...)
					break
				}
			}
			if len(r.messages[op.SessionID]) == 0 {
				delete(r.messages, op.SessionID)
			}
		case domainchat.OpDeleteSession:
			delete(r.sessions, op.SessionID)
		case domainchat.OpDeleteRef:
			delete(r.refs, refKey(op.UserID, op.SessionID))
		}
	}
	return nil
}

// SessionCount reports how many sessions remain; a test helper.
func (r *ChatRepository) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// RefCount reports how many refs remain; a test helper.
func (r *ChatRepository) RefCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refs)
}

// MessageCount reports how many messages remain for a session.
func (r *ChatRepository) MessageCount(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages[sessionID])
}

func cloneSessionDoc(s *domainchat.Session) *domainchat.Session {
	if s == nil {
		return nil
	}
	copySession := *s
	return &copySession
}

func cloneRef(ref *domainchat.Ref) *domainchat.Ref {
	if ref == nil {
		return nil
	}
	copyRef := *ref
	return &copyRef
}
