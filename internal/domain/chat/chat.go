package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyText        = errors.New("chat: message text is required")
	ErrSelfChat         = errors.New("chat: cannot start a chat with yourself")
	ErrNotParticipant   = errors.New("chat: user is not a session participant")
	ErrSessionNotFound  = errors.New("chat: session not found")
	ErrInvalidSessionID = errors.New("chat: malformed session id")
)

// SessionID builds the canonical identity for a conversation: the post
// identity joined with the sorted participant pair. The same pair of
// users talking about the same post always lands in the same session.
func SessionID(postID, userA, userB string) string {
	a, b := SortParticipants(userA, userB)
	return fmt.Sprintf("%s_%s_%s", postID, a, b)
}

// SortParticipants returns the pair in canonical (lexicographic) order.
func SortParticipants(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// ParseSessionID splits a canonical session id back into its parts.
// Post and user identifiers never contain underscores.
func ParseSessionID(id string) (postID, userA, userB string, err error) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", ErrInvalidSessionID
	}
	return parts[0], parts[1], parts[2], nil
}

// Session is the shared conversation record between two users about one
// post. PostStore and PostItem are display caches copied from the post
// at creation time; they may go stale and that is accepted.
type Session struct {
	ID              string
	PostID          string
	PostStore       string
	PostItem        string
	Participants    [2]string // sorted
	CreatedAt       time.Time
	LastMessageText string
	LastMessageAt   time.Time
}

// HasParticipant reports whether userID belongs to the session.
func (s *Session) HasParticipant(userID string) bool {
	return s.Participants[0] == userID || s.Participants[1] == userID
}

// Counterpart returns the other participant.
func (s *Session) Counterpart(userID string) (string, bool) {
	switch userID {
	case s.Participants[0]:
		return s.Participants[1], true
	case s.Participants[1]:
		return s.Participants[0], true
	}
	return "", false
}

// Ref is one user's private view of a session: unread counter, active
// flag and read tracking. A ref with Active=false belongs to a user who
// has left the conversation.
type Ref struct {
	SessionID       string
	UserID          string
	PostID          string
	PostStore       string
	PostItem        string
	Active          bool
	UnreadCount     int
	JoinedAt        time.Time
	LastReadAt      time.Time
	LeftAt          time.Time
	LastMessageText string
	LastMessageAt   time.Time
}

// Message belongs to exactly one session. CreatedAt is server-assigned
// and defines the total order within the session.
type Message struct {
	ID        string
	SessionID string
	SenderID  string
	Text      string
	CreatedAt time.Time
}

// OpKind enumerates the delete operations a teardown batch may carry.
type OpKind int

const (
	OpDeleteMessage OpKind = iota
	OpDeleteSession
	OpDeleteRef
)

// Op is a single entry in a bulk-delete batch.
type Op struct {
	Kind      OpKind
	SessionID string
	MessageID string
	UserID    string
}

// Repository provides persistence for sessions, refs and messages.
// Session returns ErrSessionNotFound for unknown ids; Ref returns
// (nil, nil) when the user has no ref for the session. ApplyBatch
// executes a group of delete operations together; callers bound the
// group size to the backend's batch limit, and missing documents
// inside a batch are not errors.
type Repository interface {
	Session(ctx context.Context, id string) (*Session, error)
	SessionsForPost(ctx context.Context, postID string) ([]*Session, error)
	SaveSession(ctx context.Context, s *Session) error

	Ref(ctx context.Context, userID, sessionID string) (*Ref, error)
	RefsForUser(ctx context.Context, userID string) ([]*Ref, error)
	SaveRef(ctx context.Context, r *Ref) error

	AppendMessage(ctx context.Context, m *Message) error
	// Messages returns messages in creation order. A non-zero limit
	// keeps only the newest limit entries; a non-zero before keeps
	// only entries created strictly before it.
	Messages(ctx context.Context, sessionID string, limit int, before time.Time) ([]*Message, error)
	MessageIDs(ctx context.Context, sessionID string) ([]string, error)

	ApplyBatch(ctx context.Context, ops []Op) error
}
