package dto

import (
	"time"

	domainchat "halfandhalf/internal/domain/chat"
)

// ChatSession is a participant's view of a session: the shared
// metadata plus their private unread counter and activity flag.
type ChatSession struct {
	SessionID       string     `json:"session_id"`
	PostID          string     `json:"post_id"`
	PostStore       string     `json:"post_store"`
	PostItem        string     `json:"post_item"`
	Active          bool       `json:"active"`
	UnreadCount     int        `json:"unread_count"`
	JoinedAt        time.Time  `json:"joined_at"`
	LastMessageText string     `json:"last_message_text,omitempty"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatOpened answers the open-chat call: exists is false when the id is
// a draft that the first message send will materialize.
type ChatOpened struct {
	SessionID    string   `json:"session_id"`
	PostID       string   `json:"post_id"`
	PostStore    string   `json:"post_store"`
	PostItem     string   `json:"post_item"`
	Participants []string `json:"participants"`
	Exists       bool     `json:"exists"`
}

// ChatUpdate is one server-sent event on the session stream.
type ChatUpdate struct {
	SessionID string       `json:"session_id"`
	Removed   bool         `json:"removed,omitempty"`
	Session   *ChatSession `json:"session,omitempty"`
}

func MapChatSession(ref *domainchat.Ref) ChatSession {
	if ref == nil {
		return ChatSession{}
	}
	out := ChatSession{
		SessionID:       ref.SessionID,
		PostID:          ref.PostID,
		PostStore:       ref.PostStore,
		PostItem:        ref.PostItem,
		Active:          ref.Active,
		UnreadCount:     ref.UnreadCount,
		JoinedAt:        ref.JoinedAt,
		LastMessageText: ref.LastMessageText,
	}
	if !ref.LastMessageAt.IsZero() {
		at := ref.LastMessageAt
		out.LastMessageAt = &at
	}
	return out
}

func MapChatSessions(refs []*domainchat.Ref) []ChatSession {
	out := make([]ChatSession, 0, len(refs))
	for _, ref := range refs {
		out = append(out, MapChatSession(ref))
	}
	return out
}

func MapChatMessage(m *domainchat.Message) ChatMessage {
	if m == nil {
		return ChatMessage{}
	}
	return ChatMessage{
		ID:        m.ID,
		SessionID: m.SessionID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func MapChatMessages(list []*domainchat.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(list))
	for _, m := range list {
		out = append(out, MapChatMessage(m))
	}
	return out
}
