package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "halfandhalf/internal/domain/chat"
)

// ChatRepository persists sessions, per-user refs and messages across
// three collections. Bulk deletes are grouped per collection into
// unordered BulkWrite calls so one missing or unwritable document does
// not abort the rest of the batch.
type ChatRepository struct {
	sessions *mongo.Collection
	refs     *mongo.Collection
	messages *mongo.Collection
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{
		sessions: db.Collection("chat_sessions"),
		refs:     db.Collection("chat_refs"),
		messages: db.Collection("chat_messages"),
	}
}

func (r *ChatRepository) Session(ctx context.Context, id string) (*domainchat.Session, error) {
	var doc sessionDocument
	if err := r.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrSessionNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *ChatRepository) SessionsForPost(ctx context.Context, postID string) ([]*domainchat.Session, error) {
	cursor, err := r.sessions.Find(ctx, bson.M{"post_id": postID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*domainchat.Session
	for cursor.Next(ctx) {
		var doc sessionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntity())
	}
	return out, cursor.Err()
}

func (r *ChatRepository) SaveSession(ctx context.Context, s *domainchat.Session) error {
	doc := newSessionDocument(s)
	opts := options.Update().SetUpsert(true)
	_, err := r.sessions.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *ChatRepository) Ref(ctx context.Context, userID, sessionID string) (*domainchat.Ref, error) {
	var doc refDocument
	err := r.refs.FindOne(ctx, bson.M{"_id": refDocumentID(userID, sessionID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *ChatRepository) RefsForUser(ctx context.Context, userID string) ([]*domainchat.Ref, error) {
	cursor, err := r.refs.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*domainchat.Ref
	for cursor.Next(ctx) {
		var doc refDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntity())
	}
	return out, cursor.Err()
}

func (r *ChatRepository) SaveRef(ctx context.Context, ref *domainchat.Ref) error {
	doc := newRefDocument(ref)
	opts := options.Update().SetUpsert(true)
	_, err := r.refs.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *ChatRepository) AppendMessage(ctx context.Context, m *domainchat.Message) error {
	_, err := r.messages.InsertOne(ctx, newMessageDocument(m))
	return err
}

// Messages fetches newest-first so a limit keeps the most recent
// entries, then reverses into creation order for the caller.
func (r *ChatRepository) Messages(ctx context.Context, sessionID string, limit int, before time.Time) ([]*domainchat.Message, error) {
	filter := bson.M{"session_id": sessionID}
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before.UnixMilli()}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*domainchat.Message
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *ChatRepository) MessageIDs(ctx context.Context, sessionID string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.messages.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

// ApplyBatch groups ops per collection and issues unordered bulk
// deletes. Deleting an absent document matches zero and is not an
// error.
func (r *ChatRepository) ApplyBatch(ctx context.Context, ops []domainchat.Op) error {
	var msgModels, sessModels, refModels []mongo.WriteModel
	for _, op := range ops {
		switch op.Kind {
		case domainchat.OpDeleteMessage:
			msgModels = append(msgModels, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": op.MessageID}))
		case domainchat.OpDeleteSession:
			sessModels = append(sessModels, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": op.SessionID}))
		case domainchat.OpDeleteRef:
			refModels = append(refModels, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": refDocumentID(op.UserID, op.SessionID)}))
		}
	}
	opts := options.BulkWrite().SetOrdered(false)
	for col, models := range map[*mongo.Collection][]mongo.WriteModel{
		r.messages: msgModels,
		r.sessions: sessModels,
		r.refs:     refModels,
	} {
		if len(models) == 0 {
			continue
		}
		if _, err := col.BulkWrite(ctx, models, opts); err != nil {
			return err
		}
	}
	return nil
}

func refDocumentID(userID, sessionID string) string {
	return userID + ":" + sessionID
}

type sessionDocument struct {
	ID              string   `bson:"_id"`
	PostID          string   `bson:"post_id"`
	PostStore       string   `bson:"post_store"`
	PostItem        string   `bson:"post_item"`
	Participants    []string `bson:"participants"`
	CreatedAt       int64    `bson:"created_at"`
	LastMessageText string   `bson:"last_message_text,omitempty"`
	LastMessageAt   int64    `bson:"last_message_at,omitempty"`
}

func newSessionDocument(s *domainchat.Session) sessionDocument {
	return sessionDocument{
		ID:              s.ID,
		PostID:          s.PostID,
		PostStore:       s.PostStore,
		PostItem:        s.PostItem,
		Participants:    []string{s.Participants[0], s.Participants[1]},
		CreatedAt:       s.CreatedAt.UnixMilli(),
		LastMessageText: s.LastMessageText,
		LastMessageAt:   unixMilliOrZero(s.LastMessageAt),
	}
}

func (d sessionDocument) toEntity() *domainchat.Session {
	s := &domainchat.Session{
		ID:              d.ID,
		PostID:          d.PostID,
		PostStore:       d.PostStore,
		PostItem:        d.PostItem,
		CreatedAt:       timestampToTime(d.CreatedAt),
		LastMessageText: d.LastMessageText,
		LastMessageAt:   timeOrZero(d.LastMessageAt),
	}
	if len(d.Participants) == 2 {
		s.Participants = [2]string{d.Participants[0], d.Participants[1]}
	}
	return s
}

type refDocument struct {
	ID              string `bson:"_id"`
	SessionID       string `bson:"session_id"`
	UserID          string `bson:"user_id"`
	PostID          string `bson:"post_id"`
	PostStore       string `bson:"post_store"`
	PostItem        string `bson:"post_item"`
	Active          bool   `bson:"active"`
	UnreadCount     int    `bson:"unread_count"`
	JoinedAt        int64  `bson:"joined_at"`
	LastReadAt      int64  `bson:"last_read_at,omitempty"`
	LeftAt          int64  `bson:"left_at,omitempty"`
	LastMessageText string `bson:"last_message_text,omitempty"`
	LastMessageAt   int64  `bson:"last_message_at,omitempty"`
}

func newRefDocument(r *domainchat.Ref) refDocument {
	return refDocument{
		ID:              refDocumentID(r.UserID, r.SessionID),
		SessionID:       r.SessionID,
		UserID:          r.UserID,
		PostID:          r.PostID,
		PostStore:       r.PostStore,
		PostItem:        r.PostItem,
		Active:          r.Active,
		UnreadCount:     r.UnreadCount,
		JoinedAt:        r.JoinedAt.UnixMilli(),
		LastReadAt:      unixMilliOrZero(r.LastReadAt),
		LeftAt:          unixMilliOrZero(r.LeftAt),
		LastMessageText: r.LastMessageText,
		LastMessageAt:   unixMilliOrZero(r.LastMessageAt),
	}
}

func (d refDocument) toEntity() *domainchat.Ref {
	return &domainchat.Ref{
		SessionID:       d.SessionID,
		UserID:          d.UserID,
		PostID:          d.PostID,
		PostStore:       d.PostStore,
		PostItem:        d.PostItem,
		Active:          d.Active,
		UnreadCount:     d.UnreadCount,
		JoinedAt:        timestampToTime(d.JoinedAt),
		LastReadAt:      timeOrZero(d.LastReadAt),
		LeftAt:          timeOrZero(d.LeftAt),
		LastMessageText: d.LastMessageText,
		LastMessageAt:   timeOrZero(d.LastMessageAt),
	}
}

type messageDocument struct {
	ID        string `bson:"_id"`
	SessionID string `bson:"session_id"`
	SenderID  string `bson:"sender_id"`
	Text      string `bson:"text"`
	CreatedAt int64  `bson:"created_at"`
}

func newMessageDocument(m *domainchat.Message) messageDocument {
	return messageDocument{
		ID:        m.ID,
		SessionID: m.SessionID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt.UnixMilli(),
	}
}

func (d messageDocument) toEntity() *domainchat.Message {
	return &domainchat.Message{
		ID:        d.ID,
		SessionID: d.SessionID,
		SenderID:  d.SenderID,
		Text:      d.Text,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
}

func unixMilliOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timeOrZero(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
