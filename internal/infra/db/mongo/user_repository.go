package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainuser "halfandhalf/internal/domain/user"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection("users")}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) Save(ctx context.Context, u *domainuser.User) error {
	doc := newUserDocument(u)
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

type userDocument struct {
	ID             string   `bson:"_id"`
	Email          string   `bson:"email,omitempty"`
	PasswordHash   string   `bson:"password_hash,omitempty"`
	Anonymous      bool     `bson:"anonymous"`
	BlockedUserIDs []string `bson:"blocked_user_ids,omitempty"`
	CreatedAt      int64    `bson:"created_at"`
	UpdatedAt      int64    `bson:"updated_at"`
}

func newUserDocument(u *domainuser.User) userDocument {
	return userDocument{
		ID:             string(u.ID),
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Anonymous:      u.Anonymous,
		BlockedUserIDs: u.BlockedUserIDs,
		CreatedAt:      u.CreatedAt.UnixMilli(),
		UpdatedAt:      u.UpdatedAt.UnixMilli(),
	}
}

func (d userDocument) toEntity() *domainuser.User {
	return &domainuser.User{
		ID:             domainuser.ID(d.ID),
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		Anonymous:      d.Anonymous,
		BlockedUserIDs: d.BlockedUserIDs,
		CreatedAt:      timestampToTime(d.CreatedAt),
		UpdatedAt:      timestampToTime(d.UpdatedAt),
	}
}
