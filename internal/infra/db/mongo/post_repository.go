package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"halfandhalf/internal/domain/geo"
	domainpost "halfandhalf/internal/domain/post"
)

type PostRepository struct {
	col *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{col: db.Collection("posts")}
}

func (r *PostRepository) ByID(ctx context.Context, id string) (*domainpost.Post, error) {
	var doc postDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpost.ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *PostRepository) ByOwner(ctx context.Context, ownerID string) ([]*domainpost.Post, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID})
}

func (r *PostRepository) All(ctx context.Context) ([]*domainpost.Post, error) {
	return r.find(ctx, bson.M{})
}

func (r *PostRepository) find(ctx context.Context, filter bson.M) ([]*domainpost.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*domainpost.Post
	for cursor.Next(ctx) {
		var doc postDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toEntity())
	}
	return out, cursor.Err()
}

func (r *PostRepository) Save(ctx context.Context, p *domainpost.Post) error {
	doc := newPostDocument(p)
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

type postDocument struct {
	ID         string            `bson:"_id"`
	Store      string            `bson:"store"`
	Item       string            `bson:"item"`
	Date       string            `bson:"date,omitempty"`
	StartTime  string            `bson:"start_time"`
	EndTime    string            `bson:"end_time"`
	OwnerID    string            `bson:"owner_id"`
	OwnerEmail string            `bson:"owner_email,omitempty"`
	Location   *locationDocument `bson:"location,omitempty"`
	CreatedAt  int64             `bson:"created_at"`
}

type locationDocument struct {
	Lat float64 `bson:"lat"`
	Lon float64 `bson:"lon"`
}

func newPostDocument(p *domainpost.Post) postDocument {
	doc := postDocument{
		ID:         p.ID,
		Store:      p.Store,
		Item:       p.Item,
		Date:       p.Date,
		StartTime:  p.StartTime,
		EndTime:    p.EndTime,
		OwnerID:    p.OwnerID,
		OwnerEmail: p.OwnerEmail,
		CreatedAt:  p.CreatedAt.UnixMilli(),
	}
	if p.Location != nil {
		doc.Location = &locationDocument{Lat: p.Location.Lat, Lon: p.Location.Lon}
	}
	return doc
}

func (d postDocument) toEntity() *domainpost.Post {
	p := &domainpost.Post{
		ID:         d.ID,
		Store:      d.Store,
		Item:       d.Item,
		Date:       d.Date,
		StartTime:  d.StartTime,
		EndTime:    d.EndTime,
		OwnerID:    d.OwnerID,
		OwnerEmail: d.OwnerEmail,
		CreatedAt:  timestampToTime(d.CreatedAt),
	}
	if d.Location != nil {
		p.Location = &geo.Point{Lat: d.Location.Lat, Lon: d.Location.Lon}
	}
	return p
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
