package dto

import (
	"time"

	domainpost "halfandhalf/internal/domain/post"
)

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Post struct {
	ID         string    `json:"id"`
	Store      string    `json:"store"`
	Item       string    `json:"item"`
	Date       string    `json:"date,omitempty"`
	StartTime  string    `json:"start_time,omitempty"`
	EndTime    string    `json:"end_time"`
	OwnerID    string    `json:"owner_id"`
	OwnerEmail string    `json:"owner_email,omitempty"`
	Location   *Location `json:"location,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func MapPost(p *domainpost.Post) Post {
	if p == nil {
		return Post{}
	}
	out := Post{
		ID:         p.ID,
		Store:      p.Store,
		Item:       p.Item,
		Date:       p.Date,
		StartTime:  p.StartTime,
		EndTime:    p.EndTime,
		OwnerID:    p.OwnerID,
		OwnerEmail: p.OwnerEmail,
		CreatedAt:  p.CreatedAt,
	}
	if p.Location != nil {
		out.Location = &Location{Lat: p.Location.Lat, Lon: p.Location.Lon}
	}
	return out
}

func MapPosts(list []*domainpost.Post) []Post {
	out := make([]Post, 0, len(list))
	for _, p := range list {
		out = append(out, MapPost(p))
	}
	return out
}
