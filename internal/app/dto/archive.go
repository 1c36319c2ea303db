package dto

import (
	"time"

	domainpost "halfandhalf/internal/domain/post"
)

type ArchivedPost struct {
	PostID    string    `json:"post_id"`
	Store     string    `json:"store"`
	Item      string    `json:"item"`
	Date      string    `json:"date,omitempty"`
	StartTime string    `json:"start_time,omitempty"`
	EndTime   string    `json:"end_time"`
	ExpiredAt time.Time `json:"expired_at"`
}

func MapArchivedPost(a domainpost.Archived) ArchivedPost {
	return ArchivedPost{
		PostID:    a.PostID,
		Store:     a.Store,
		Item:      a.Item,
		Date:      a.Date,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		ExpiredAt: a.ExpiredAt,
	}
}

func MapArchivedPosts(list []domainpost.Archived) []ArchivedPost {
	out := make([]ArchivedPost, 0, len(list))
	for _, a := range list {
		out = append(out, MapArchivedPost(a))
	}
	return out
}
