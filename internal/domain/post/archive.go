package post

import "time"

// RepostWindow is the availability window given to a repost draft.
const RepostWindow = 30 * time.Minute

// Archived is a node-local copy of an expired post kept for its owner
// so it can be reposted later. It never leaves the local store.
type Archived struct {
	PostID     string
	Store      string
	Item       string
	Date       string
	StartTime  string
	EndTime    string
	OwnerID    string
	OwnerEmail string
	ExpiredAt  time.Time
}

// NewArchived snapshots a post at the moment it expired.
func NewArchived(p *Post, expiredAt time.Time) Archived {
	a := Archived{
		PostID:     p.ID,
		Store:      p.Store,
		Item:       p.Item,
		Date:       p.Date,
		StartTime:  p.StartTime,
		EndTime:    p.EndTime,
		OwnerID:    p.OwnerID,
		OwnerEmail: p.OwnerEmail,
		ExpiredAt:  expiredAt,
	}
	return a
}

// RepostDraft pre-fills create params from an archived post with a
// fresh availability window of now through now+RepostWindow. The
// caller persists the draft as a real post and then removes the
// archive entry.
func (a Archived) RepostDraft(id string, now time.Time) CreateParams {
	return CreateParams{
		ID:         id,
		Store:      a.Store,
		Item:       a.Item,
		Date:       now.Format(DateLayout),
		StartTime:  now.Format(TimeLayout),
		EndTime:    now.Add(RepostWindow).Format(TimeLayout),
		OwnerID:    a.OwnerID,
		OwnerEmail: a.OwnerEmail,
		Now:        now,
	}
}
