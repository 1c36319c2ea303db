package post

import (
	"context"
	"errors"
	"strings"
	"time"

	"halfandhalf/internal/domain/geo"
)

var (
	ErrIDRequired      = errors.New("post: id is required")
	ErrOwnerRequired   = errors.New("post: owner is required")
	ErrStoreRequired   = errors.New("post: store is required")
	ErrItemRequired    = errors.New("post: item is required")
	ErrEndTimeRequired = errors.New("post: end time is required")
	ErrInvalidDate     = errors.New("post: date must be YYYY-MM-DD")
	ErrInvalidTime     = errors.New("post: time must be HH:MM")
	ErrNotOwner        = errors.New("post: only the owner may modify this post")
	ErrNotFound        = errors.New("post: not found")
)

const (
	// DateLayout is the calendar-day format used by posts.
	DateLayout = "2006-01-02"
	// TimeLayout is the wall-clock format used by posts.
	TimeLayout = "15:04"
)

// Post is a bulk-purchase sharing offer.
type Post struct {
	ID         string
	Store      string
	Item       string
	Date       string // optional YYYY-MM-DD, empty means "today"
	StartTime  string // HH:MM
	EndTime    string // HH:MM
	OwnerID    string
	OwnerEmail string
	Location   *geo.Point
	CreatedAt  time.Time
}

// Repository provides post persistence.
type Repository interface {
	ByID(ctx context.Context, id string) (*Post, error)
	ByOwner(ctx context.Context, ownerID string) ([]*Post, error)
	All(ctx context.Context) ([]*Post, error)
	Save(ctx context.Context, p *Post) error
	Delete(ctx context.Context, id string) error
}

// CreateParams carries the fields required to publish a post.
type CreateParams struct {
	ID         string
	Store      string
	Item       string
	Date       string
	StartTime  string
	EndTime    string
	OwnerID    string
	OwnerEmail string
	Location   *geo.Point
	Now        time.Time
}

// New validates params and builds a Post. CreatedAt is assigned from
// Now (the storage layer treats it as the server timestamp).
func New(params CreateParams) (*Post, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(params.OwnerID) == "" {
		return nil, ErrOwnerRequired
	}
	store := strings.TrimSpace(params.Store)
	if store == "" {
		return nil, ErrStoreRequired
	}
	item := strings.TrimSpace(params.Item)
	if item == "" {
		return nil, ErrItemRequired
	}
	if strings.TrimSpace(params.EndTime) == "" {
		return nil, ErrEndTimeRequired
	}
	if err := validateDate(params.Date); err != nil {
		return nil, err
	}
	if err := validateTime(params.StartTime); err != nil {
		return nil, err
	}
	if err := validateTime(params.EndTime); err != nil {
		return nil, err
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	var loc *geo.Point
	if params.Location != nil {
		p := *params.Location
		loc = &p
	}

	return &Post{
		ID:         params.ID,
		Store:      store,
		Item:       item,
		Date:       strings.TrimSpace(params.Date),
		StartTime:  strings.TrimSpace(params.StartTime),
		EndTime:    strings.TrimSpace(params.EndTime),
		OwnerID:    params.OwnerID,
		OwnerEmail: strings.TrimSpace(params.OwnerEmail),
		Location:   loc,
		CreatedAt:  now,
	}, nil
}

// UpdateParams carries owner-editable fields. Empty strings leave the
// current value in place; Date may be cleared via ClearDate.
type UpdateParams struct {
	Store     string
	Item      string
	Date      string
	ClearDate bool
	StartTime string
	EndTime   string
}

// Apply mutates the owner-editable fields after validation.
func (p *Post) Apply(params UpdateParams) error {
	if s := strings.TrimSpace(params.Store); s != "" {
		p.Store = s
	}
	if s := strings.TrimSpace(params.Item); s != "" {
		p.Item = s
	}
	if params.ClearDate {
		p.Date = ""
	} else if s := strings.TrimSpace(params.Date); s != "" {
		if err := validateDate(s); err != nil {
			return err
		}
		p.Date = s
	}
	if s := strings.TrimSpace(params.StartTime); s != "" {
		if err := validateTime(s); err != nil {
			return err
		}
		p.StartTime = s
	}
	if s := strings.TrimSpace(params.EndTime); s != "" {
		if err := validateTime(s); err != nil {
			return err
		}
		p.EndTime = s
	}
	return nil
}

// OwnedBy reports whether userID owns the post.
func (p *Post) OwnedBy(userID string) bool {
	return p.OwnerID == userID
}

// ExpiresAt combines the post's date (or now's calendar day when the
// date is absent) with its end time in now's location. The boolean is
// false when the post carries no end time and therefore never expires.
func (p *Post) ExpiresAt(now time.Time) (time.Time, bool) {
	if p.EndTime == "" {
		return time.Time{}, false
	}
	day := p.Date
	if day == "" {
		day = now.Format(DateLayout)
	}
	end, err := time.ParseInLocation(DateLayout+" "+TimeLayout, day+" "+p.EndTime, now.Location())
	if err != nil {
		return time.Time{}, false
	}
	return end, true
}

// IsExpired reports whether the post's end instant is strictly before now.
func (p *Post) IsExpired(now time.Time) bool {
	end, ok := p.ExpiresAt(now)
	if !ok {
		return false
	}
	return end.Before(now)
}

func validateDate(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func validateTime(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if _, err := time.Parse(TimeLayout, value); err != nil {
		return ErrInvalidTime
	}
	return nil
}
