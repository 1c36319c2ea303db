package post

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halfandhalf/internal/domain/geo"
)

func validParams() CreateParams {
	return CreateParams{
		ID:      "p1",
		Store:   "Costco Yangjae",
		Item:    "30 eggs",
		EndTime: "18:00",
		OwnerID: "u1",
	}
}

func TestNew(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p, err := New(validParams())
		require.NoError(t, err)
		assert.Equal(t, "Costco Yangjae", p.Store)
		assert.False(t, p.CreatedAt.IsZero())
	})

	t.Run("missing required fields", func(t *testing.T) {
		cases := []struct {
			mutate func(*CreateParams)
			want   error
		}{
			{func(p *CreateParams) { p.ID = " " }, ErrIDRequired},
			{func(p *CreateParams) { p.OwnerID = "" }, ErrOwnerRequired},
			{func(p *CreateParams) { p.Store = "" }, ErrStoreRequired},
			{func(p *CreateParams) { p.Item = "  " }, ErrItemRequired},
			{func(p *CreateParams) { p.EndTime = "" }, ErrEndTimeRequired},
			{func(p *CreateParams) { p.Date = "2026/01/01" }, ErrInvalidDate},
			{func(p *CreateParams) { p.StartTime = "9am" }, ErrInvalidTime},
			{func(p *CreateParams) { p.EndTime = "25:00" }, ErrInvalidTime},
		}
		for _, tc := range cases {
			params := validParams()
			tc.mutate(&params)
			_, err := New(params)
			assert.ErrorIs(t, err, tc.want)
		}
	})

	t.Run("location is copied", func(t *testing.T) {
		loc := &geo.Point{Lat: 37.5, Lon: 127.0}
		params := validParams()
		params.Location = loc
		p, err := New(params)
		require.NoError(t, err)
		loc.Lat = 0
		assert.Equal(t, 37.5, p.Location.Lat)
	})
}

func TestApply(t *testing.T) {
	p, err := New(validParams())
	require.NoError(t, err)

	t.Run("empty fields keep current values", func(t *testing.T) {
		require.NoError(t, p.Apply(UpdateParams{Item: "60 eggs"}))
		assert.Equal(t, "60 eggs", p.Item)
		assert.Equal(t, "Costco Yangjae", p.Store)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		assert.ErrorIs(t, p.Apply(UpdateParams{Date: "not-a-date"}), ErrInvalidDate)
		assert.ErrorIs(t, p.Apply(UpdateParams{EndTime: "99:99"}), ErrInvalidTime)
	})

	t.Run("clear date", func(t *testing.T) {
		require.NoError(t, p.Apply(UpdateParams{Date: "2026-08-27"}))
		require.NoError(t, p.Apply(UpdateParams{ClearDate: true}))
		assert.Empty(t, p.Date)
	})
}

func TestExpiry(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)

	t.Run("dated post expires after its end instant", func(t *testing.T) {
		p := &Post{Date: "2026-08-27", EndTime: "11:00"}
		assert.True(t, p.IsExpired(now))
	})

	t.Run("end instant itself is not expired", func(t *testing.T) {
		p := &Post{Date: "2026-08-27", EndTime: "12:00"}
		assert.False(t, p.IsExpired(now))
	})

	t.Run("future end time on same day", func(t *testing.T) {
		p := &Post{Date: "2026-08-27", EndTime: "18:00"}
		assert.False(t, p.IsExpired(now))
	})

	t.Run("missing date means today", func(t *testing.T) {
		expired := &Post{EndTime: "11:59"}
		assert.True(t, expired.IsExpired(now))

		open := &Post{EndTime: "12:01"}
		assert.False(t, open.IsExpired(now))
	})

	t.Run("no end time never expires", func(t *testing.T) {
		p := &Post{Date: "1999-01-01"}
		assert.False(t, p.IsExpired(now))
		_, ok := p.ExpiresAt(now)
		assert.False(t, ok)
	})

	t.Run("past date expires regardless of time of day", func(t *testing.T) {
		p := &Post{Date: "2026-08-26", EndTime: "23:59"}
		assert.True(t, p.IsExpired(now))
	})
}

func TestRepostDraft(t *testing.T) {
	now := time.Date(2026, 8, 27, 14, 30, 0, 0, time.Local)
	a := Archived{
		PostID:     "old",
		Store:      "Emart Traders",
		Item:       "bulk rice",
		OwnerID:    "u1",
		OwnerEmail: "u1@example.com",
		ExpiredAt:  now.Add(-time.Hour),
	}

	draft := a.RepostDraft("new-id", now)
	assert.Equal(t, "new-id", draft.ID)
	assert.Equal(t, "Emart Traders", draft.Store)
	assert.Equal(t, "bulk rice", draft.Item)
	assert.Equal(t, now.Format(DateLayout), draft.Date)
	assert.Equal(t, now.Format(TimeLayout), draft.StartTime)
	assert.Equal(t, now.Add(RepostWindow).Format(TimeLayout), draft.EndTime)

	p, err := New(draft)
	require.NoError(t, err)
	assert.False(t, p.IsExpired(now))
}
