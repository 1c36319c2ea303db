package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("normalizes email", func(t *testing.T) {
		u, err := NewUser(CreateParams{ID: "u1", Email: "  Alice@Example.COM ", PasswordHash: "hash"})
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.False(t, u.Anonymous)
	})

	t.Run("requires credentials", func(t *testing.T) {
		_, err := NewUser(CreateParams{Email: "a@b.c", PasswordHash: "hash"})
		assert.ErrorIs(t, err, ErrIDRequired)
		_, err = NewUser(CreateParams{ID: "u1", PasswordHash: "hash"})
		assert.ErrorIs(t, err, ErrEmailRequired)
		_, err = NewUser(CreateParams{ID: "u1", Email: "a@b.c"})
		assert.ErrorIs(t, err, ErrPasswordHashMissing)
	})
}

func TestNewAnonymous(t *testing.T) {
	u, err := NewAnonymous("guest1", time.Now())
	require.NoError(t, err)
	assert.True(t, u.Anonymous)
	assert.Empty(t, u.Email)

	_, err = NewAnonymous("  ", time.Now())
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestBlacklist(t *testing.T) {
	now := time.Now()
	u, err := NewAnonymous("alice", now)
	require.NoError(t, err)

	t.Run("block is a set", func(t *testing.T) {
		require.NoError(t, u.Block("bob", now))
		require.NoError(t, u.Block("bob", now))
		assert.Equal(t, []string{"bob"}, u.BlockedUserIDs)
		assert.True(t, u.HasBlocked("bob"))
	})

	t.Run("cannot block yourself", func(t *testing.T) {
		assert.ErrorIs(t, u.Block("alice", now), ErrSelfBlock)
	})

	t.Run("unblock", func(t *testing.T) {
		u.Unblock("bob", now)
		assert.False(t, u.HasBlocked("bob"))
		u.Unblock("nobody", now) // no-op
	})
}
