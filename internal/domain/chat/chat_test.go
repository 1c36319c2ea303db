package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionID(t *testing.T) {
	t.Run("participant order does not matter", func(t *testing.T) {
		assert.Equal(t, SessionID("p1", "alice", "bob"), SessionID("p1", "bob", "alice"))
	})

	t.Run("distinct posts give distinct sessions", func(t *testing.T) {
		assert.NotEqual(t, SessionID("p1", "alice", "bob"), SessionID("p2", "alice", "bob"))
	})

	t.Run("canonical form", func(t *testing.T) {
		assert.Equal(t, "p1_alice_bob", SessionID("p1", "bob", "alice"))
	})
}

func TestParseSessionID(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		id := SessionID("p1", "bob", "alice")
		postID, a, b, err := ParseSessionID(id)
		require.NoError(t, err)
		assert.Equal(t, "p1", postID)
		assert.Equal(t, "alice", a)
		assert.Equal(t, "bob", b)
	})

	t.Run("malformed ids", func(t *testing.T) {
		for _, id := range []string{"", "p1", "p1_alice", "p1_alice_bob_extra", "_alice_bob", "p1__bob"} {
			_, _, _, err := ParseSessionID(id)
			assert.ErrorIs(t, err, ErrInvalidSessionID, id)
		}
	})
}

func TestSessionParticipants(t *testing.T) {
	s := &Session{Participants: [2]string{"alice", "bob"}}

	assert.True(t, s.HasParticipant("alice"))
	assert.True(t, s.HasParticipant("bob"))
	assert.False(t, s.HasParticipant("mallory"))

	other, ok := s.Counterpart("alice")
	require.True(t, ok)
	assert.Equal(t, "bob", other)

	_, ok = s.Counterpart("mallory")
	assert.False(t, ok)
}
