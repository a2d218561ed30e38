package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoom(t *testing.T) {
	t.Run("commutative for all pairs", func(t *testing.T) {
		pairs := [][2]string{
			{"alice@mail.com", "bob@mail.com"},
			{"bob@mail.com", "alice@mail.com"},
			{"z@mail.com", "a@mail.com"},
			{"a", "b"},
		}
		for _, pair := range pairs {
			ab, err := ResolveRoom(pair[0], pair[1])
			require.NoError(t, err)
			ba, err := ResolveRoom(pair[1], pair[0])
			require.NoError(t, err)
			assert.Equal(t, ab, ba)
		}
	})

	t.Run("sorted lexicographically", func(t *testing.T) {
		roomID, err := ResolveRoom("bob@mail.com", "alice@mail.com")
		require.NoError(t, err)
		assert.Equal(t, "alice@mail.com|bob@mail.com", roomID)
	})

	t.Run("identical identities resolve to a degenerate room", func(t *testing.T) {
		roomID, err := ResolveRoom("alice@mail.com", "alice@mail.com")
		require.NoError(t, err)
		assert.Equal(t, "alice@mail.com|alice@mail.com", roomID)
	})

	t.Run("identity containing the separator is rejected", func(t *testing.T) {
		_, err := ResolveRoom("alice|mail.com", "bob@mail.com")
		assert.ErrorIs(t, err, ErrInvalidIdentity)
	})

	t.Run("empty identity is rejected", func(t *testing.T) {
		_, err := ResolveRoom("", "bob@mail.com")
		assert.ErrorIs(t, err, ErrInvalidIdentity)
	})
}

func TestSplitRoom(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		roomID, err := ResolveRoom("bob@mail.com", "alice@mail.com")
		require.NoError(t, err)
		a, b, err := SplitRoom(roomID)
		require.NoError(t, err)
		assert.Equal(t, "alice@mail.com", a)
		assert.Equal(t, "bob@mail.com", b)
	})

	t.Run("malformed ids are rejected", func(t *testing.T) {
		for _, roomID := range []string{
			"",
			"alice@mail.com",
			"|bob@mail.com",
			"alice@mail.com|",
			// non-canonical order
			"bob@mail.com|alice@mail.com",
		} {
			_, _, err := SplitRoom(roomID)
			assert.ErrorIs(t, err, ErrInvalidRoom, "roomID=%q", roomID)
		}
	})
}

func TestCounterpart(t *testing.T) {
	roomID, err := ResolveRoom("alice@mail.com", "bob@mail.com")
	require.NoError(t, err)

	t.Run("either participant yields the other", func(t *testing.T) {
		peer, err := Counterpart(roomID, "alice@mail.com")
		require.NoError(t, err)
		assert.Equal(t, "bob@mail.com", peer)

		peer, err = Counterpart(roomID, "bob@mail.com")
		require.NoError(t, err)
		assert.Equal(t, "alice@mail.com", peer)
	})

	t.Run("non-participant is rejected", func(t *testing.T) {
		_, err := Counterpart(roomID, "carol@mail.com")
		assert.ErrorIs(t, err, ErrInvalidRoom)
	})
}
