package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	t.Run("join", func(t *testing.T) {
		in, err := DecodeInbound([]byte(`{"type":"join","self":"alice@mail.com","target":"bob@mail.com"}`))
		require.NoError(t, err)
		require.Equal(t, TypeJoin, in.Type)
		require.NotNil(t, in.Join)
		assert.Equal(t, "alice@mail.com", in.Join.Self)
		assert.Equal(t, "bob@mail.com", in.Join.Target)
	})

	t.Run("chat", func(t *testing.T) {
		in, err := DecodeInbound([]byte(`{"type":"chat","text":"hi","file":"{\"name\":\"cat.png\"}"}`))
		require.NoError(t, err)
		require.Equal(t, TypeChat, in.Type)
		require.NotNil(t, in.Chat)
		assert.Equal(t, "hi", in.Chat.Text)
		assert.Equal(t, `{"name":"cat.png"}`, in.Chat.File)
	})

	t.Run("rejected frames", func(t *testing.T) {
		for name, data := range map[string]string{
			"not json":           `hello`,
			"unknown tag":        `{"type":"typing"}`,
			"missing tag":        `{"text":"hi"}`,
			"join without self":  `{"type":"join","target":"bob@mail.com"}`,
			"join with bad self": `{"type":"join","self":"not an email","target":"bob@mail.com"}`,
			"chat without text":  `{"type":"chat"}`,
		} {
			_, err := DecodeInbound([]byte(data))
			assert.ErrorIs(t, err, ErrProtocol, name)
		}
	})
}
