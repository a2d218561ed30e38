package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/putto11262002/relay/core"
)

const (
	TypeJoin         = "join"
	TypeChat         = "chat"
	TypeHistory      = "history"
	TypeContactAdded = "contact_added"
)

// ErrProtocol marks a frame that could not be decoded into a known variant.
// Such frames are dropped; the connection stays up.
var ErrProtocol = errors.New("protocol error")

var validate = validator.New()

// JoinFrame requests membership of the room shared by self and target.
type JoinFrame struct {
	Self   string `json:"self" validate:"required,email"`
	Target string `json:"target" validate:"required,email"`
}

// ChatFrame carries one message to the room the connection has joined.
type ChatFrame struct {
	Text string `json:"text" validate:"required"`
	// File is an optional JSON-encoded file descriptor, carried opaquely.
	File string `json:"file"`
}

// Inbound is a client frame decoded into its tagged variant. Exactly one of
// the variant fields is non-nil, matching Type.
type Inbound struct {
	Type string
	Join *JoinFrame
	Chat *ChatFrame
}

// DecodeInbound decodes one wire frame. Unknown tags, malformed JSON, and
// payloads that fail validation all yield ErrProtocol.
func DecodeInbound(data []byte) (*Inbound, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	switch probe.Type {
	case TypeJoin:
		var frame JoinFrame
		if err := decodeFrame(data, &frame); err != nil {
			return nil, err
		}
		return &Inbound{Type: TypeJoin, Join: &frame}, nil
	case TypeChat:
		var frame ChatFrame
		if err := decodeFrame(data, &frame); err != nil {
			return nil, err
		}
		return &Inbound{Type: TypeChat, Chat: &frame}, nil
	default:
		return nil, fmt.Errorf("%w: unknown frame type %q", ErrProtocol, probe.Type)
	}
}

func decodeFrame(data []byte, frame any) error {
	if err := json.Unmarshal(data, frame); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if err := validate.Struct(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return nil
}

// HistoryFrame replays a room's persisted messages to a joining connection.
type HistoryFrame struct {
	Type     string         `json:"type"`
	Messages []core.Message `json:"messages"`
}

// ChatEvent is a chat message fanned out to every member of a room.
type ChatEvent struct {
	Type      string    `json:"type"`
	From      string    `json:"from"`
	Text      string    `json:"text"`
	File      string    `json:"file,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ContactAddedFrame is a private notice that a contact-list entry was created
// on the recipient's behalf.
type ContactAddedFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
