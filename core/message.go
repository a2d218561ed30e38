package core

import (
	"context"
	"time"
)

// Message is a chat message persisted to a room's log. ID and CreatedAt are
// assigned by the store on append and immutable afterwards.
type Message struct {
	ID     string `json:"id"`
	RoomID string `json:"roomId"`
	Sender string `json:"from"`
	Text   string `json:"text"`
	// File is an optional JSON-encoded file descriptor carried opaquely
	// alongside the text.
	File      string    `json:"file,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageStore is the durable message log consumed by the relay. The store,
// not the relay, is authoritative for persisted messages.
type MessageStore interface {
	// Append persists a message to the room's log and returns it with the
	// store-assigned id and creation time.
	Append(ctx context.Context, roomID, sender, text, file string) (*Message, error)

	// ListByRoom returns the room's messages ordered ascending by creation
	// time. It returns an empty slice, never nil, when the room has no
	// messages.
	ListByRoom(ctx context.Context, roomID string) ([]Message, error)
}
