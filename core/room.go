package core

import (
	"errors"
	"strings"
)

// RoomSeparator joins the two participant identities that make up a room id.
// Identities containing it are rejected so that a room id always decomposes
// unambiguously.
const RoomSeparator = "|"

var (
	ErrInvalidIdentity = errors.New("invalid identity")
	ErrInvalidRoom     = errors.New("invalid room")
)

// ResolveRoom maps two participant identities to the canonical id of the room
// they share. It is commutative: ResolveRoom(a, b) == ResolveRoom(b, a) for
// all valid pairs.
func ResolveRoom(a, b string) (string, error) {
	if !validIdentity(a) || !validIdentity(b) {
		return "", ErrInvalidIdentity
	}
	if b < a {
		a, b = b, a
	}
	return a + RoomSeparator + b, nil
}

// SplitRoom decomposes a room id back into its two participant identities.
func SplitRoom(roomID string) (string, string, error) {
	a, b, ok := strings.Cut(roomID, RoomSeparator)
	if !ok || !validIdentity(a) || !validIdentity(b) || b < a {
		return "", "", ErrInvalidRoom
	}
	return a, b, nil
}

// Counterpart returns the participant of roomID that is not self.
// If self is not a participant of the room, it returns ErrInvalidRoom.
func Counterpart(roomID, self string) (string, error) {
	a, b, err := SplitRoom(roomID)
	if err != nil {
		return "", err
	}
	switch self {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return "", ErrInvalidRoom
}

func validIdentity(id string) bool {
	return id != "" && !strings.Contains(id, RoomSeparator)
}
