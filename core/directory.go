package core

import (
	"context"
	"errors"
)

// Profile is a user's public directory record.
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// ContactEntry is one entry of a user's contact list. Found is false when the
// contact had no directory record at the time it was added; such entries carry
// a display name derived from the identity's local part.
type ContactEntry struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Found bool   `json:"found"`
}

var ErrUnknownUser = errors.New("unknown user")

// UserDirectory is the profile and contact-list lookup consumed by the relay.
type UserDirectory interface {
	// Lookup returns the profile for an identity, or nil when the identity
	// has no directory record. A miss is not an error.
	Lookup(ctx context.Context, identity string) (*Profile, error)

	// Contacts returns the owner's contact list.
	Contacts(ctx context.Context, owner string) ([]ContactEntry, error)

	// AddContact appends an entry to the owner's contact list. It returns
	// ErrUnknownUser when the owner has no directory record. Inserting an
	// entry that already exists is a no-op.
	AddContact(ctx context.Context, owner string, entry ContactEntry) error
}
