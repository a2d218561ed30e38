package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

// ContactSync keeps the contact lists of two conversing users in sync. It is
// invoked once per direction for every chat message so that a conversation
// auto-populates both parties' contact lists without an explicit add action.
type ContactSync struct {
	directory UserDirectory
	logger    *slog.Logger
}

func NewContactSync(directory UserDirectory, logger *slog.Logger) *ContactSync {
	return &ContactSync{directory: directory, logger: logger}
}

// Ensure makes sure the owner's contact list contains contact. It returns
// true only when the entry was inserted by this call; an entry that already
// exists is left untouched. The owner must have a directory record, otherwise
// ErrUnknownUser is returned.
func (s *ContactSync) Ensure(ctx context.Context, owner, contact string) (bool, error) {
	profile, err := s.directory.Lookup(ctx, contact)
	if err != nil {
		return false, fmt.Errorf("Lookup(contact): %w", err)
	}
	entry := placeholderEntry(contact)
	if profile != nil {
		entry = ContactEntry{Email: profile.Email, Name: profile.Name, Image: profile.Image, Found: true}
	}

	ownerProfile, err := s.directory.Lookup(ctx, owner)
	if err != nil {
		return false, fmt.Errorf("Lookup(owner): %w", err)
	}
	if ownerProfile == nil {
		return false, ErrUnknownUser
	}

	existing, err := s.directory.Contacts(ctx, owner)
	if err != nil {
		return false, fmt.Errorf("Contacts: %w", err)
	}
	if lo.SomeBy(existing, func(e ContactEntry) bool { return e.Email == contact }) {
		return false, nil
	}

	if err := s.directory.AddContact(ctx, owner, entry); err != nil {
		return false, fmt.Errorf("AddContact: %w", err)
	}
	s.logger.Info("contact added",
		slog.String("owner", owner), slog.String("contact", contact), slog.Bool("found", entry.Found))
	return true, nil
}

// placeholderEntry builds the contact entry recorded for an identity with no
// directory record: the local part of the identity stands in for the name.
func placeholderEntry(identity string) ContactEntry {
	name := identity
	if local, _, ok := strings.Cut(identity, "@"); ok && local != "" {
		name = local
	}
	return ContactEntry{Email: identity, Name: name, Found: false}
}
