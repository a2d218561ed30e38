package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/putto11262002/relay/core"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockConn struct {
	id       string
	identity string

	mu       sync.Mutex
	frames   []any
	failSend bool
	closed   bool
}

func NewMockConn(id string) *MockConn {
	return &MockConn{id: id}
}

func (c *MockConn) ID() string {
	return c.id
}

func (c *MockConn) Identity() string {
	return c.identity
}

func (c *MockConn) Send(frame any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return ErrSendBufferFull
	}
	if c.closed {
		return ErrConnClosed
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *MockConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MockConn) Frames() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *MockConn) ClearFrames() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

var errStoreDown = errors.New("store down")

type memMessageStore struct {
	mu         sync.Mutex
	byRoom     map[string][]core.Message
	seq        int
	failAppend bool
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{byRoom: make(map[string][]core.Message)}
}

func (s *memMessageStore) Append(ctx context.Context, roomID, sender, text, file string) (*core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return nil, errStoreDown
	}
	s.seq++
	msg := core.Message{
		ID:        fmt.Sprintf("msg-%d", s.seq),
		RoomID:    roomID,
		Sender:    sender,
		Text:      text,
		File:      file,
		CreatedAt: time.Now().UTC().Add(time.Duration(s.seq) * time.Microsecond),
	}
	s.byRoom[roomID] = append(s.byRoom[roomID], msg)
	return &msg, nil
}

func (s *memMessageStore) ListByRoom(ctx context.Context, roomID string) ([]core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := make([]core.Message, len(s.byRoom[roomID]))
	copy(messages, s.byRoom[roomID])
	return messages, nil
}

func (s *memMessageStore) count(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byRoom[roomID])
}

type memDirectory struct {
	mu         sync.Mutex
	profiles   map[string]core.Profile
	contacts   map[string][]core.ContactEntry
	failLookup bool
}

func newMemDirectory(profiles ...core.Profile) *memDirectory {
	d := &memDirectory{
		profiles: make(map[string]core.Profile),
		contacts: make(map[string][]core.ContactEntry),
	}
	for _, p := range profiles {
		d.profiles[p.Email] = p
	}
	return d
}

func (d *memDirectory) Lookup(ctx context.Context, identity string) (*core.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failLookup {
		return nil, errStoreDown
	}
	profile, ok := d.profiles[identity]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

func (d *memDirectory) Contacts(ctx context.Context, owner string) ([]core.ContactEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := make([]core.ContactEntry, len(d.contacts[owner]))
	copy(entries, d.contacts[owner])
	return entries, nil
}

func (d *memDirectory) AddContact(ctx context.Context, owner string, entry core.ContactEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.profiles[owner]; !ok {
		return core.ErrUnknownUser
	}
	for _, existing := range d.contacts[owner] {
		if existing.Email == entry.Email {
			return nil
		}
	}
	d.contacts[owner] = append(d.contacts[owner], entry)
	return nil
}

func (d *memDirectory) contactEmails(owner string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var emails []string
	for _, entry := range d.contacts[owner] {
		emails = append(emails, entry.Email)
	}
	return emails
}
