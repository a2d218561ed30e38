package ws

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/putto11262002/relay/core"
)

// Session binds a live connection to the identity and room it joined.
type Session struct {
	Identity string
	RoomID   string
}

var (
	ErrAlreadyJoined = errors.New("connection already joined a room")
	ErrSelfRoom      = errors.New("cannot join a room with yourself")
)

// Registry tracks every joined connection and the member set of every room.
// Both maps are guarded by one mutex; there is no hot loop here that would
// justify finer locking.
type Registry struct {
	mu       sync.Mutex
	sessions map[Conn]Session
	rooms    map[string]map[Conn]struct{}
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[Conn]Session),
		rooms:    make(map[string]map[Conn]struct{}),
		logger:   logger,
	}
}

// Join resolves the room shared by self and target, records the connection's
// session, and adds it to the room's member set, atomically. Joining twice
// (ErrAlreadyJoined) and joining a room with oneself (ErrSelfRoom) are
// rejected; the connection is left untouched either way.
func (r *Registry) Join(conn Conn, self, target string) (string, error) {
	if self == target {
		return "", ErrSelfRoom
	}
	roomID, err := core.ResolveRoom(self, target)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[conn]; ok {
		return "", ErrAlreadyJoined
	}
	r.sessions[conn] = Session{Identity: self, RoomID: roomID}
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[Conn]struct{})
		r.rooms[roomID] = members
	}
	members[conn] = struct{}{}
	return roomID, nil
}

// SessionOf returns the session a connection established by joining, if any.
func (r *Registry) SessionOf(conn Conn) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[conn]
	return sess, ok
}

// Remove deletes the connection's session and room membership. It is a no-op
// for connections that never joined and is safe to call repeatedly.
func (r *Registry) Remove(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[conn]
	if !ok {
		return
	}
	delete(r.sessions, conn)
	members, ok := r.rooms[sess.RoomID]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(r.rooms, sess.RoomID)
	}
}

// MembersOf returns a snapshot of the room's live connections.
func (r *Registry) MembersOf(roomID string) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := make([]Conn, 0, len(r.rooms[roomID]))
	for conn := range r.rooms[roomID] {
		members = append(members, conn)
	}
	return members
}

// ConnOf locates a room member by identity. It is used to deliver private
// notices to the counterpart when they are currently online.
func (r *Registry) ConnOf(roomID, identity string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for conn := range r.rooms[roomID] {
		if r.sessions[conn].Identity == identity {
			return conn, true
		}
	}
	return nil, false
}

// Broadcast delivers frame to every member of the room. A failed send drops
// only that member; delivery to the rest continues.
func (r *Registry) Broadcast(roomID string, frame any) {
	for _, conn := range r.MembersOf(roomID) {
		r.sendOrDrop(conn, frame)
	}
}

// sendOrDrop delivers frame to one connection, evicting it from the registry
// when the send fails so a dead peer cannot wedge its room.
func (r *Registry) sendOrDrop(conn Conn, frame any) {
	if err := conn.Send(frame); err != nil {
		r.logger.Warn("dropping connection",
			slog.String("conn", conn.ID()), slog.String("error", err.Error()))
		r.Remove(conn)
		conn.Close()
	}
}
