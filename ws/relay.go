package ws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/putto11262002/relay/core"
)

const defaultEventTimeout = 10 * time.Second

// Relay drives the per-connection protocol state machine: Connected (no
// session) -> Joined (session present) -> Closed. Each connection's frames
// arrive one at a time in wire order; frames of different connections are
// handled concurrently. Every event runs inside a failure boundary: nothing
// that goes wrong while handling a frame tears down the connection or the
// process, the event is logged and dropped.
type Relay struct {
	registry *Registry
	messages core.MessageStore
	contacts *core.ContactSync
	timeout  time.Duration
	logger   *slog.Logger
}

type RelayOption func(*Relay)

// WithEventTimeout bounds the store and directory work done for one inbound
// event. Past the deadline the event is abandoned per the failure boundary.
func WithEventTimeout(d time.Duration) RelayOption {
	return func(r *Relay) {
		r.timeout = d
	}
}

func NewRelay(registry *Registry, messages core.MessageStore, contacts *core.ContactSync,
	logger *slog.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		registry: registry,
		messages: messages,
		contacts: contacts,
		timeout:  defaultEventTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) HandleFrame(conn Conn, data []byte) {
	in, err := DecodeInbound(data)
	if err != nil {
		r.logger.Warn("dropping frame",
			slog.String("conn", conn.ID()), slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	switch in.Type {
	case TypeJoin:
		r.handleJoin(ctx, conn, in.Join)
	case TypeChat:
		r.handleChat(ctx, conn, in.Chat)
	}
}

func (r *Relay) HandleClose(conn Conn) {
	r.registry.Remove(conn)
	r.logger.Debug("connection closed", slog.String("conn", conn.ID()))
}

func (r *Relay) handleJoin(ctx context.Context, conn Conn, frame *JoinFrame) {
	if id := conn.Identity(); id != "" && id != frame.Self {
		r.logger.Warn("join rejected: self does not match connection identity",
			slog.String("conn", conn.ID()), slog.String("self", frame.Self))
		return
	}

	roomID, err := r.registry.Join(conn, frame.Self, frame.Target)
	if err != nil {
		r.logger.Warn("join rejected",
			slog.String("conn", conn.ID()), slog.String("self", frame.Self),
			slog.String("target", frame.Target), slog.String("error", err.Error()))
		return
	}

	messages, err := r.messages.ListByRoom(ctx, roomID)
	if err != nil {
		r.logger.Error("fetching history",
			slog.String("room", roomID), slog.String("error", err.Error()))
		return
	}

	r.logger.Info("joined room",
		slog.String("conn", conn.ID()), slog.String("identity", frame.Self),
		slog.String("room", roomID))
	// History goes to the joining connection only. The other members are not
	// told about the join.
	r.registry.sendOrDrop(conn, &HistoryFrame{Type: TypeHistory, Messages: messages})
}

func (r *Relay) handleChat(ctx context.Context, conn Conn, frame *ChatFrame) {
	sess, ok := r.registry.SessionOf(conn)
	if !ok {
		r.logger.Warn("dropping chat from connection without a session",
			slog.String("conn", conn.ID()))
		return
	}

	peer, err := core.Counterpart(sess.RoomID, sess.Identity)
	if err != nil {
		r.logger.Error("resolving counterpart",
			slog.String("room", sess.RoomID), slog.String("error", err.Error()))
		return
	}

	senderAdded := r.ensureContact(ctx, sess.Identity, peer)
	peerAdded := r.ensureContact(ctx, peer, sess.Identity)

	msg, err := r.messages.Append(ctx, sess.RoomID, sess.Identity, frame.Text, frame.File)
	if err != nil {
		// The message is lost: no echo to the sender and no history entry.
		// This log line is the only place the loss is visible.
		r.logger.Error("persisting message",
			slog.String("room", sess.RoomID), slog.String("from", sess.Identity),
			slog.String("error", err.Error()))
		return
	}

	r.registry.Broadcast(sess.RoomID, &ChatEvent{
		Type:      TypeChat,
		From:      msg.Sender,
		Text:      msg.Text,
		File:      msg.File,
		CreatedAt: msg.CreatedAt,
	})

	if senderAdded {
		r.registry.sendOrDrop(conn, contactAdded(peer))
	}
	if peerAdded {
		// The counterpart only hears about their new entry if they are
		// currently in the room; otherwise the notice is skipped silently.
		if peerConn, ok := r.registry.ConnOf(sess.RoomID, peer); ok {
			r.registry.sendOrDrop(peerConn, contactAdded(sess.Identity))
		}
	}
}

// ensureContact degrades a failed synchronization to "not inserted": contact
// bookkeeping must never get in the way of message delivery.
func (r *Relay) ensureContact(ctx context.Context, owner, contact string) bool {
	inserted, err := r.contacts.Ensure(ctx, owner, contact)
	if err != nil {
		r.logger.Warn("contact sync failed",
			slog.String("owner", owner), slog.String("contact", contact),
			slog.String("error", err.Error()))
		return false
	}
	return inserted
}

func contactAdded(contact string) *ContactAddedFrame {
	return &ContactAddedFrame{
		Type:    TypeContactAdded,
		Message: fmt.Sprintf("%s was added to your contacts", contact),
	}
}
