package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer.
	maxFrameSize = 64 << 10

	// Outbound frames buffered per connection before sends start failing.
	sendBuffer = 16
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is a live duplex channel with one client. Send must never block:
// a slow or dead peer surfaces as a send error, which callers treat as
// grounds for dropping the connection.
type Conn interface {
	// ID identifies this connection. Distinct connections of the same user
	// have distinct ids.
	ID() string
	// Identity is the pre-verified identity bound at the handshake, or ""
	// when the handshake carried none.
	Identity() string
	Send(frame any) error
	Close()
}

// FrameHandler consumes the inbound side of a connection. HandleFrame is
// called once per frame, in wire order; HandleClose exactly once after the
// last frame.
type FrameHandler interface {
	HandleFrame(conn Conn, data []byte)
	HandleClose(conn Conn)
}

// WSConn is the websocket-backed Conn. A read goroutine dispatches frames to
// the handler one at a time; a write goroutine drains the outbound buffer and
// keeps the peer alive with pings.
type WSConn struct {
	id       string
	identity string
	sock     *websocket.Conn
	out      chan any
	done     chan struct{}
	once     sync.Once
	logger   *slog.Logger
}

func newWSConn(sock *websocket.Conn, identity string, logger *slog.Logger) *WSConn {
	id := uuid.New().String()
	return &WSConn{
		id:       id,
		identity: identity,
		sock:     sock,
		out:      make(chan any, sendBuffer),
		done:     make(chan struct{}),
		logger:   logger.With(slog.String("conn", id)),
	}
}

func (c *WSConn) ID() string {
	return c.id
}

func (c *WSConn) Identity() string {
	return c.identity
}

func (c *WSConn) Send(frame any) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close signals both loops to exit. Safe to call more than once and from any
// goroutine.
func (c *WSConn) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *WSConn) readLoop(h FrameHandler) {
	defer func() {
		h.HandleClose(c)
		c.Close()
	}()

	c.sock.SetReadLimit(maxFrameSize)
	c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug(fmt.Sprintf("peer closed: %v", err))
				return
			}
			if websocket.IsUnexpectedCloseError(err) {
				c.logger.Error(fmt.Sprintf("unexpected close: %v", err))
				return
			}
			c.logger.Debug(fmt.Sprintf("ReadMessage: %v", err))
			return
		}
		if mt != websocket.TextMessage {
			c.logger.Debug("dropping non-text frame")
			continue
		}
		h.HandleFrame(c, data)
	}
}

func (c *WSConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-c.out:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteJSON(frame); err != nil {
				c.logger.Error(fmt.Sprintf("WriteJSON: %v", err))
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
