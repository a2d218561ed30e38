package ws

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// Hub accepts websocket upgrades and owns the lifecycle of every live
// connection: it starts the read and write loops, feeds inbound frames to the
// relay, and drains all connections on Close.
type Hub struct {
	relay      *Relay
	identifier *TokenIdentifier
	upgrader   websocket.Upgrader
	logger     *slog.Logger

	mu     sync.Mutex
	conns  map[*WSConn]struct{}
	closed bool

	wg           sync.WaitGroup
	closeTimeout time.Duration
}

type HubOption func(*Hub)

// WithAllowedOrigins restricts the handshake to the given origins. "*" allows
// any origin.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			if lo.Contains(origins, "*") {
				return true
			}
			return lo.Contains(origins, r.Header.Get("Origin"))
		}
	}
}

func WithCloseTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		h.closeTimeout = d
	}
}

func NewHub(relay *Relay, identifier *TokenIdentifier, logger *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		relay:      relay,
		identifier: identifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:       logger,
		conns:        make(map[*WSConn]struct{}),
		closeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identifier.Identify(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(fmt.Sprintf("upgrade: %v", err))
		return
	}

	conn := newWSConn(sock, identity, h.logger)
	if !h.track(conn) {
		conn.Close()
		sock.Close()
		return
	}
	h.logger.Info("new connection",
		slog.String("conn", conn.ID()), slog.String("identity", identity))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		conn.writeLoop()
	}()
	go func() {
		defer h.wg.Done()
		conn.readLoop(h)
	}()
}

func (h *Hub) HandleFrame(conn Conn, data []byte) {
	h.relay.HandleFrame(conn, data)
}

func (h *Hub) HandleClose(conn Conn) {
	h.relay.HandleClose(conn)
	if c, ok := conn.(*WSConn); ok {
		h.untrack(c)
	}
}

// Close stops accepting connections, closes the live ones, and waits for
// their loops to exit or the close timeout to pass.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := lo.Keys(h.conns)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		h.logger.Info("hub closed gracefully")
	case <-time.After(h.closeTimeout):
		h.logger.Warn("hub close timed out")
	}
}

func (h *Hub) track(conn *WSConn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[conn] = struct{}{}
	return true
}

func (h *Hub) untrack(conn *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}
