package net

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// DefaultSession is used when a client names no session.
const DefaultSession = "default"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsPeer serialises writes to one websocket connection.
type wsPeer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *wsPeer) write(msgType int, b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(msgType, b)
}

// WSHub relays websocket messages between the participants of each
// session. Sessions are selected by the "session" query parameter.
type WSHub struct {
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]map[*wsPeer]bool
}

// NewWSHub returns a relay with no sessions.
func NewWSHub(logger *slog.Logger) *WSHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHub{
		logger:   logger.With("component", "ws-hub"),
		sessions: make(map[string]map[*wsPeer]bool),
	}
}

func (h *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	if session == "" {
		session = DefaultSession
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "error", err)
		return
	}
	peer := &wsPeer{conn: conn}
	h.subscribe(session, peer)
	defer func() {
		h.unsubscribe(session, peer)
		conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("connection closed unexpectedly", "session", session, "error", err)
			}
			return
		}
		h.relay(session, peer, msgType, data)
	}
}

func (h *WSHub) subscribe(session string, p *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[session] == nil {
		h.sessions[session] = make(map[*wsPeer]bool)
	}
	h.sessions[session][p] = true
	h.logger.Info("participant joined", "session", session, "participants", len(h.sessions[session]))
}

func (h *WSHub) unsubscribe(session string, p *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions[session], p)
	if len(h.sessions[session]) == 0 {
		delete(h.sessions, session)
	}
}

func (h *WSHub) relay(session string, from *wsPeer, msgType int, data []byte) {
	h.mu.RLock()
	peers := make([]*wsPeer, 0, len(h.sessions[session]))
	for p := range h.sessions[session] {
		if p != from {
			peers = append(peers, p)
		}
	}
	h.mu.RUnlock()

	for _, p := range peers {
		if err := p.write(msgType, data); err != nil {
			h.logger.Warn("relay failed", "session", session, "error", err)
		}
	}
}

// Participants returns the number of connections in session.
func (h *WSHub) Participants(session string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[session])
}

// WSClient is a Channel over one websocket connection to a WSHub.
type WSClient struct {
	peer   *wsPeer
	binary bool
	logger *slog.Logger

	in   inbox
	done chan struct{}
}

// DialWebSocket connects to url. Binary frames are used when binary is set
// (for CBOR), text frames otherwise.
func DialWebSocket(ctx context.Context, url string, binary bool, logger *slog.Logger) (*WSClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &WSClient{
		peer:   &wsPeer{conn: conn},
		binary: binary,
		logger: logger.With("component", "ws-client"),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *WSClient) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.peer.conn.ReadMessage()
		if err != nil {
			c.logger.Info("websocket closed", "error", err)
			return
		}
		c.in.deliver(data)
	}
}

// Done is closed when the connection ends.
func (c *WSClient) Done() <-chan struct{} { return c.done }

func (c *WSClient) Send(b []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	msgType := websocket.TextMessage
	if c.binary {
		msgType = websocket.BinaryMessage
	}
	return c.peer.write(msgType, b)
}

// OnMessage installs fn. Frames received before it is set are held and
// delivered on installation.
func (c *WSClient) OnMessage(fn func([]byte)) { c.in.set(fn) }

func (c *WSClient) Close() error {
	_ = c.peer.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.peer.conn.Close()
}
