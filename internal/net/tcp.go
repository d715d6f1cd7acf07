package net

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	// maxFrame bounds one newline-delimited frame; a full history sync can be large.
	maxFrame = 16 << 20
	// writeTimeout drops a client that stops reading.
	writeTimeout = 5 * time.Second
)

// Hub is the hosting side of a TCP session. It accepts clients, relays each
// frame a client sends to every other client, and is itself a Channel so the
// host's own engine takes part in the session.
type Hub struct {
	ln     net.Listener
	logger *slog.Logger

	in inbox

	mu     sync.RWMutex
	conns  map[net.Conn]bool
	joined func()
	closed bool
}

// ListenTCP starts a hub on addr (for example ":8888").
func ListenTCP(addr string, logger *slog.Logger) (*Hub, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		ln:     ln,
		logger: logger.With("component", "tcp-hub"),
		conns:  make(map[net.Conn]bool),
	}, nil
}

// Addr returns the listening address.
func (h *Hub) Addr() net.Addr { return h.ln.Addr() }

// Port returns the listening port, which differs from the requested one
// when listening on port 0.
func (h *Hub) Port() int {
	if a, ok := h.ln.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// Serve accepts clients until ctx is cancelled or the hub is closed.
func (h *Hub) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		h.Close()
	}()
	h.logger.Info("hosting session", "addr", h.ln.Addr().String())
	for {
		conn, err := h.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			h.logger.Warn("accept failed", "error", err)
			continue
		}
		h.add(conn)
		go h.handle(conn)

		h.mu.RLock()
		joined := h.joined
		h.mu.RUnlock()
		if joined != nil {
			go joined()
		}
	}
}

// OnJoin registers fn to run whenever a client connects. Hosts use it to
// send a snapshot to late joiners.
func (h *Hub) OnJoin(fn func()) {
	h.mu.Lock()
	h.joined = fn
	h.mu.Unlock()
}

func (h *Hub) add(conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
	h.logger.Info("client connected", "remote", conn.RemoteAddr().String())
}

func (h *Hub) remove(conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	h.logger.Info("client disconnected", "remote", conn.RemoteAddr().String())
}

func (h *Hub) handle(conn net.Conn) {
	defer conn.Close()
	defer h.remove(conn)

	err := readFrames(conn, func(frame []byte) {
		h.broadcast(frame, conn)
		h.in.deliver(frame)
	})
	if err != nil {
		h.logger.Debug("client read ended", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

// broadcast writes frame to every client except exclude. Writes happen
// outside the lock; a client that cannot take a frame within writeTimeout
// is disconnected.
func (h *Hub) broadcast(frame []byte, exclude net.Conn) {
	line := make([]byte, len(frame)+1)
	copy(line, frame)
	line[len(frame)] = '\n'

	h.mu.RLock()
	targets := make([]net.Conn, 0, len(h.conns))
	for conn := range h.conns {
		if conn != exclude {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := conn.Write(line); err != nil {
			h.logger.Warn("relay failed, dropping client", "remote", conn.RemoteAddr().String(), "error", err)
			conn.Close()
		}
	}
}

// Send broadcasts a frame from the host to every client.
func (h *Hub) Send(b []byte) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrChannelClosed
	}
	h.broadcast(b, nil)
	return nil
}

// OnMessage installs fn. Frames received before it is set are held and
// delivered on installation.
func (h *Hub) OnMessage(fn func([]byte)) { h.in.set(fn) }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close stops accepting and disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	conns := make([]net.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	err := h.ln.Close()
	for _, c := range conns {
		c.Close()
	}
	return err
}

// TCPClient is a participant connected to a Hub.
type TCPClient struct {
	conn   net.Conn
	logger *slog.Logger

	in      inbox
	writeMu sync.Mutex
	done    chan struct{}
}

// DialTCP connects to a hub at addr and starts reading frames.
func DialTCP(ctx context.Context, addr string, logger *slog.Logger) (*TCPClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &TCPClient{
		conn:   conn,
		logger: logger.With("component", "tcp-client", "host", addr),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// LocalAddr is the client's own address, unique within the session.
func (c *TCPClient) LocalAddr() string { return c.conn.LocalAddr().String() }

// Done is closed when the connection to the hub ends.
func (c *TCPClient) Done() <-chan struct{} { return c.done }

func (c *TCPClient) readLoop() {
	defer close(c.done)
	err := readFrames(c.conn, c.in.deliver)
	c.logger.Info("disconnected from host", "error", err)
}

func (c *TCPClient) Send(b []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	line := make([]byte, len(b)+1)
	copy(line, b)
	line[len(b)] = '\n'
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// OnMessage installs fn. Frames received before it is set are held and
// delivered on installation.
func (c *TCPClient) OnMessage(fn func([]byte)) { c.in.set(fn) }

func (c *TCPClient) Close() error {
	return c.conn.Close()
}

// readFrames calls fn with each newline-terminated frame until the
// connection fails. A clean EOF returns nil.
func readFrames(conn net.Conn, fn func([]byte)) error {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 64*1024), maxFrame)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		frame := make([]byte, len(sc.Bytes()))
		copy(frame, sc.Bytes())
		fn(frame)
	}
	return sc.Err()
}
