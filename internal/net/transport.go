package net

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrChannelClosed is returned when sending on a closed channel.
var ErrChannelClosed = errors.New("channel closed")

// Channel is a broadcast byte pipe shared by every participant of a session.
// Handlers may be called from any goroutine.
type Channel interface {
	Send(b []byte) error
	OnMessage(fn func(b []byte))
	Close() error
}

// Recorder counts protocol traffic. metrics.Metrics implements it.
type Recorder interface {
	IncSent(kind string)
	IncReceived(kind string)
	IncDropped(reason string)
}

// Drop reasons reported to the Recorder.
const (
	DropMalformed = "malformed"
	DropEcho      = "echo"
	DropSendError = "send_error"
	DropEncode    = "encode_error"
	DropQueueFull = "queue_full"
)

const (
	// DefaultQueueSize is the number of encoded messages an Adapter buffers
	// for its writer.
	DefaultQueueSize = 256
	// drainTimeout bounds how long Close waits for queued messages.
	drainTimeout = 2 * time.Second
)

// maxPending bounds the frames an inbox holds while no handler is set.
const maxPending = 1024

// inbox hands inbound frames to a Channel's handler in arrival order.
// Frames that arrive before a handler is installed are held, up to
// maxPending, and flushed by set.
type inbox struct {
	mu      sync.Mutex
	handler func([]byte)
	pending [][]byte
}

func (i *inbox) set(fn func([]byte)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.handler = fn
	if fn == nil {
		return
	}
	pending := i.pending
	i.pending = nil
	for _, b := range pending {
		fn(b)
	}
}

func (i *inbox) deliver(b []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.handler == nil {
		if len(i.pending) < maxPending {
			i.pending = append(i.pending, b)
		}
		return
	}
	i.handler(b)
}

type nopRecorder struct{}

func (nopRecorder) IncSent(string)     {}
func (nopRecorder) IncReceived(string) {}
func (nopRecorder) IncDropped(string)  {}

// Adapter speaks the annotation protocol over a Channel. Sends are
// fire-and-forget: messages are encoded on the caller and queued for a
// writer goroutine, so a slow transport never blocks the caller. Failures
// and overflow are logged and counted, never returned.
type Adapter struct {
	ch        Channel
	codec     Codec
	site      string
	logger    *slog.Logger
	rec       Recorder
	queueSize int

	mu      sync.RWMutex
	handler func(Message)

	qmu       sync.RWMutex
	queue     chan outbound
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

type outbound struct {
	kind Kind
	b    []byte
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithCodec selects the wire format (JSON by default).
func WithCodec(c Codec) AdapterOption {
	return func(a *Adapter) { a.codec = c }
}

// WithLogger sets the adapter's logger.
func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// WithRecorder reports traffic to r.
func WithRecorder(r Recorder) AdapterOption {
	return func(a *Adapter) { a.rec = r }
}

// WithQueueSize sets the outbound queue length. Zero writes on the
// caller's goroutine.
func WithQueueSize(n int) AdapterOption {
	return func(a *Adapter) { a.queueSize = max(0, n) }
}

// NewAdapter wraps ch. site tags outbound messages; inbound messages with
// the same sender are dropped as echoes.
func NewAdapter(ch Channel, site string, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		ch:        ch,
		codec:     JSONCodec{},
		site:      site,
		logger:    slog.Default(),
		rec:       nopRecorder{},
		queueSize: DefaultQueueSize,
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	a.logger = a.logger.With("component", "sync", "codec", a.codec.Name())
	if a.queueSize > 0 {
		a.queue = make(chan outbound, a.queueSize)
		go a.writeLoop()
	} else {
		close(a.done)
	}
	ch.OnMessage(a.receive)
	return a
}

// Site returns the id stamped on outbound messages.
func (a *Adapter) Site() string { return a.site }

// Send encodes m and queues it for broadcast. It does not block: when the
// queue is full the message is dropped and counted.
func (a *Adapter) Send(m Message) {
	m.Sender = a.site
	b, err := a.codec.Encode(m)
	if err != nil {
		a.logger.Error("encode failed", "type", m.Type, "error", err)
		a.rec.IncDropped(DropEncode)
		return
	}
	o := outbound{kind: m.Type, b: b}

	a.qmu.RLock()
	defer a.qmu.RUnlock()
	switch {
	case a.closed:
		a.logger.Warn("send after close", "type", m.Type)
		a.rec.IncDropped(DropSendError)
	case a.queue == nil:
		a.write(o)
	default:
		select {
		case a.queue <- o:
		default:
			a.logger.Warn("outbound queue full", "type", m.Type, "size", a.queueSize)
			a.rec.IncDropped(DropQueueFull)
		}
	}
}

func (a *Adapter) writeLoop() {
	defer close(a.done)
	for o := range a.queue {
		a.write(o)
	}
}

func (a *Adapter) write(o outbound) {
	if err := a.ch.Send(o.b); err != nil {
		a.logger.Warn("send failed", "type", o.kind, "error", err)
		a.rec.IncDropped(DropSendError)
		return
	}
	a.rec.IncSent(string(o.kind))
}

// OnMessage installs the handler for decoded inbound messages.
func (a *Adapter) OnMessage(fn func(Message)) {
	a.mu.Lock()
	a.handler = fn
	a.mu.Unlock()
}

// Close stops accepting sends, waits briefly for queued messages to be
// written and closes the underlying channel. It is safe to call twice.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.qmu.Lock()
		a.closed = true
		if a.queue != nil {
			close(a.queue)
		}
		a.qmu.Unlock()

		select {
		case <-a.done:
		case <-time.After(drainTimeout):
			a.logger.Warn("closing with unsent messages", "pending", len(a.queue))
		}
		a.closeErr = a.ch.Close()
	})
	return a.closeErr
}

func (a *Adapter) receive(b []byte) {
	m, err := a.codec.Decode(b)
	if err != nil {
		a.logger.Warn("dropping inbound message", "error", err, "bytes", len(b))
		a.rec.IncDropped(DropMalformed)
		return
	}
	if a.site != "" && m.Sender == a.site {
		a.rec.IncDropped(DropEcho)
		return
	}
	a.rec.IncReceived(string(m.Type))

	a.mu.RLock()
	fn := a.handler
	a.mu.RUnlock()
	if fn != nil {
		fn(m)
	}
}
