package net

import "sync"

// Bus is an in-process session: every byte slice sent by one endpoint is
// delivered synchronously to all the others.
type Bus struct {
	mu        sync.RWMutex
	endpoints map[*Endpoint]struct{}
}

// NewBus returns an empty session.
func NewBus() *Bus {
	return &Bus{endpoints: make(map[*Endpoint]struct{})}
}

// Join adds a participant to the bus.
func (b *Bus) Join() *Endpoint {
	e := &Endpoint{bus: b}
	b.mu.Lock()
	b.endpoints[e] = struct{}{}
	b.mu.Unlock()
	return e
}

// Endpoint is one participant's Channel on a Bus.
type Endpoint struct {
	bus *Bus

	mu      sync.RWMutex
	handler func([]byte)
	closed  bool
}

func (e *Endpoint) Send(b []byte) error {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return ErrChannelClosed
	}

	e.bus.mu.RLock()
	peers := make([]*Endpoint, 0, len(e.bus.endpoints))
	for p := range e.bus.endpoints {
		if p != e {
			peers = append(peers, p)
		}
	}
	e.bus.mu.RUnlock()

	for _, p := range peers {
		p.deliver(b)
	}
	return nil
}

func (e *Endpoint) deliver(b []byte) {
	e.mu.RLock()
	fn := e.handler
	e.mu.RUnlock()
	if fn == nil {
		return
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	fn(cp)
}

func (e *Endpoint) OnMessage(fn func([]byte)) {
	e.mu.Lock()
	e.handler = fn
	e.mu.Unlock()
}

func (e *Endpoint) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.bus.mu.Lock()
	delete(e.bus.endpoints, e)
	e.bus.mu.Unlock()
	return nil
}
