package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveAnnotate/internal/config"
	"LiveAnnotate/internal/net"
)

func TestWithout(t *testing.T) {
	other := errors.New("other")
	errs := []error{config.ErrMissingIdentity, other, config.ErrInvalidFit}

	got := without(errs, config.ErrMissingIdentity)
	assert.Equal(t, []error{other, config.ErrInvalidFit}, got)
	assert.Len(t, errs, 3)
}

func TestWithSession(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "adds session", raw: "ws://localhost:9000/annotate", want: "ws://localhost:9000/annotate?session=math"},
		{name: "keeps explicit session", raw: "ws://host/annotate?session=art", want: "ws://host/annotate?session=art"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := withSession(tt.raw, "math")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := withSession("://bad", "math")
	assert.Error(t, err)
}

func TestLoopbackAddr(t *testing.T) {
	assert.Equal(t, "localhost:9000", loopbackAddr(":9000"))
	assert.Equal(t, "10.0.0.2:9000", loopbackAddr("10.0.0.2:9000"))
}

func TestOpenLoopbackSession(t *testing.T) {
	cfg := &config.Config{Transport: config.TransportLoopback, Session: "default"}
	s, err := openSession(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	assert.NotNil(t, s.channel)
	assert.Nil(t, s.hub)
	assert.NoError(t, s.Close())
}

func TestOpenTCPHostSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := &config.Config{Transport: config.TransportTCP, TCPPort: 0, Session: "default"}

	s, err := openSession(ctx, cfg, slog.Default())
	require.NoError(t, err)
	defer s.Close()
	require.NotNil(t, s.hub)
	assert.Equal(t, "host", s.identity)
	assert.Contains(t, s.status, "liveannotate://")
}

// countingChannel records sends and closes.
type countingChannel struct {
	sent, closed int
}

func (c *countingChannel) Send([]byte) error      { c.sent++; return nil }
func (c *countingChannel) OnMessage(func([]byte)) {}
func (c *countingChannel) Close() error           { c.closed++; return nil }

func TestSessionCloseDrainsAdapter(t *testing.T) {
	ch := &countingChannel{}
	s := &session{channel: ch}
	adapter := net.NewAdapter(ch, "site")
	s.sync = adapter

	adapter.Send(net.Clear())
	adapter.Send(net.Delete("x"))
	require.NoError(t, s.Close())
	assert.Equal(t, 2, ch.sent)
	assert.Equal(t, 1, ch.closed)
}
