package net

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const publishTimeout = 5 * time.Second

// RedisChannel carries a session over a Redis pub/sub topic. Redis delivers
// a publisher's own messages back to it; the Adapter drops those echoes.
type RedisChannel struct {
	client *redis.Client
	pubsub *redis.PubSub
	topic  string
	logger *slog.Logger

	in   inbox
	done chan struct{}
}

// RedisTopic is the pub/sub channel name for a session.
func RedisTopic(session string) string {
	return "liveannotate:" + session
}

// DialRedis connects to addr and subscribes to the session topic.
func DialRedis(ctx context.Context, addr, password, session string, logger *slog.Logger) (*RedisChannel, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return newRedisChannel(ctx, client, session, logger)
}

func newRedisChannel(ctx context.Context, client *redis.Client, session string, logger *slog.Logger) (*RedisChannel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	topic := RedisTopic(session)
	ps := client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		client.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	c := &RedisChannel{
		client: client,
		pubsub: ps,
		topic:  topic,
		logger: logger.With("component", "redis", "topic", topic),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *RedisChannel) readLoop() {
	defer close(c.done)
	for msg := range c.pubsub.Channel() {
		c.in.deliver([]byte(msg.Payload))
	}
	c.logger.Info("subscription closed")
}

func (c *RedisChannel) Send(b []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := c.client.Publish(ctx, c.topic, b).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// OnMessage installs fn. Messages received before it is set are held and
// delivered on installation.
func (c *RedisChannel) OnMessage(fn func([]byte)) { c.in.set(fn) }

func (c *RedisChannel) Close() error {
	err := c.pubsub.Close()
	if cerr := c.client.Close(); err == nil {
		err = cerr
	}
	return err
}
