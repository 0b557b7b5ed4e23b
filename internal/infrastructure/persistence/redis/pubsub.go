package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/kanaquest/progress-engine/internal/infrastructure/messaging"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUB/SUB ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// PubSub adapts a go-redis client to the messaging.RedisClient interface,
// so the distributed event bus can ride on the same connection pool as
// the caches.
type PubSub struct {
	client *redis.Client
}

// NewPubSub creates a PubSub adapter over an existing client.
func NewPubSub(client *redis.Client) *PubSub {
	return &PubSub{client: client}
}

// Publish sends a message to the given channel.
func (p *PubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	return p.client.Publish(ctx, channel, message).Err()
}

// Subscribe subscribes to the given channels and pumps messages into the
// returned channel until ctx is cancelled. The subscription is confirmed
// before returning, so no messages published afterwards are lost.
func (p *PubSub) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	sub := p.client.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage, 64)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close is a no-op: the underlying client is owned by the Cache.
func (p *PubSub) Close() error {
	return nil
}
