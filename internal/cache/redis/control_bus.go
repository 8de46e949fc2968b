package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jmreyes/memesnipe/internal/domain"
)

// controlChannel is the Pub/Sub channel carrying trading halt broadcasts.
const controlChannel = "control:trading"

// ControlBus implements domain.ControlBus over Redis Pub/Sub on the
// control:trading channel.
type ControlBus struct {
	rdb *redis.Client
}

// NewControlBus creates a ControlBus backed by the given Client.
func NewControlBus(c *Client) *ControlBus {
	return &ControlBus{rdb: c.rdb}
}

// Publish broadcasts a control message to every subscriber.
func (b *ControlBus) Publish(ctx context.Context, message string) error {
	if err := b.rdb.Publish(ctx, controlChannel, message).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", controlChannel, err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription and returns a read-only channel of
// control messages. The subscription is closed when the context is
// cancelled; the returned channel is closed at that point as well.
func (b *ControlBus) Subscribe(ctx context.Context) (<-chan string, error) {
	pubsub := b.rdb.Subscribe(ctx, controlChannel)

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", controlChannel, err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Compile-time interface check.
var _ domain.ControlBus = (*ControlBus)(nil)
