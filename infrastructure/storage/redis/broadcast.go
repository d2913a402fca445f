package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
)

// DefaultChannel is the pub/sub channel carrying invalidation broadcasts.
const DefaultChannel = "cacheflow:invalidations"

// InvalidationMessage notifies sibling instances that keys were
// invalidated so they can drop their L1 copies. Delivery is best-effort:
// a missed message only means an L1 copy lives until its TTL.
type InvalidationMessage struct {
	RequestID string    `json:"request_id"`
	Keys      []string  `json:"keys"`
	Tags      []string  `json:"tags,omitempty"`
	Origin    string    `json:"origin"`
	SentAt    time.Time `json:"sent_at"`
}

// Broadcaster publishes and receives invalidation messages over Redis
// pub/sub. Messages published by this instance are ignored on receipt.
type Broadcaster struct {
	client  *redis.Client
	channel string
	origin  string
}

// NewBroadcaster creates a broadcaster identified by origin (typically a
// unique instance ID).
func NewBroadcaster(client *redis.Client, channel, origin string) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broadcaster{client: client, channel: channel, origin: origin}
}

// Publish sends an invalidation message to all subscribed instances.
func (b *Broadcaster) Publish(ctx context.Context, msg InvalidationMessage) error {
	msg.Origin = b.origin
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Join(cache.ErrSerialization, err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return errors.Join(cache.ErrStoreUnavailable, err)
	}
	return nil
}

// Subscribe consumes invalidation messages until ctx is cancelled,
// invoking handler for every message from another instance. Malformed
// messages are dropped. The returned stop function closes the
// subscription and is safe to call more than once.
func (b *Broadcaster) Subscribe(ctx context.Context, handler func(InvalidationMessage)) (func(), error) {
	sub := b.client.Subscribe(ctx, b.channel)

	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, errors.Join(cache.ErrStoreUnavailable, err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg InvalidationMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					continue
				}
				if msg.Origin == b.origin {
					continue
				}
				handler(msg)
			}
		}
	}()

	return func() { _ = sub.Close() }, nil
}
