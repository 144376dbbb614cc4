// Package events is the push half of the live-data split: writers publish
// change events per collection, views subscribe and re-query on delivery.
// Delivery order is guaranteed per subscription only; independent channels
// carry no cross-ordering.
package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Message is one delivered change event.
type Message struct {
	Channel string
	Payload []byte
}

// Bus publishes and subscribes over redis pub/sub.
type Bus struct {
	rdb *redis.Client
}

// NewBus returns a Bus backed by rdb.
func NewBus(rdb *redis.Client) *Bus { return &Bus{rdb: rdb} }

// Publish marshals payload as JSON and publishes it on channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel, data).Err()
}

// Subscribe registers a live-query subscription on the given channels.
// The returned channel closes when ctx is cancelled: tearing down the
// owning view releases the registration, so no updates leak to disposed
// consumers.
func (b *Bus) Subscribe(ctx context.Context, channels ...string) <-chan Message {
	ps := b.rdb.Subscribe(ctx, channels...)
	out := make(chan Message)

	go func() {
		<-ctx.Done()
		_ = ps.Close() // closes ps.Channel(), unblocking the forwarder
	}()

	go func() {
		defer close(out)
		for m := range ps.Channel() {
			select {
			case out <- Message{Channel: m.Channel, Payload: []byte(m.Payload)}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
