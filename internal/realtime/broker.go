package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis pub/sub channel shared by all gateway instances.
const DefaultChannel = "taakra:realtime"

// Envelope is one event addressed to a room, or to every connection when Room is empty.
type Envelope struct {
	Room   string          `json:"room,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
	Except string          `json:"except,omitempty"`
}

// Broker fans envelopes out to every subscribed instance, including the publisher.
type Broker interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe delivers envelopes to fn until ctx is done.
	Subscribe(ctx context.Context, fn func(Envelope)) error
	Close() error
}

// MemoryBroker delivers within the process only.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[int]func(Envelope)
	next int
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: map[int]func(Envelope){}}
}

func (b *MemoryBroker) Publish(_ context.Context, env Envelope) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(env)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, fn func(Envelope)) error {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBroker) Close() error { return nil }

// RedisBroker relays envelopes over a Redis pub/sub channel.
type RedisBroker struct {
	rdb     redis.UniversalClient
	channel string
}

func NewRedisBroker(rdb redis.UniversalClient, channel string) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{rdb: rdb, channel: channel}
}

func (b *RedisBroker) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode realtime envelope failed")
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "publish realtime envelope failed")
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, fn func(Envelope)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed so no early publish is lost
	if _, err := sub.Receive(ctx); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "subscribe realtime channel failed")
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.L().Warn("dropping malformed realtime envelope", zap.Error(err))
				continue
			}
			fn(env)
		}
	}
}

// Close is a no-op; the Redis client is owned by the caller.
func (b *RedisBroker) Close() error { return nil }
