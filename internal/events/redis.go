package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/newsdesk-api/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisFeed shares change events between API replicas over a Redis Pub/Sub channel.
// Events reach local subscribers only after the round trip through Redis, so every
// replica, the publisher included, sees the same stream.
type RedisFeed struct {
	client  *redis.Client
	channel string
	local   *LocalFeed
	log     zerolog.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisFeed creates a feed publishing on channel
func NewRedisFeed(client *redis.Client, channel string, log zerolog.Logger) (*RedisFeed, error) {
	if client == nil {
		return nil, errors.New("events: redis client is nil")
	}
	return &RedisFeed{
		client:  client,
		channel: channel,
		local:   NewLocalFeed(),
		log:     log.With().Str("component", "redis_feed").Str("channel", channel).Logger(),
	}, nil
}

// Publish sends ev to every replica listening on the channel
func (f *RedisFeed) Publish(ctx context.Context, ev models.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Subscribe registers handler for events on table received from the channel
func (f *RedisFeed) Subscribe(table string, filter Filter, handler Handler) func() {
	return f.local.Subscribe(table, filter, handler)
}

// Start subscribes to the channel and relays messages to local subscribers until
// ctx is cancelled or Close is called. The subscription is confirmed before Start returns.
func (f *RedisFeed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubsub != nil {
		return errors.New("events: feed already started")
	}

	pubsub := f.client.Subscribe(ctx, f.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", f.channel, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.pubsub = pubsub
	f.cancel = cancel
	f.done = make(chan struct{})

	go f.relay(runCtx, pubsub.Channel(), f.done)

	f.log.Info().Msg("Change feed subscribed")
	return nil
}

func (f *RedisFeed) relay(ctx context.Context, messages <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg == nil {
				continue
			}
			var ev models.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				f.log.Warn().Err(err).Msg("Dropping malformed change event")
				continue
			}
			f.local.dispatch(ev)
		}
	}
}

// Close stops relaying and releases the subscription
func (f *RedisFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubsub == nil {
		return nil
	}
	f.cancel()
	err := f.pubsub.Close()
	<-f.done
	f.pubsub = nil
	return err
}
