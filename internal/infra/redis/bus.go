package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"church-quiz-service/internal/platform/logger"
	"church-quiz-service/internal/realtime"
	"github.com/redis/go-redis/v9"
)

// DefaultBusChannel is the pub/sub channel shared by all replicas.
const DefaultBusChannel = "quiz.realtime"

// LeaderboardBus relays realtime messages between replicas through Redis
// pub/sub. Every replica publishes to the channel and forwards what it
// receives to its local hub.
type LeaderboardBus struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
	now     func() time.Time
}

func NewLeaderboardBus(client *redis.Client, channel string, log *logger.Logger) *LeaderboardBus {
	if channel == "" {
		channel = DefaultBusChannel
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LeaderboardBus{
		client:  client,
		channel: channel,
		log:     log.With("service", "RedisLeaderboardBus"),
		now:     time.Now,
	}
}

// Broadcast implements app.Broadcaster.
func (b *LeaderboardBus) Broadcast(ctx context.Context, topic, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	raw, err := json.Marshal(envelope{Topic: topic, Event: event, Data: data, SentAt: b.now()})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes to the channel and calls onMsg for every message
// until ctx is done.
func (b *LeaderboardBus) StartForwarder(ctx context.Context, onMsg func(realtime.Message)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.client.Subscribe(ctx, b.channel)
	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					b.log.Warn("bad realtime payload", "error", err)
					continue
				}
				onMsg(realtime.Message{Topic: env.Topic, Event: env.Event, Data: env.Data, SentAt: env.SentAt})
			}
		}
	}()
	return nil
}

type envelope struct {
	Topic  string          `json:"topic"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	SentAt time.Time       `json:"sentAt"`
}
