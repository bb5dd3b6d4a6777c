package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"church-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultPushQueue is the list consumed by the push delivery worker.
const DefaultPushQueue = "push.queue"

// PushOutbox queues notifications for the external web push worker. The
// worker owns VAPID signing and retries.
type PushOutbox struct {
	client *redis.Client
	queue  string
	now    func() time.Time
}

func NewPushOutbox(client *redis.Client, queue string) *PushOutbox {
	if queue == "" {
		queue = DefaultPushQueue
	}
	return &PushOutbox{client: client, queue: queue, now: time.Now}
}

// PushJob is the queued unit of work.
type PushJob struct {
	Notification  domain.PushNotification  `json:"notification"`
	Subscriptions []domain.PushSubscription `json:"subscriptions"`
	QueuedAt      time.Time                 `json:"queuedAt"`
}

// Push implements app.Pusher.
func (o *PushOutbox) Push(ctx context.Context, n domain.PushNotification, subs []domain.PushSubscription) error {
	raw, err := json.Marshal(PushJob{Notification: n, Subscriptions: subs, QueuedAt: o.now()})
	if err != nil {
		return fmt.Errorf("encode push job: %w", err)
	}
	if err := o.client.LPush(ctx, o.queue, raw).Err(); err != nil {
		return fmt.Errorf("queue push job: %w", err)
	}
	return nil
}
