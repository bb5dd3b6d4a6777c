package memory

import (
	"context"
	"sync"

	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/platform/logger"
)

// PushJob is one notification handed over for delivery.
type PushJob struct {
	Notification  domain.PushNotification
	Subscriptions []domain.PushSubscription
}

// maxRecordedJobs bounds how many recent jobs a Pusher keeps.
const maxRecordedJobs = 64

// Pusher records the most recent push jobs and logs them. It stands in for
// the external delivery service when no queue is configured.
type Pusher struct {
	log  *logger.Logger
	mu   sync.Mutex
	jobs []PushJob
}

func NewPusher(log *logger.Logger) *Pusher {
	if log == nil {
		log = logger.Nop()
	}
	return &Pusher{log: log.With("service", "MemoryPusher")}
}

func (p *Pusher) Push(_ context.Context, n domain.PushNotification, subs []domain.PushSubscription) error {
	p.mu.Lock()
	if len(p.jobs) == maxRecordedJobs {
		copy(p.jobs, p.jobs[1:])
		p.jobs = p.jobs[:maxRecordedJobs-1]
	}
	p.jobs = append(p.jobs, PushJob{Notification: n, Subscriptions: subs})
	p.mu.Unlock()
	p.log.Info("push notification not delivered: no push queue configured", "title", n.Title, "subscriptions", len(subs))
	return nil
}

// Jobs returns the recorded jobs, oldest first.
func (p *Pusher) Jobs() []PushJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PushJob(nil), p.jobs...)
}
