package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/platform/logger"
)

// PushService manages push subscriptions and hands notifications to the
// delivery service.
type PushService struct {
	subs   PushSubscriptionStore
	pusher Pusher
	log    *logger.Logger
	now    func() time.Time
	appURL string
}

type PushOption func(*PushService)

// WithAppURL prefixes relative notification links with the public app address.
func WithAppURL(base string) PushOption {
	return func(s *PushService) { s.appURL = strings.TrimRight(base, "/") }
}

func NewPushService(subs PushSubscriptionStore, pusher Pusher, log *logger.Logger, opts ...PushOption) *PushService {
	if log == nil {
		log = logger.Nop()
	}
	s := &PushService{subs: subs, pusher: pusher, log: log.With("service", "PushService"), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers (or re-assigns) an endpoint to a participant.
func (s *PushService) Subscribe(ctx context.Context, participantID, endpoint string, keys domain.PushKeys, userAgent string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || keys.P256dh == "" || keys.Auth == "" {
		return fmt.Errorf("%w: invalid subscription payload", domain.ErrInvalidInput)
	}
	return s.subs.SavePushSubscription(ctx, &domain.PushSubscription{
		ParticipantID: participantID,
		Endpoint:      endpoint,
		Keys:          keys,
		UserAgent:     userAgent,
		CreatedAt:     s.now(),
	})
}

func (s *PushService) Unsubscribe(ctx context.Context, participantID, endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return fmt.Errorf("%w: endpoint is required", domain.ErrInvalidInput)
	}
	return s.subs.DeletePushSubscription(ctx, participantID, endpoint)
}

// Send delivers a notification to every registered endpoint.
func (s *PushService) Send(ctx context.Context, n domain.PushNotification) (int, error) {
	if strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Body) == "" {
		return 0, fmt.Errorf("%w: title and body are required", domain.ErrInvalidInput)
	}
	subs, err := s.subs.ListPushSubscriptions(ctx)
	if err != nil {
		return 0, err
	}
	if len(subs) == 0 {
		return 0, nil
	}
	if s.appURL != "" && strings.HasPrefix(n.URL, "/") {
		n.URL = s.appURL + n.URL
	}
	if err := s.pusher.Push(ctx, n, subs); err != nil {
		return 0, err
	}
	return len(subs), nil
}

// NotifyNewQuiz announces an activated quiz. Failures are only logged.
func (s *PushService) NotifyNewQuiz(ctx context.Context, quiz domain.Quiz) {
	n := domain.PushNotification{
		Title: "Novo quiz disponível!",
		Body:  fmt.Sprintf("O quiz %q está no ar. Participe agora!", quiz.Theme),
		URL:   "/home",
		Tag:   fmt.Sprintf("quiz-%d", quiz.ID),
	}
	sent, err := s.Send(ctx, n)
	if err != nil {
		s.log.Warn("new quiz notification failed", "quiz_id", quiz.ID, "error", err)
		return
	}
	s.log.Info("new quiz notification queued", "quiz_id", quiz.ID, "subscriptions", sent)
}
