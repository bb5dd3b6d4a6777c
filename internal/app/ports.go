package app

import (
	"context"

	"church-quiz-service/internal/domain"
)

// QuizRepository loads quiz content with its questions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID int64) error
}

// QuizStore persists quizzes and questions authored by administrators.
type QuizStore interface {
	// FindActiveQuiz returns the active quiz summary, ok=false when none is active.
	FindActiveQuiz(ctx context.Context) (domain.Quiz, bool, error)
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	RenameQuiz(ctx context.Context, quizID int64, theme string) (domain.Quiz, error)
	// ActivateQuiz activates quizID and deactivates every other quiz in one
	// transaction. It returns the IDs that were deactivated.
	ActivateQuiz(ctx context.Context, quizID int64) ([]int64, error)
	DeactivateQuiz(ctx context.Context, quizID int64) error
	DeleteQuiz(ctx context.Context, quizID int64) error
	CreateQuestion(ctx context.Context, question *domain.Question) error
	UpdateQuestion(ctx context.Context, question *domain.Question) error
	ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error)
}

// SubmissionStore owns the answer ledger and results.
type SubmissionStore interface {
	FindResult(ctx context.Context, quizID int64, participantID string) (domain.Result, bool, error)
	// CommitSubmission writes the answers and the result atomically. A unique
	// constraint violation is reported as domain.ErrDuplicateRecord.
	CommitSubmission(ctx context.Context, result *domain.Result, answers []domain.Answer) error
	ListResults(ctx context.Context, quizID int64) ([]domain.ParticipantResult, error)
	ListAllResults(ctx context.Context) ([]domain.ParticipantResult, error)
}

// ParticipantStore keeps participant profiles.
type ParticipantStore interface {
	// UpsertParticipant refreshes identity fields and keeps profile fields.
	UpsertParticipant(ctx context.Context, participant *domain.Participant) error
	GetParticipant(ctx context.Context, participantID string) (domain.Participant, error)
	UpdateProfile(ctx context.Context, participantID string, update ProfileUpdate) (domain.Participant, error)
	// ListParticipants returns a page ordered by newest first, plus the total count.
	ListParticipants(ctx context.Context, offset, limit int) ([]domain.Participant, int, error)
	// DeleteParticipant removes the participant with its answers, results and
	// push subscriptions. It returns the quizzes that lost a result.
	DeleteParticipant(ctx context.Context, participantID string) ([]int64, error)
}

// ProfileUpdate lists the profile fields to change; nil leaves a field as is.
type ProfileUpdate struct {
	SocialName *string
	AvatarURL  *string
}

// PushSubscriptionStore is the registry of web push endpoints.
type PushSubscriptionStore interface {
	SavePushSubscription(ctx context.Context, sub *domain.PushSubscription) error
	DeletePushSubscription(ctx context.Context, participantID, endpoint string) error
	ListPushSubscriptions(ctx context.Context) ([]domain.PushSubscription, error)
}

// Broadcaster publishes a payload on a realtime topic.
type Broadcaster interface {
	Broadcast(ctx context.Context, topic, event string, payload any) error
}

// Pusher hands notifications to the external push delivery service.
type Pusher interface {
	Push(ctx context.Context, notification domain.PushNotification, subs []domain.PushSubscription) error
}

// BlobStore stores binary objects and returns their public URL.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// SubmissionHook runs after a submission transaction commits.
type SubmissionHook interface {
	SubmissionCommitted(quizID int64)
}

// QuizDeletedHook runs after a quiz and its results are removed.
type QuizDeletedHook interface {
	QuizDeleted(quizID int64)
}
