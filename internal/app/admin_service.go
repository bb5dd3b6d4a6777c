package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/platform/logger"
)

// AdminService holds the quiz authoring use cases.
type AdminService struct {
	store   QuizStore
	cache   QuizRepository
	notify  *PushService
	deleted QuizDeletedHook
	log     *logger.Logger
	now     func() time.Time
}

type AdminOption func(*AdminService)

// WithQuizDeletedHook registers the hook run after DeleteQuiz.
func WithQuizDeletedHook(hook QuizDeletedHook) AdminOption {
	return func(s *AdminService) { s.deleted = hook }
}

func NewAdminService(store QuizStore, cache QuizRepository, notify *PushService, log *logger.Logger, opts ...AdminOption) *AdminService {
	if log == nil {
		log = logger.Nop()
	}
	s := &AdminService{
		store:  store,
		cache:  cache,
		notify: notify,
		log:    log.With("service", "AdminService"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QuestionInput is the authoring form of a question.
type QuestionInput struct {
	Prompt           string             `json:"prompt"`
	Options          []domain.Option    `json:"options"`
	Correct          domain.OptionLabel `json:"correct"`
	TimeLimitSeconds int                `json:"timeLimitSeconds"`
	Justification    string             `json:"justification"`
}

// CreateQuiz creates an inactive quiz.
func (s *AdminService) CreateQuiz(ctx context.Context, theme string) (domain.Quiz, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return domain.Quiz{}, fmt.Errorf("%w: theme is required", domain.ErrInvalidInput)
	}
	quiz := domain.Quiz{Theme: theme, CreatedAt: s.now()}
	if err := s.store.CreateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.log.Info("quiz created", "quiz_id", quiz.ID)
	return quiz, nil
}

func (s *AdminService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

func (s *AdminService) RenameQuiz(ctx context.Context, quizID int64, theme string) (domain.Quiz, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return domain.Quiz{}, fmt.Errorf("%w: theme is required", domain.ErrInvalidInput)
	}
	quiz, err := s.store.RenameQuiz(ctx, quizID, theme)
	if err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quizID)
	return quiz, nil
}

// Activate opens quizID and closes every other quiz in one step, then
// announces the quiz to push subscribers.
func (s *AdminService) Activate(ctx context.Context, quizID int64) (domain.Quiz, error) {
	deactivated, err := s.store.ActivateQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	for _, id := range deactivated {
		s.invalidate(ctx, id)
	}
	s.invalidate(ctx, quizID)

	quiz, err := s.cache.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	// the store committed the activation above
	quiz.Active = true
	s.log.Info("quiz activated", "quiz_id", quizID, "deactivated", deactivated)
	if s.notify != nil {
		s.notify.NotifyNewQuiz(ctx, quiz)
	}
	return quiz, nil
}

func (s *AdminService) Deactivate(ctx context.Context, quizID int64) error {
	if err := s.store.DeactivateQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

// DeleteQuiz removes a quiz with its questions, answers and results.
func (s *AdminService) DeleteQuiz(ctx context.Context, quizID int64) error {
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	s.log.Info("quiz deleted", "quiz_id", quizID)
	if s.deleted != nil {
		s.deleted.QuizDeleted(quizID)
	}
	return nil
}

func (s *AdminService) AddQuestion(ctx context.Context, quizID int64, in QuestionInput) (domain.Question, error) {
	q, err := in.toQuestion()
	if err != nil {
		return domain.Question{}, err
	}
	q.QuizID = quizID
	q.CreatedAt = s.now()
	if err := s.store.CreateQuestion(ctx, &q); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, quizID)
	return q, nil
}

func (s *AdminService) UpdateQuestion(ctx context.Context, quizID, questionID int64, in QuestionInput) (domain.Question, error) {
	q, err := in.toQuestion()
	if err != nil {
		return domain.Question{}, err
	}
	q.ID = questionID
	q.QuizID = quizID
	if err := s.store.UpdateQuestion(ctx, &q); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, quizID)
	return q, nil
}

// ListQuestions returns the questions in creation order, correct option included.
func (s *AdminService) ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	return s.store.ListQuestions(ctx, quizID)
}

func (s *AdminService) invalidate(ctx context.Context, quizID int64) {
	if err := s.cache.Invalidate(ctx, quizID); err != nil {
		s.log.Warn("quiz cache invalidation failed", "quiz_id", quizID, "error", err)
	}
}

func (in QuestionInput) toQuestion() (domain.Question, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return domain.Question{}, fmt.Errorf("%w: prompt is required", domain.ErrInvalidInput)
	}
	if len(in.Options) != len(domain.OptionLabels) {
		return domain.Question{}, fmt.Errorf("%w: exactly %d options are required", domain.ErrInvalidInput, len(domain.OptionLabels))
	}
	texts := make(map[domain.OptionLabel]string, len(in.Options))
	for _, o := range in.Options {
		label := domain.OptionLabel(strings.ToUpper(string(o.Label)))
		text := strings.TrimSpace(o.Text)
		if !label.Valid() || text == "" {
			return domain.Question{}, fmt.Errorf("%w: option %q needs a label A-E and a text", domain.ErrInvalidInput, o.Label)
		}
		if _, dup := texts[label]; dup {
			return domain.Question{}, fmt.Errorf("%w: option %s repeated", domain.ErrInvalidInput, label)
		}
		texts[label] = text
	}
	options := make([]domain.Option, 0, len(domain.OptionLabels))
	for _, label := range domain.OptionLabels {
		options = append(options, domain.Option{Label: label, Text: texts[label]})
	}

	correct := domain.OptionLabel(strings.ToUpper(string(in.Correct)))
	if !correct.Valid() {
		return domain.Question{}, fmt.Errorf("%w: correct option must be A, B, C, D or E", domain.ErrInvalidInput)
	}
	if in.TimeLimitSeconds < 1 {
		return domain.Question{}, fmt.Errorf("%w: time limit must be at least one second", domain.ErrInvalidInput)
	}
	return domain.Question{
		Prompt:           prompt,
		Options:          options,
		Correct:          correct,
		TimeLimitSeconds: in.TimeLimitSeconds,
		Justification:    strings.TrimSpace(in.Justification),
	}, nil
}
