package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/platform/logger"
)

// QuizService drives a participant through a quiz: status, question set,
// answer batch submission and scoring.
//
// A stored Result is the only "completed" marker. A retried submission for a
// participant that already has one is answered with the stored Result and
// Replayed=true; nothing is written again.
type QuizService struct {
	bank        *QuestionBank
	submissions SubmissionStore
	hook        SubmissionHook
	log         *logger.Logger
	now         func() time.Time
	reveal      bool
}

// Option configures a QuizService.
type Option func(*QuizService)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithSubmissionHook registers the post-commit hook.
func WithSubmissionHook(hook SubmissionHook) Option {
	return func(s *QuizService) { s.hook = hook }
}

// WithRevealAnswers includes the correct option and justification in question sets.
func WithRevealAnswers(reveal bool) Option {
	return func(s *QuizService) { s.reveal = reveal }
}

// WithLogger sets the service logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *QuizService) { s.log = log }
}

func NewQuizService(bank *QuestionBank, submissions SubmissionStore, opts ...Option) *QuizService {
	s := &QuizService{
		bank:        bank,
		submissions: submissions,
		log:         logger.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("service", "QuizService")
	return s
}

// Submission is the outcome of a submit call.
type Submission struct {
	Result   domain.Result `json:"result"`
	Replayed bool          `json:"replayed"`
}

// Status reports the active quiz and whether the participant already finished it.
func (s *QuizService) Status(ctx context.Context, participantID string) (domain.QuizStatus, error) {
	quiz, err := s.bank.GetActiveQuiz(ctx)
	if err != nil {
		return domain.QuizStatus{}, err
	}
	if quiz == nil {
		return domain.QuizStatus{}, nil
	}

	status := domain.QuizStatus{Quiz: quiz}
	result, ok, err := s.submissions.FindResult(ctx, quiz.ID, participantID)
	if err != nil {
		return domain.QuizStatus{}, err
	}
	if ok {
		status.Completed = true
		status.Result = &result
	}
	return status, nil
}

// PlayableQuestions returns the shuffled question set for a participant.
func (s *QuizService) PlayableQuestions(ctx context.Context, quizID int64, participantID string) ([]domain.PlayableQuestion, error) {
	quiz, err := s.bank.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	result, ok, err := s.submissions.FindResult(ctx, quizID, participantID)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, &domain.AlreadyCompletedError{Result: result}
	}
	if err := s.requireActive(ctx, quizID); err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrEmptyQuiz
	}

	shuffled := s.bank.Shuffle(quiz.Questions)
	out := make([]domain.PlayableQuestion, 0, len(shuffled))
	for _, q := range shuffled {
		pq := domain.PlayableQuestion{
			ID:               q.ID,
			Prompt:           q.Prompt,
			Options:          q.Options,
			TimeLimitSeconds: q.TimeLimitSeconds,
		}
		if s.reveal {
			pq.Correct = q.Correct
			pq.Justification = q.Justification
		}
		out = append(out, pq)
	}
	return out, nil
}

// Submit validates and scores a full answer batch and persists it atomically.
func (s *QuizService) Submit(ctx context.Context, quizID int64, participantID string, answers []domain.AnswerSubmission) (Submission, error) {
	quiz, err := s.bank.GetQuiz(ctx, quizID)
	if err != nil {
		return Submission{}, err
	}

	stored, ok, err := s.submissions.FindResult(ctx, quizID, participantID)
	if err != nil {
		return Submission{}, err
	}
	if ok {
		return Submission{Result: stored, Replayed: true}, nil
	}
	if err := s.requireActive(ctx, quizID); err != nil {
		return Submission{}, err
	}
	if len(quiz.Questions) == 0 {
		return Submission{}, domain.ErrEmptyQuiz
	}

	now := s.now()
	batch, err := buildAnswerBatch(quiz, participantID, answers, now)
	if err != nil {
		return Submission{}, err
	}

	result := domain.Result{
		ParticipantID: participantID,
		QuizID:        quizID,
		Score:         Score(quiz.Questions, batch),
		CreatedAt:     now,
	}
	if err := s.submissions.CommitSubmission(ctx, &result, batch); err != nil {
		if !errors.Is(err, domain.ErrDuplicateRecord) {
			return Submission{}, fmt.Errorf("commit submission: %w", err)
		}
		// A concurrent attempt won the unique constraint; mirror its result.
		winner, found, ferr := s.submissions.FindResult(ctx, quizID, participantID)
		if ferr != nil {
			return Submission{}, ferr
		}
		if !found {
			return Submission{}, domain.ErrAlreadyCompleted
		}
		s.log.Info("concurrent submission resolved to stored result", "quiz_id", quizID, "participant", participantID)
		return Submission{Result: winner, Replayed: true}, nil
	}

	s.log.Info("submission committed",
		"quiz_id", quizID,
		"participant", participantID,
		"acertos", result.Acertos,
		"total", result.Total,
	)
	if s.hook != nil {
		s.hook.SubmissionCommitted(quizID)
	}
	return Submission{Result: result}, nil
}

// FlushPartial submits whatever was answered so far, with a null choice for
// every remaining question. It is the entry point for page unload.
func (s *QuizService) FlushPartial(ctx context.Context, quizID int64, participantID string, partial []domain.AnswerSubmission) (Submission, error) {
	quiz, err := s.bank.GetQuiz(ctx, quizID)
	if err != nil {
		return Submission{}, err
	}
	seen := make(map[int64]struct{}, len(partial))
	for _, a := range partial {
		seen[a.QuestionID] = struct{}{}
	}
	full := append([]domain.AnswerSubmission(nil), partial...)
	for _, q := range quiz.Questions {
		if _, ok := seen[q.ID]; !ok {
			full = append(full, domain.AnswerSubmission{QuestionID: q.ID})
		}
	}
	return s.Submit(ctx, quizID, participantID, full)
}

func (s *QuizService) requireActive(ctx context.Context, quizID int64) error {
	active, err := s.bank.IsActive(ctx, quizID)
	if err != nil {
		return err
	}
	if !active {
		return domain.ErrNoActiveQuiz
	}
	return nil
}

// buildAnswerBatch checks that answers cover exactly the quiz question set
// and returns them in question order.
func buildAnswerBatch(quiz domain.Quiz, participantID string, answers []domain.AnswerSubmission, now time.Time) ([]domain.Answer, error) {
	questions := make(map[int64]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions[q.ID] = struct{}{}
	}

	chosen := make(map[int64]*domain.OptionLabel, len(answers))
	for _, a := range answers {
		if _, ok := questions[a.QuestionID]; !ok {
			return nil, fmt.Errorf("%w: question %d", domain.ErrQuestionNotInQuiz, a.QuestionID)
		}
		label, err := normalizeChoice(a.Chosen)
		if err != nil {
			return nil, err
		}
		if _, dup := chosen[a.QuestionID]; dup {
			return nil, fmt.Errorf("%w: question %d answered twice", domain.ErrIncompleteAnswerSet, a.QuestionID)
		}
		chosen[a.QuestionID] = label
	}
	if len(chosen) != len(questions) {
		return nil, fmt.Errorf("%w: got %d of %d questions", domain.ErrIncompleteAnswerSet, len(chosen), len(questions))
	}

	batch := make([]domain.Answer, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		batch = append(batch, domain.Answer{
			ParticipantID: participantID,
			QuizID:        quiz.ID,
			QuestionID:    q.ID,
			Chosen:        chosen[q.ID],
			AnsweredAt:    now,
		})
	}
	return batch, nil
}

// normalizeChoice upper-cases the label; an empty label counts as no answer.
func normalizeChoice(c *domain.OptionLabel) (*domain.OptionLabel, error) {
	if c == nil {
		return nil, nil
	}
	raw := strings.ToUpper(strings.TrimSpace(string(*c)))
	if raw == "" {
		return nil, nil
	}
	label := domain.OptionLabel(raw)
	if !label.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidOption, string(*c))
	}
	return &label, nil
}
