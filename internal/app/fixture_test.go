package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/infra/memory"
)

type recordingHook struct {
	mu      sync.Mutex
	quizIDs []int64
}

func (h *recordingHook) SubmissionCommitted(quizID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quizIDs = append(h.quizIDs, quizID)
}

func (h *recordingHook) calls() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int64(nil), h.quizIDs...)
}

type fixture struct {
	store   *memory.Store
	cache   *memory.QuizRepository
	admin   *app.AdminService
	quizzes *app.QuizService
	hook    *recordingHook
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	store := memory.NewStore()
	cache := memory.NewQuizRepository(store, time.Minute)
	hook := &recordingHook{}
	bank := app.NewQuestionBank(cache, store, app.NewRandShuffler(1))
	opts = append([]app.Option{app.WithSubmissionHook(hook)}, opts...)
	return &fixture{
		store:   store,
		cache:   cache,
		admin:   app.NewAdminService(store, cache, nil, nil),
		quizzes: app.NewQuizService(bank, store, opts...),
		hook:    hook,
	}
}

// seedQuiz creates a quiz with one question per correct label. The quiz is
// activated when active is set.
func (f *fixture) seedQuiz(t *testing.T, active bool, correct ...domain.OptionLabel) domain.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz, err := f.admin.CreateQuiz(ctx, "Parables")
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i, c := range correct {
		if _, err := f.admin.AddQuestion(ctx, quiz.ID, questionInput(fmt.Sprintf("Question %d", i+1), c)); err != nil {
			t.Fatalf("add question: %v", err)
		}
	}
	if active {
		if _, err := f.admin.Activate(ctx, quiz.ID); err != nil {
			t.Fatalf("activate: %v", err)
		}
	}
	quiz, err = f.cache.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	return quiz
}

func questionInput(prompt string, correct domain.OptionLabel) app.QuestionInput {
	options := make([]domain.Option, 0, len(domain.OptionLabels))
	for _, l := range domain.OptionLabels {
		options = append(options, domain.Option{Label: l, Text: "Option " + string(l)})
	}
	return app.QuestionInput{
		Prompt:           prompt,
		Options:          options,
		Correct:          correct,
		TimeLimitSeconds: 30,
	}
}

func label(l domain.OptionLabel) *domain.OptionLabel {
	return &l
}

// answersFor builds a batch over the quiz questions in order; a nil entry
// leaves the question unanswered.
func answersFor(quiz domain.Quiz, chosen ...*domain.OptionLabel) []domain.AnswerSubmission {
	out := make([]domain.AnswerSubmission, 0, len(quiz.Questions))
	for i, q := range quiz.Questions {
		var c *domain.OptionLabel
		if i < len(chosen) {
			c = chosen[i]
		}
		out = append(out, domain.AnswerSubmission{QuestionID: q.ID, Chosen: c})
	}
	return out
}
