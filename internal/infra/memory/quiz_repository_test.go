package memory

import (
	"context"
	"testing"
	"time"

	"church-quiz-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	store, quizID := seededStore(t)
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(quiz.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(quiz.Questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), quizID); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryInvalidate(t *testing.T) {
	store, quizID := seededStore(t)
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)
	ctx := context.Background()

	if _, err := repo.GetQuiz(ctx, quizID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if _, err := store.ActivateQuiz(ctx, quizID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := repo.Invalidate(ctx, quizID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	quiz, err := repo.GetQuiz(ctx, quizID)
	if err != nil {
		t.Fatalf("get quiz after invalidate: %v", err)
	}
	if !quiz.Active || loader.calls != 2 {
		t.Fatalf("expected reload with active quiz, active=%v calls=%d", quiz.Active, loader.calls)
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	store, quizID := seededStore(t)
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuiz(context.Background(), quizID)
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), quizID)
	if loader.calls != 2 {
		t.Fatalf("expected expired entry to reload, calls=%d", loader.calls)
	}
}

func TestQuizRepositoryNotFound(t *testing.T) {
	repo := NewQuizRepository(NewStore(), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), 99); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func seededStore(t *testing.T) (*Store, int64) {
	t.Helper()
	store := NewStore()
	ctx := context.Background()
	quiz := domain.Quiz{Theme: "Bible Basics", CreatedAt: time.Now()}
	if err := store.CreateQuiz(ctx, &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	q := sampleQuestion(quiz.ID, domain.OptionB)
	if err := store.CreateQuestion(ctx, &q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return store, quiz.ID
}

func sampleQuestion(quizID int64, correct domain.OptionLabel) domain.Question {
	return domain.Question{
		QuizID: quizID,
		Prompt: "Who built the ark?",
		Options: []domain.Option{
			{Label: domain.OptionA, Text: "Moses"},
			{Label: domain.OptionB, Text: "Noah"},
			{Label: domain.OptionC, Text: "David"},
			{Label: domain.OptionD, Text: "Paul"},
			{Label: domain.OptionE, Text: "Peter"},
		},
		Correct:          correct,
		TimeLimitSeconds: 30,
		CreatedAt:        time.Now(),
	}
}
