package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"church-quiz-service/internal/domain"
)

// Shuffler permutes n elements through swap.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type randShuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandShuffler returns a goroutine-safe shuffler over a seeded source.
func NewRandShuffler(seed int64) Shuffler {
	return &randShuffler{rnd: rand.New(rand.NewSource(seed))}
}

func (s *randShuffler) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(n, swap)
}

// QuestionBank is the read-only view over quizzes and their questions.
type QuestionBank struct {
	quizzes  QuizRepository
	store    QuizStore
	shuffler Shuffler
}

func NewQuestionBank(quizzes QuizRepository, store QuizStore, shuffler Shuffler) *QuestionBank {
	if shuffler == nil {
		shuffler = NewRandShuffler(time.Now().UnixNano())
	}
	return &QuestionBank{quizzes: quizzes, store: store, shuffler: shuffler}
}

// GetActiveQuiz returns the active quiz, or nil when no quiz is open.
func (b *QuestionBank) GetActiveQuiz(ctx context.Context) (*domain.Quiz, error) {
	quiz, ok, err := b.store.FindActiveQuiz(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return &quiz, nil
}

// IsActive reports whether quizID is the open quiz. It reads the store, not
// the content cache, so activation changes are seen immediately.
func (b *QuestionBank) IsActive(ctx context.Context, quizID int64) (bool, error) {
	active, ok, err := b.store.FindActiveQuiz(ctx)
	if err != nil {
		return false, err
	}
	return ok && active.ID == quizID, nil
}

// GetQuiz returns a quiz with its questions in authoring order.
func (b *QuestionBank) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	return b.quizzes.GetQuiz(ctx, quizID)
}

// GetQuestions returns the ordered question set of a quiz; empty means not playable.
func (b *QuestionBank) GetQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	quiz, err := b.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return quiz.Questions, nil
}

// Shuffle returns a fresh random permutation of a copy of questions.
func (b *QuestionBank) Shuffle(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	b.shuffler.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
