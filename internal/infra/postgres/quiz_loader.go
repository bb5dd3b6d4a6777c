package postgres

import (
	"context"
	"errors"
	"fmt"

	"church-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader reads quiz content straight from Postgres over a pgx pool. It
// backs the quiz cache on the read-heavy path.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

const (
	loadQuizSQL = `SELECT id, theme, active, created_at FROM quizzes WHERE id = $1`

	loadQuestionsSQL = `SELECT id, quiz_id, prompt, option_a, option_b, option_c, option_d, option_e,
       correct_option, time_limit_seconds, justification, created_at
FROM questions
WHERE quiz_id = $1
ORDER BY created_at ASC, id ASC`
)

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var q quizModel
	err := l.pool.QueryRow(ctx, loadQuizSQL, quizID).Scan(&q.ID, &q.Theme, &q.Active, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx, loadQuestionsSQL, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	quiz := q.toDomain()
	for rows.Next() {
		var m questionModel
		if err := rows.Scan(&m.ID, &m.QuizID, &m.Prompt,
			&m.OptionA, &m.OptionB, &m.OptionC, &m.OptionD, &m.OptionE,
			&m.CorrectOption, &m.TimeLimitSeconds, &m.Justification, &m.CreatedAt); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question: %w", err)
		}
		quiz.Questions = append(quiz.Questions, m.toDomain())
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	quiz.QuestionCount = len(quiz.Questions)
	return quiz, nil
}
