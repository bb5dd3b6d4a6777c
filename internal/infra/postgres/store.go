package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	// activationLockKey serialises quiz activation across replicas.
	activationLockKey = 7_204_310
)

// Store persists quizzes, the answer ledger, participants and push
// subscriptions in Postgres through bun.
type Store struct {
	db *bun.DB
}

var (
	_ app.QuizStore             = (*Store)(nil)
	_ app.SubmissionStore       = (*Store)(nil)
	_ app.ParticipantStore      = (*Store)(nil)
	_ app.PushSubscriptionStore = (*Store)(nil)
)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// OpenDB opens a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (s *Store) quizSummaries() *bun.SelectQuery {
	return s.db.NewSelect().
		Model((*quizModel)(nil)).
		ColumnExpr("qz.*").
		ColumnExpr("(SELECT count(*) FROM questions AS q WHERE q.quiz_id = qz.id) AS question_count")
}

func (s *Store) FindActiveQuiz(ctx context.Context) (domain.Quiz, bool, error) {
	var m quizModel
	err := s.quizSummaries().Where("qz.active").OrderExpr("qz.id").Limit(1).Scan(ctx, &m)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, false, nil
	}
	if err != nil {
		return domain.Quiz{}, false, fmt.Errorf("find active quiz: %w", err)
	}
	return m.toDomain(), true, nil
}

func (s *Store) getQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var m quizModel
	err := s.quizSummaries().Where("qz.id = ?", quizID).Scan(ctx, &m)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return m.toDomain(), nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	m := quizModel{Theme: quiz.Theme, Active: quiz.Active, CreatedAt: quiz.CreatedAt}
	if _, err := s.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	quiz.ID = m.ID
	return nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []quizModel
	if err := s.quizSummaries().OrderExpr("qz.created_at DESC, qz.id DESC").Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]domain.Quiz, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (s *Store) RenameQuiz(ctx context.Context, quizID int64, theme string) (domain.Quiz, error) {
	res, err := s.db.NewUpdate().
		Model((*quizModel)(nil)).
		Set("theme = ?", theme).
		Where("id = ?", quizID).
		Exec(ctx)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("rename quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.getQuiz(ctx, quizID)
}

// ActivateQuiz flips the active flag inside one transaction guarded by an
// advisory lock, so concurrent activations cannot leave two active quizzes.
func (s *Store) ActivateQuiz(ctx context.Context, quizID int64) ([]int64, error) {
	var deactivated []int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", activationLockKey); err != nil {
			return err
		}
		exists, err := tx.NewSelect().Model((*quizModel)(nil)).Where("id = ?", quizID).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrQuizNotFound
		}
		if err := tx.NewSelect().
			Model((*quizModel)(nil)).
			Column("id").
			Where("active").
			Where("id <> ?", quizID).
			Scan(ctx, &deactivated); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().
			Model((*quizModel)(nil)).
			Set("active = (id = ?)", quizID).
			Where("active OR id = ?", quizID).
			Exec(ctx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("activate quiz: %w", err)
	}
	sort.Slice(deactivated, func(i, j int) bool { return deactivated[i] < deactivated[j] })
	return deactivated, nil
}

func (s *Store) DeactivateQuiz(ctx context.Context, quizID int64) error {
	res, err := s.db.NewUpdate().
		Model((*quizModel)(nil)).
		Set("active = FALSE").
		Where("id = ?", quizID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("deactivate quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// DeleteQuiz relies on ON DELETE CASCADE for questions, answers and results.
func (s *Store) DeleteQuiz(ctx context.Context, quizID int64) error {
	res, err := s.db.NewDelete().Model((*quizModel)(nil)).Where("id = ?", quizID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) CreateQuestion(ctx context.Context, question *domain.Question) error {
	m := newQuestionModel(*question)
	m.ID = 0
	if _, err := s.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return domain.ErrQuizNotFound
		}
		return fmt.Errorf("create question: %w", err)
	}
	question.ID = m.ID
	return nil
}

func (s *Store) UpdateQuestion(ctx context.Context, question *domain.Question) error {
	m := newQuestionModel(*question)
	res, err := s.db.NewUpdate().
		Model(&m).
		Column("prompt", "option_a", "option_b", "option_c", "option_d", "option_e",
			"correct_option", "time_limit_seconds", "justification").
		WherePK().
		Where("quiz_id = ?", question.QuizID).
		Returning("created_at").
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrQuestionNotFound
		}
		return fmt.Errorf("update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuestionNotFound
	}
	question.CreatedAt = m.CreatedAt
	return nil
}

func (s *Store) ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	exists, err := s.db.NewSelect().Model((*quizModel)(nil)).Where("id = ?", quizID).Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check quiz: %w", err)
	}
	if !exists {
		return nil, domain.ErrQuizNotFound
	}
	return s.listQuestions(ctx, s.db, quizID)
}

func (s *Store) listQuestions(ctx context.Context, db bun.IDB, quizID int64) ([]domain.Question, error) {
	var rows []questionModel
	if err := db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// LoadQuiz returns a quiz with its ordered questions.
func (s *Store) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	questions, err := s.listQuestions(ctx, s.db, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = questions
	quiz.QuestionCount = len(questions)
	return quiz, nil
}

func (s *Store) FindResult(ctx context.Context, quizID int64, participantID string) (domain.Result, bool, error) {
	var m resultModel
	err := s.db.NewSelect().
		Model(&m).
		Where("r.quiz_id = ?", quizID).
		Where("r.participant_id = ?", participantID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Result{}, false, nil
	}
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("find result: %w", err)
	}
	return m.toDomain(), true, nil
}

// CommitSubmission writes the answer batch and its result in one transaction.
func (s *Store) CommitSubmission(ctx context.Context, result *domain.Result, answers []domain.Answer) error {
	rows := make([]answerModel, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, newAnswerModel(a))
	}
	rm := newResultModel(*result)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(rows) > 0 {
			if _, err := tx.NewInsert().Model(&rows).Returning("id").Exec(ctx); err != nil {
				return err
			}
		}
		_, err := tx.NewInsert().Model(&rm).Returning("id").Exec(ctx)
		return err
	})
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return domain.ErrDuplicateRecord
		}
		return fmt.Errorf("commit submission: %w", err)
	}

	for i := range answers {
		answers[i].ID = rows[i].ID
	}
	result.ID = rm.ID
	return nil
}

func (s *Store) ListResults(ctx context.Context, quizID int64) ([]domain.ParticipantResult, error) {
	return s.listResults(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("r.quiz_id = ?", quizID)
	})
}

func (s *Store) ListAllResults(ctx context.Context) ([]domain.ParticipantResult, error) {
	return s.listResults(ctx, func(q *bun.SelectQuery) *bun.SelectQuery { return q })
}

func (s *Store) listResults(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.ParticipantResult, error) {
	var rows []resultModel
	q := s.db.NewSelect().Model(&rows).Relation("Participant")
	if err := filter(q).OrderExpr("r.created_at ASC, r.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]domain.ParticipantResult, 0, len(rows))
	for _, m := range rows {
		pr := domain.ParticipantResult{Result: m.toDomain()}
		if m.Participant != nil {
			pr.Participant = m.Participant.toDomain()
		} else {
			pr.Participant = domain.Participant{ID: m.ParticipantID}
		}
		out = append(out, pr)
	}
	return out, nil
}

// UpsertParticipant refreshes identity fields and keeps the profile.
func (s *Store) UpsertParticipant(ctx context.Context, participant *domain.Participant) error {
	m := newParticipantModel(*participant)
	if _, err := s.db.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("email = EXCLUDED.email").
		Set("role = EXCLUDED.role").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx); err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	*participant = m.toDomain()
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, participantID string) (domain.Participant, error) {
	var m participantModel
	err := s.db.NewSelect().Model(&m).Where("p.id = ?", participantID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return m.toDomain(), nil
}

func (s *Store) UpdateProfile(ctx context.Context, participantID string, update app.ProfileUpdate) (domain.Participant, error) {
	if update.SocialName == nil && update.AvatarURL == nil {
		return s.GetParticipant(ctx, participantID)
	}
	var m participantModel
	q := s.db.NewUpdate().Model(&m).Where("id = ?", participantID).Set("updated_at = now()")
	if update.SocialName != nil {
		q = q.Set("social_name = ?", *update.SocialName)
	}
	if update.AvatarURL != nil {
		q = q.Set("avatar_url = ?", *update.AvatarURL)
	}
	res, err := q.Returning("*").Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Participant{}, domain.ErrParticipantNotFound
		}
		return domain.Participant{}, fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return m.toDomain(), nil
}

func (s *Store) ListParticipants(ctx context.Context, offset, limit int) ([]domain.Participant, int, error) {
	var rows []participantModel
	total, err := s.db.NewSelect().
		Model(&rows).
		Order("p.created_at DESC", "p.id ASC").
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list participants: %w", err)
	}
	out := make([]domain.Participant, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, total, nil
}

// DeleteParticipant relies on ON DELETE CASCADE for answers, results and
// push subscriptions.
func (s *Store) DeleteParticipant(ctx context.Context, participantID string) ([]int64, error) {
	var quizIDs []int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().
			Model((*resultModel)(nil)).
			Column("quiz_id").
			Where("participant_id = ?", participantID).
			Order("quiz_id").
			Scan(ctx, &quizIDs); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*participantModel)(nil)).Where("id = ?", participantID).Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrParticipantNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete participant: %w", err)
	}
	return quizIDs, nil
}

// SavePushSubscription upserts by endpoint.
func (s *Store) SavePushSubscription(ctx context.Context, sub *domain.PushSubscription) error {
	m := pushSubscriptionModel{
		ParticipantID: sub.ParticipantID,
		Endpoint:      sub.Endpoint,
		P256dh:        sub.Keys.P256dh,
		Auth:          sub.Keys.Auth,
		UserAgent:     sub.UserAgent,
		CreatedAt:     sub.CreatedAt,
	}
	if _, err := s.db.NewInsert().
		Model(&m).
		On("CONFLICT (endpoint) DO UPDATE").
		Set("participant_id = EXCLUDED.participant_id").
		Set("p256dh = EXCLUDED.p256dh").
		Set("auth = EXCLUDED.auth").
		Set("user_agent = EXCLUDED.user_agent").
		Returning("id, created_at").
		Exec(ctx); err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return domain.ErrParticipantNotFound
		}
		return fmt.Errorf("save push subscription: %w", err)
	}
	sub.ID = m.ID
	sub.CreatedAt = m.CreatedAt
	return nil
}

func (s *Store) DeletePushSubscription(ctx context.Context, participantID, endpoint string) error {
	if _, err := s.db.NewDelete().
		Model((*pushSubscriptionModel)(nil)).
		Where("participant_id = ?", participantID).
		Where("endpoint = ?", endpoint).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *Store) ListPushSubscriptions(ctx context.Context) ([]domain.PushSubscription, error) {
	var rows []pushSubscriptionModel
	if err := s.db.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	out := make([]domain.PushSubscription, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func pgErrorCode(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}
