package memory

import (
	"context"
	"sort"
	"sync"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/domain"
)

// Store is an in-memory implementation of every storage port. It emulates
// the unique constraints of the relational schema so that concurrency
// behaviour matches Postgres.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	quizzes      map[int64]*domain.Quiz
	questions    map[int64]*domain.Question
	answers      map[answerKey]domain.Answer
	results      map[resultKey]domain.Result
	participants map[string]*domain.Participant
	pushSubs     map[string]domain.PushSubscription
}

type answerKey struct {
	participantID string
	quizID        int64
	questionID    int64
}

type resultKey struct {
	participantID string
	quizID        int64
}

func NewStore() *Store {
	return &Store{
		quizzes:      make(map[int64]*domain.Quiz),
		questions:    make(map[int64]*domain.Question),
		answers:      make(map[answerKey]domain.Answer),
		results:      make(map[resultKey]domain.Result),
		participants: make(map[string]*domain.Participant),
		pushSubs:     make(map[string]domain.PushSubscription),
	}
}

var (
	_ app.QuizStore             = (*Store)(nil)
	_ app.SubmissionStore       = (*Store)(nil)
	_ app.ParticipantStore      = (*Store)(nil)
	_ app.PushSubscriptionStore = (*Store)(nil)
	_ QuizLoader                = (*Store)(nil)
)

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// LoadQuiz returns a quiz with its questions in creation order.
func (s *Store) LoadQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	out := *quiz
	out.Questions = s.questionsLocked(quizID)
	out.QuestionCount = len(out.Questions)
	return out, nil
}

func (s *Store) FindActiveQuiz(_ context.Context) (domain.Quiz, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quizzes {
		if q.Active {
			out := *q
			out.QuestionCount = len(s.questionsLocked(q.ID))
			return out, true, nil
		}
	}
	return domain.Quiz{}, false, nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz.ID = s.id()
	stored := *quiz
	stored.Questions = nil
	s.quizzes[quiz.ID] = &stored
	return nil
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		quiz := *q
		quiz.QuestionCount = len(s.questionsLocked(q.ID))
		out = append(out, quiz)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) RenameQuiz(_ context.Context, quizID int64, theme string) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz.Theme = theme
	out := *quiz
	out.QuestionCount = len(s.questionsLocked(quizID))
	return out, nil
}

func (s *Store) ActivateQuiz(_ context.Context, quizID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.quizzes[quizID]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	var deactivated []int64
	for id, q := range s.quizzes {
		if id != quizID && q.Active {
			q.Active = false
			deactivated = append(deactivated, id)
		}
	}
	target.Active = true
	sort.Slice(deactivated, func(i, j int) bool { return deactivated[i] < deactivated[j] })
	return deactivated, nil
}

func (s *Store) DeactivateQuiz(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.Active = false
	return nil
}

// DeleteQuiz cascades to questions, answers and results.
func (s *Store) DeleteQuiz(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	for id, q := range s.questions {
		if q.QuizID == quizID {
			delete(s.questions, id)
		}
	}
	for k := range s.answers {
		if k.quizID == quizID {
			delete(s.answers, k)
		}
	}
	for k := range s.results {
		if k.quizID == quizID {
			delete(s.results, k)
		}
	}
	return nil
}

func (s *Store) CreateQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	question.ID = s.id()
	stored := *question
	s.questions[question.ID] = &stored
	return nil
}

func (s *Store) UpdateQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.questions[question.ID]
	if !ok || stored.QuizID != question.QuizID {
		return domain.ErrQuestionNotFound
	}
	question.CreatedAt = stored.CreatedAt
	*stored = *question
	return nil
}

func (s *Store) ListQuestions(_ context.Context, quizID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return nil, domain.ErrQuizNotFound
	}
	return s.questionsLocked(quizID), nil
}

func (s *Store) questionsLocked(quizID int64) []domain.Question {
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.QuizID == quizID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) FindResult(_ context.Context, quizID int64, participantID string) (domain.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[resultKey{participantID: participantID, quizID: quizID}]
	return r, ok, nil
}

// CommitSubmission checks every unique key before writing anything.
func (s *Store) CommitSubmission(_ context.Context, result *domain.Result, answers []domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk := resultKey{participantID: result.ParticipantID, quizID: result.QuizID}
	if _, exists := s.results[rk]; exists {
		return domain.ErrDuplicateRecord
	}
	keys := make(map[answerKey]struct{}, len(answers))
	for _, a := range answers {
		k := answerKey{participantID: a.ParticipantID, quizID: a.QuizID, questionID: a.QuestionID}
		if _, exists := s.answers[k]; exists {
			return domain.ErrDuplicateRecord
		}
		if _, dup := keys[k]; dup {
			return domain.ErrDuplicateRecord
		}
		keys[k] = struct{}{}
	}

	for i := range answers {
		answers[i].ID = s.id()
		a := answers[i]
		s.answers[answerKey{participantID: a.ParticipantID, quizID: a.QuizID, questionID: a.QuestionID}] = a
	}
	result.ID = s.id()
	s.results[rk] = *result
	return nil
}

func (s *Store) ListResults(_ context.Context, quizID int64) ([]domain.ParticipantResult, error) {
	return s.listResults(func(r domain.Result) bool { return r.QuizID == quizID }), nil
}

func (s *Store) ListAllResults(_ context.Context) ([]domain.ParticipantResult, error) {
	return s.listResults(func(domain.Result) bool { return true }), nil
}

func (s *Store) listResults(keep func(domain.Result) bool) []domain.ParticipantResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ParticipantResult, 0)
	for _, r := range s.results {
		if !keep(r) {
			continue
		}
		pr := domain.ParticipantResult{Result: r}
		if p, ok := s.participants[r.ParticipantID]; ok {
			pr.Participant = *p
		} else {
			pr.Participant = domain.Participant{ID: r.ParticipantID}
		}
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AnswerCount reports how many answers a participant has for a quiz.
func (s *Store) AnswerCount(quizID int64, participantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.answers {
		if k.quizID == quizID && k.participantID == participantID {
			n++
		}
	}
	return n
}

func (s *Store) UpsertParticipant(_ context.Context, participant *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.participants[participant.ID]; ok {
		existing.Name = participant.Name
		existing.Email = participant.Email
		existing.Role = participant.Role
		existing.UpdatedAt = participant.UpdatedAt
		*participant = *existing
		return nil
	}
	stored := *participant
	s.participants[participant.ID] = &stored
	return nil
}

func (s *Store) GetParticipant(_ context.Context, participantID string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[participantID]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return *p, nil
}

func (s *Store) UpdateProfile(_ context.Context, participantID string, update app.ProfileUpdate) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if update.SocialName != nil {
		p.SocialName = *update.SocialName
	}
	if update.AvatarURL != nil {
		p.AvatarURL = *update.AvatarURL
	}
	return *p, nil
}

func (s *Store) ListParticipants(_ context.Context, offset, limit int) ([]domain.Participant, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	if offset >= total {
		return []domain.Participant{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// DeleteParticipant cascades to answers, results and push subscriptions.
func (s *Store) DeleteParticipant(_ context.Context, participantID string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[participantID]; !ok {
		return nil, domain.ErrParticipantNotFound
	}
	delete(s.participants, participantID)
	var quizIDs []int64
	for k := range s.results {
		if k.participantID == participantID {
			quizIDs = append(quizIDs, k.quizID)
			delete(s.results, k)
		}
	}
	for k := range s.answers {
		if k.participantID == participantID {
			delete(s.answers, k)
		}
	}
	for endpoint, sub := range s.pushSubs {
		if sub.ParticipantID == participantID {
			delete(s.pushSubs, endpoint)
		}
	}
	sort.Slice(quizIDs, func(i, j int) bool { return quizIDs[i] < quizIDs[j] })
	return quizIDs, nil
}

// SavePushSubscription upserts by endpoint.
func (s *Store) SavePushSubscription(_ context.Context, sub *domain.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.pushSubs[sub.Endpoint]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.ID = s.id()
	}
	s.pushSubs[sub.Endpoint] = *sub
	return nil
}

func (s *Store) DeletePushSubscription(_ context.Context, participantID, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.pushSubs[endpoint]; ok && sub.ParticipantID == participantID {
		delete(s.pushSubs, endpoint)
	}
	return nil
}

func (s *Store) ListPushSubscriptions(_ context.Context) ([]domain.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PushSubscription, 0, len(s.pushSubs))
	for _, sub := range s.pushSubs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
