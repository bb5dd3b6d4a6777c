package postgres

import (
	"time"

	"church-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID            int64     `bun:"id,pk,autoincrement"`
	Theme         string    `bun:"theme,notnull"`
	Active        bool      `bun:"active,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	QuestionCount int       `bun:"question_count,scanonly"`
}

func (m quizModel) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:            m.ID,
		Theme:         m.Theme,
		Active:        m.Active,
		CreatedAt:     m.CreatedAt,
		QuestionCount: m.QuestionCount,
	}
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:qs"`

	ID               int64     `bun:"id,pk,autoincrement"`
	QuizID           int64     `bun:"quiz_id,notnull"`
	Prompt           string    `bun:"prompt,notnull"`
	OptionA          string    `bun:"option_a,notnull"`
	OptionB          string    `bun:"option_b,notnull"`
	OptionC          string    `bun:"option_c,notnull"`
	OptionD          string    `bun:"option_d,notnull"`
	OptionE          string    `bun:"option_e,notnull"`
	CorrectOption    string    `bun:"correct_option,notnull"`
	TimeLimitSeconds int       `bun:"time_limit_seconds,notnull"`
	Justification    string    `bun:"justification,notnull"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}

func newQuestionModel(q domain.Question) questionModel {
	m := questionModel{
		ID:               q.ID,
		QuizID:           q.QuizID,
		Prompt:           q.Prompt,
		CorrectOption:    string(q.Correct),
		TimeLimitSeconds: q.TimeLimitSeconds,
		Justification:    q.Justification,
		CreatedAt:        q.CreatedAt,
	}
	for _, opt := range q.Options {
		switch opt.Label {
		case domain.OptionA:
			m.OptionA = opt.Text
		case domain.OptionB:
			m.OptionB = opt.Text
		case domain.OptionC:
			m.OptionC = opt.Text
		case domain.OptionD:
			m.OptionD = opt.Text
		case domain.OptionE:
			m.OptionE = opt.Text
		}
	}
	return m
}

func (m questionModel) toDomain() domain.Question {
	return domain.Question{
		ID:     m.ID,
		QuizID: m.QuizID,
		Prompt: m.Prompt,
		Options: []domain.Option{
			{Label: domain.OptionA, Text: m.OptionA},
			{Label: domain.OptionB, Text: m.OptionB},
			{Label: domain.OptionC, Text: m.OptionC},
			{Label: domain.OptionD, Text: m.OptionD},
			{Label: domain.OptionE, Text: m.OptionE},
		},
		Correct:          domain.OptionLabel(m.CorrectOption),
		TimeLimitSeconds: m.TimeLimitSeconds,
		Justification:    m.Justification,
		CreatedAt:        m.CreatedAt,
	}
}

type answerModel struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ParticipantID string    `bun:"participant_id,notnull"`
	QuizID        int64     `bun:"quiz_id,notnull"`
	QuestionID    int64     `bun:"question_id,notnull"`
	ChosenOption  *string   `bun:"chosen_option"`
	AnsweredAt    time.Time `bun:"answered_at,notnull"`
}

func newAnswerModel(a domain.Answer) answerModel {
	m := answerModel{
		ParticipantID: a.ParticipantID,
		QuizID:        a.QuizID,
		QuestionID:    a.QuestionID,
		AnsweredAt:    a.AnsweredAt,
	}
	if a.Chosen != nil {
		chosen := string(*a.Chosen)
		m.ChosenOption = &chosen
	}
	return m
}

type resultModel struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	ID            int64             `bun:"id,pk,autoincrement"`
	ParticipantID string            `bun:"participant_id,notnull"`
	QuizID        int64             `bun:"quiz_id,notnull"`
	Total         int               `bun:"total,notnull"`
	Acertos       int               `bun:"acertos,notnull"`
	Erros         int               `bun:"erros,notnull"`
	Nulos         int               `bun:"nulos,notnull"`
	Percentage    int               `bun:"percentage,notnull"`
	CreatedAt     time.Time         `bun:"created_at,notnull"`
	Participant   *participantModel `bun:"rel:belongs-to,join:participant_id=id"`
}

func newResultModel(r domain.Result) resultModel {
	return resultModel{
		ParticipantID: r.ParticipantID,
		QuizID:        r.QuizID,
		Total:         r.Total,
		Acertos:       r.Acertos,
		Erros:         r.Erros,
		Nulos:         r.Nulos,
		Percentage:    r.Percentage,
		CreatedAt:     r.CreatedAt,
	}
}

func (m resultModel) toDomain() domain.Result {
	return domain.Result{
		ID:            m.ID,
		ParticipantID: m.ParticipantID,
		QuizID:        m.QuizID,
		Score: domain.Score{
			Total:      m.Total,
			Acertos:    m.Acertos,
			Erros:      m.Erros,
			Nulos:      m.Nulos,
			Percentage: m.Percentage,
		},
		CreatedAt: m.CreatedAt,
	}
}

type participantModel struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID         string    `bun:"id,pk"`
	Name       string    `bun:"name,notnull"`
	SocialName string    `bun:"social_name,notnull"`
	Email      string    `bun:"email,notnull"`
	AvatarURL  string    `bun:"avatar_url,notnull"`
	Role       string    `bun:"role,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

func newParticipantModel(p domain.Participant) participantModel {
	return participantModel{
		ID:         p.ID,
		Name:       p.Name,
		SocialName: p.SocialName,
		Email:      p.Email,
		AvatarURL:  p.AvatarURL,
		Role:       string(p.Role),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (m participantModel) toDomain() domain.Participant {
	return domain.Participant{
		ID:         m.ID,
		Name:       m.Name,
		SocialName: m.SocialName,
		Email:      m.Email,
		AvatarURL:  m.AvatarURL,
		Role:       domain.Role(m.Role),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

type pushSubscriptionModel struct {
	bun.BaseModel `bun:"table:push_subscriptions,alias:ps"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ParticipantID string    `bun:"participant_id,notnull"`
	Endpoint      string    `bun:"endpoint,notnull"`
	P256dh        string    `bun:"p256dh,notnull"`
	Auth          string    `bun:"auth,notnull"`
	UserAgent     string    `bun:"user_agent,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func (m pushSubscriptionModel) toDomain() domain.PushSubscription {
	return domain.PushSubscription{
		ID:            m.ID,
		ParticipantID: m.ParticipantID,
		Endpoint:      m.Endpoint,
		Keys:          domain.PushKeys{P256dh: m.P256dh, Auth: m.Auth},
		UserAgent:     m.UserAgent,
		CreatedAt:     m.CreatedAt,
	}
}
