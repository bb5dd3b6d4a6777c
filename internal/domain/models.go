package domain

import "time"

// OptionLabel identifies one of the five alternatives of a question.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
	OptionE OptionLabel = "E"
)

// OptionLabels lists the labels in display order.
var OptionLabels = [...]OptionLabel{OptionA, OptionB, OptionC, OptionD, OptionE}

// Valid reports whether l is one of A-E.
func (l OptionLabel) Valid() bool {
	switch l {
	case OptionA, OptionB, OptionC, OptionD, OptionE:
		return true
	}
	return false
}

// Role distinguishes administrators from regular participants.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

// Quiz is a weekly quiz. At most one quiz is active at a time.
type Quiz struct {
	ID            int64      `json:"id"`
	Theme         string     `json:"theme"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"createdAt"`
	QuestionCount int        `json:"questionCount"`
	Questions     []Question `json:"questions,omitempty"`
}

// Option is one labeled alternative.
type Option struct {
	Label OptionLabel `json:"label"`
	Text  string      `json:"text"`
}

// Question models a five-option multiple choice question.
type Question struct {
	ID               int64       `json:"id"`
	QuizID           int64       `json:"quizId"`
	Prompt           string      `json:"prompt"`
	Options          []Option    `json:"options"`
	Correct          OptionLabel `json:"correct"`
	TimeLimitSeconds int         `json:"timeLimitSeconds"`
	Justification    string      `json:"justification,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// PlayableQuestion is what a participant sees while answering.
// Correct and Justification are only filled when answers are revealed.
type PlayableQuestion struct {
	ID               int64       `json:"id"`
	Prompt           string      `json:"prompt"`
	Options          []Option    `json:"options"`
	TimeLimitSeconds int         `json:"timeLimitSeconds"`
	Correct          OptionLabel `json:"correct,omitempty"`
	Justification    string      `json:"justification,omitempty"`
}

// Answer is the write-once choice of a participant for one question.
// A nil Chosen means the question went unanswered.
type Answer struct {
	ID            int64        `json:"id"`
	ParticipantID string       `json:"participantId"`
	QuizID        int64        `json:"quizId"`
	QuestionID    int64        `json:"questionId"`
	Chosen        *OptionLabel `json:"chosen"`
	AnsweredAt    time.Time    `json:"answeredAt"`
}

// AnswerSubmission is a single entry of a submitted answer batch.
type AnswerSubmission struct {
	QuestionID int64        `json:"questionId"`
	Chosen     *OptionLabel `json:"chosen"`
}

// Score is the tally of one attempt.
type Score struct {
	Total      int `json:"total"`
	Acertos    int `json:"acertos"`
	Erros      int `json:"erros"`
	Nulos      int `json:"nulos"`
	Percentage int `json:"percentage"`
}

// Result is the immutable outcome of one participant's attempt at one quiz.
type Result struct {
	ID            int64  `json:"id"`
	ParticipantID string `json:"participantId"`
	QuizID        int64  `json:"quizId"`
	Score
	CreatedAt time.Time `json:"createdAt"`
}

// Participant is a member known through the identity provider.
type Participant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SocialName string    `json:"socialName,omitempty"`
	Email      string    `json:"email,omitempty"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DisplayName prefers the social name when one is set.
func (p Participant) DisplayName() string {
	if p.SocialName != "" {
		return p.SocialName
	}
	return p.Name
}

// ParticipantResult joins a result with the participant who owns it.
type ParticipantResult struct {
	Result
	Participant Participant
}

// QuizStatus answers "what can this participant do right now".
type QuizStatus struct {
	Quiz      *Quiz   `json:"quiz"`
	Completed bool    `json:"completed"`
	Result    *Result `json:"result"`
}

// QuizLeaderboardEntry is one ranked row of a single quiz.
type QuizLeaderboardEntry struct {
	Position      int    `json:"position"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	SocialName    string `json:"socialName,omitempty"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	Score
}

// OverallLeaderboardEntry is one ranked row across all quizzes.
type OverallLeaderboardEntry struct {
	Position          int    `json:"position"`
	ParticipantID     string `json:"participantId"`
	Name              string `json:"name"`
	SocialName        string `json:"socialName,omitempty"`
	AvatarURL         string `json:"avatarUrl,omitempty"`
	TotalAcertos      int    `json:"totalAcertos"`
	TotalQuizzes      int    `json:"totalQuizzes"`
	AveragePercentage int    `json:"averagePercentage"`
}

// Leaderboard is the snapshot pushed to realtime subscribers.
type Leaderboard[T any] struct {
	QuizID    int64     `json:"quizId,omitempty"`
	Entries   []T       `json:"entries"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PushKeys are the client keys of a web push subscription.
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is a browser endpoint registered for notifications.
type PushSubscription struct {
	ID            int64     `json:"id"`
	ParticipantID string    `json:"participantId"`
	Endpoint      string    `json:"endpoint"`
	Keys          PushKeys  `json:"keys"`
	UserAgent     string    `json:"userAgent,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PushNotification is the payload handed to the delivery service.
type PushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}
