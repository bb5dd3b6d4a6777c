package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoActiveQuiz is returned when the quiz is not open for participation.
	ErrNoActiveQuiz = errors.New("no active quiz")
	// ErrEmptyQuiz is returned for a quiz without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrAlreadyCompleted is returned when the participant already has a result.
	ErrAlreadyCompleted = errors.New("quiz already completed")
	// ErrIncompleteAnswerSet means the batch does not cover exactly the quiz questions.
	ErrIncompleteAnswerSet = errors.New("answer set does not match quiz questions")
	// ErrInvalidOption indicates a chosen option outside A-E.
	ErrInvalidOption = errors.New("invalid option")
	// ErrQuestionNotInQuiz indicates a submitted question ID is not part of the quiz.
	ErrQuestionNotInQuiz = errors.New("question not in quiz")
	// ErrQuestionNotFound indicates an unknown question ID.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrParticipantNotFound is returned for an unknown participant.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrInvalidInput wraps administrative validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateRecord is returned by stores when a unique constraint rejects a write.
	ErrDuplicateRecord = errors.New("duplicate record")
)

// AlreadyCompletedError carries the stored result of a finished attempt.
type AlreadyCompletedError struct {
	Result Result
}

func (e *AlreadyCompletedError) Error() string {
	return ErrAlreadyCompleted.Error()
}

// Is lets errors.Is(err, ErrAlreadyCompleted) match.
func (e *AlreadyCompletedError) Is(target error) bool {
	return target == ErrAlreadyCompleted
}
