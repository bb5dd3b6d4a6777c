package http

import (
	"errors"
	"net/http"

	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/platform/logger"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error  APIError       `json:"error"`
	Result *domain.Result `json:"result,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// respondDomainError maps use case errors onto HTTP statuses. Anything not
// recognised is logged and reported as a generic 500.
func respondDomainError(c *gin.Context, log *logger.Logger, err error) {
	var completed *domain.AlreadyCompletedError
	switch {
	case errors.As(err, &completed):
		result := completed.Result
		c.AbortWithStatusJSON(http.StatusConflict, ErrorEnvelope{
			Error:  APIError{Message: err.Error(), Code: "already_completed"},
			Result: &result,
		})
	case errors.Is(err, domain.ErrAlreadyCompleted):
		RespondError(c, http.StatusConflict, "already_completed", err)
	case errors.Is(err, domain.ErrQuizNotFound):
		RespondError(c, http.StatusNotFound, "quiz_not_found", err)
	case errors.Is(err, domain.ErrNoActiveQuiz):
		RespondError(c, http.StatusNotFound, "no_active_quiz", err)
	case errors.Is(err, domain.ErrQuestionNotFound):
		RespondError(c, http.StatusNotFound, "question_not_found", err)
	case errors.Is(err, domain.ErrParticipantNotFound):
		RespondError(c, http.StatusNotFound, "participant_not_found", err)
	case errors.Is(err, domain.ErrEmptyQuiz):
		RespondError(c, http.StatusConflict, "empty_quiz", err)
	case errors.Is(err, domain.ErrIncompleteAnswerSet):
		RespondError(c, http.StatusUnprocessableEntity, "incomplete_answer_set", err)
	case errors.Is(err, domain.ErrInvalidOption):
		RespondError(c, http.StatusUnprocessableEntity, "invalid_option", err)
	case errors.Is(err, domain.ErrQuestionNotInQuiz):
		RespondError(c, http.StatusUnprocessableEntity, "question_not_in_quiz", err)
	case errors.Is(err, domain.ErrInvalidInput):
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
	default:
		log.Error("request failed", "path", c.FullPath(), "error", err)
		RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal server error"))
	}
}
