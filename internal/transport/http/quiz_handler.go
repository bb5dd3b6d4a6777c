package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/platform/logger"
	"github.com/gin-gonic/gin"
)

const maxSubmissionBytes = 1 << 20

// QuizHandler serves the participant side of a quiz.
type QuizHandler struct {
	log     *logger.Logger
	quizzes *app.QuizService
}

func NewQuizHandler(log *logger.Logger, quizzes *app.QuizService) *QuizHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &QuizHandler{log: log.With("Handler", "QuizHandler"), quizzes: quizzes}
}

type submissionRequest struct {
	Answers []domain.AnswerSubmission `json:"answers"`
}

type questionsResponse struct {
	QuizID    int64                     `json:"quizId"`
	Questions []domain.PlayableQuestion `json:"questions"`
}

// GET /api/v1/quiz/active
func (h *QuizHandler) ActiveQuiz(c *gin.Context) {
	p, _ := participantFrom(c)
	status, err := h.quizzes.Status(c.Request.Context(), p.ID)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GET /api/v1/quizzes/:id/questions
func (h *QuizHandler) Questions(c *gin.Context) {
	quizID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	p, _ := participantFrom(c)
	questions, err := h.quizzes.PlayableQuestions(c.Request.Context(), quizID, p.ID)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, questionsResponse{QuizID: quizID, Questions: questions})
}

// POST /api/v1/quizzes/:id/submissions
func (h *QuizHandler) Submit(c *gin.Context) {
	quizID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	p, _ := participantFrom(c)
	sub, err := h.quizzes.Submit(c.Request.Context(), quizID, p.ID, req.Answers)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	respondSubmission(c, sub)
}

// POST /api/v1/quizzes/:id/flush
//
// Browsers send this on page unload through sendBeacon, which posts the JSON
// body as text/plain, so the body is decoded regardless of content type.
func (h *QuizHandler) Flush(c *gin.Context) {
	quizID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSubmissionBytes))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req submissionRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	p, _ := participantFrom(c)
	sub, err := h.quizzes.FlushPartial(c.Request.Context(), quizID, p.ID, req.Answers)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	respondSubmission(c, sub)
}

func respondSubmission(c *gin.Context, sub app.Submission) {
	status := http.StatusCreated
	if sub.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, sub)
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return id, true
}
