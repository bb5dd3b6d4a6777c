package http

import (
	"net/http"
	"strconv"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/platform/logger"
	"github.com/gin-gonic/gin"
)

// AdminHandler exposes quiz authoring, participant management and broadcast
// notifications.
type AdminHandler struct {
	log      *logger.Logger
	admin    *app.AdminService
	profiles *app.ProfileService
	push     *app.PushService
}

func NewAdminHandler(log *logger.Logger, admin *app.AdminService, profiles *app.ProfileService, push *app.PushService) *AdminHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AdminHandler{log: log.With("Handler", "AdminHandler"), admin: admin, profiles: profiles, push: push}
}

type themeRequest struct {
	Theme string `json:"theme"`
}

func (h *AdminHandler) CreateQuiz(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	quiz, err := h.admin.CreateQuiz(c.Request.Context(), req.Theme)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *AdminHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.admin.ListQuizzes(c.Request.Context())
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes})
}

func (h *AdminHandler) RenameQuiz(c *gin.Context) {
	quizID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	quiz, err := h.admin.RenameQuiz(c.Request.Context(), quizID, req.Theme)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *AdminHandler) Activate(c *gin.Context) {
	quizID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	quiz, err := h.admin.Activate(c.Request.Context(), quizID)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *AdminHandler) Deactivate(c *gin.Context) {
	quizID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.admin.Deactivate(c.Request.Context(), quizID); err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) DeleteQuiz(c *gin.Context) {
	quizID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteQuiz(c.Request.Context(), quizID); err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListQuestions(c *gin.Context) {
	quizID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	questions, err := h.admin.ListQuestions(c.Request.Context(), quizID)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (h *AdminHandler) AddQuestion(c *gin.Context) {
	quizID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req app.QuestionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	question, err := h.admin.AddQuestion(c.Request.Context(), quizID, req)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

func (h *AdminHandler) UpdateQuestion(c *gin.Context) {
	quizID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	questionID, ok := int64Param(c, "questionId")
	if !ok {
		return
	}
	var req app.QuestionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	question, err := h.admin.UpdateQuestion(c.Request.Context(), quizID, questionID, req)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// POST /api/v1/admin/push
func (h *AdminHandler) SendPush(c *gin.Context) {
	var req domain.PushNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sent, err := h.push.Send(c.Request.Context(), req)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

// GET /api/v1/admin/participants?page=1&limit=20
func (h *AdminHandler) ListParticipants(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := h.profiles.ListParticipants(c.Request.Context(), page, limit)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) GetParticipant(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), c.Param("participantId"))
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// PATCH /api/v1/admin/participants/:participantId overrides the social name.
func (h *AdminHandler) UpdateParticipant(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.SocialName == nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", errNothingToUpdate)
		return
	}
	p, err := h.profiles.SetSocialName(c.Request.Context(), c.Param("participantId"), *req.SocialName)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) DeleteParticipant(c *gin.Context) {
	actor, _ := participantFrom(c)
	if err := h.profiles.DeleteParticipant(c.Request.Context(), actor.ID, c.Param("participantId")); err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
