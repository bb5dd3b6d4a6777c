package http

import (
	"errors"
	"net/http"
	"strconv"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/platform/logger"
	"github.com/gin-gonic/gin"
)

type LeaderboardHandler struct {
	log    *logger.Logger
	boards *app.LeaderboardService
}

func NewLeaderboardHandler(log *logger.Logger, boards *app.LeaderboardService) *LeaderboardHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LeaderboardHandler{log: log.With("Handler", "LeaderboardHandler"), boards: boards}
}

// GET /api/v1/quizzes/:id/leaderboard?limit=
func (h *LeaderboardHandler) Quiz(c *gin.Context) {
	quizID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	board, err := h.boards.QuizLeaderboard(c.Request.Context(), quizID, limit)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// GET /api/v1/leaderboard?limit=
func (h *LeaderboardHandler) Overall(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	board, err := h.boards.OverallLeaderboard(c.Request.Context(), limit)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func limitQuery(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("limit must be a positive integer"))
		return 0, false
	}
	return limit, true
}
