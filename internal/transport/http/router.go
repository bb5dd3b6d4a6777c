package http

import (
	"net/http"

	"church-quiz-service/internal/platform/logger"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Log            *logger.Logger
	AllowedOrigins []string
	MediaDir       string

	AuthMiddleware     *AuthMiddleware
	QuizHandler        *QuizHandler
	LeaderboardHandler *LeaderboardHandler
	ProfileHandler     *ProfileHandler
	AdminHandler       *AdminHandler
	WSHandler          *WSHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(RequestLogger(cfg.Log))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if cfg.MediaDir != "" {
		r.Static("/media", cfg.MediaDir)
	}

	api := r.Group("/api/v1")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		api.GET("/quiz/active", cfg.QuizHandler.ActiveQuiz)
		api.GET("/quizzes/:id/questions", cfg.QuizHandler.Questions)
		api.POST("/quizzes/:id/submissions", cfg.QuizHandler.Submit)
		api.POST("/quizzes/:id/flush", cfg.QuizHandler.Flush)

		api.GET("/quizzes/:id/leaderboard", cfg.LeaderboardHandler.Quiz)
		api.GET("/leaderboard", cfg.LeaderboardHandler.Overall)

		api.GET("/me", cfg.ProfileHandler.Me)
		api.PATCH("/me", cfg.ProfileHandler.Update)
		api.POST("/me/avatar", cfg.ProfileHandler.UploadAvatar)
		api.POST("/push/subscribe", cfg.ProfileHandler.Subscribe)
		api.POST("/push/unsubscribe", cfg.ProfileHandler.Unsubscribe)

		if cfg.WSHandler != nil {
			api.GET("/ws", cfg.WSHandler.ServeWS)
		}
	}

	admin := api.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	{
		admin.GET("/quizzes", cfg.AdminHandler.ListQuizzes)
		admin.POST("/quizzes", cfg.AdminHandler.CreateQuiz)
		admin.PATCH("/quizzes/:id", cfg.AdminHandler.RenameQuiz)
		admin.DELETE("/quizzes/:id", cfg.AdminHandler.DeleteQuiz)
		admin.POST("/quizzes/:id/activate", cfg.AdminHandler.Activate)
		admin.POST("/quizzes/:id/deactivate", cfg.AdminHandler.Deactivate)
		admin.GET("/quizzes/:id/questions", cfg.AdminHandler.ListQuestions)
		admin.POST("/quizzes/:id/questions", cfg.AdminHandler.AddQuestion)
		admin.PUT("/quizzes/:id/questions/:questionId", cfg.AdminHandler.UpdateQuestion)
		admin.GET("/participants", cfg.AdminHandler.ListParticipants)
		admin.GET("/participants/:participantId", cfg.AdminHandler.GetParticipant)
		admin.PATCH("/participants/:participantId", cfg.AdminHandler.UpdateParticipant)
		admin.DELETE("/participants/:participantId", cfg.AdminHandler.DeleteParticipant)
		admin.POST("/push", cfg.AdminHandler.SendPush)
	}

	return r
}
