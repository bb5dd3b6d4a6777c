package http

import (
	"errors"
	"net/http"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/platform/logger"
	"github.com/gin-gonic/gin"
)

const defaultAvatarMaxBytes = 5 << 20

var errNothingToUpdate = errors.New("no field to update")

type ProfileHandler struct {
	log            *logger.Logger
	profiles       *app.ProfileService
	push           *app.PushService
	avatarMaxBytes int64
}

func NewProfileHandler(log *logger.Logger, profiles *app.ProfileService, push *app.PushService, avatarMaxBytes int64) *ProfileHandler {
	if log == nil {
		log = logger.Nop()
	}
	if avatarMaxBytes <= 0 {
		avatarMaxBytes = defaultAvatarMaxBytes
	}
	return &ProfileHandler{
		log:            log.With("Handler", "ProfileHandler"),
		profiles:       profiles,
		push:           push,
		avatarMaxBytes: avatarMaxBytes,
	}
}

type profileRequest struct {
	SocialName *string `json:"socialName"`
}

type pushSubscribeRequest struct {
	Endpoint string          `json:"endpoint"`
	Keys     domain.PushKeys `json:"keys"`
}

type pushUnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// GET /api/v1/me
func (h *ProfileHandler) Me(c *gin.Context) {
	p, _ := participantFrom(c)
	c.JSON(http.StatusOK, p)
}

// PATCH /api/v1/me
func (h *ProfileHandler) Update(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	p, _ := participantFrom(c)
	if req.SocialName == nil {
		c.JSON(http.StatusOK, p)
		return
	}
	updated, err := h.profiles.SetSocialName(c.Request.Context(), p.ID, *req.SocialName)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// POST /api/v1/me/avatar (multipart field "avatar")
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.avatarMaxBytes)
	file, err := c.FormFile("avatar")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("avatar file is required"))
		return
	}
	f, err := file.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	defer f.Close()

	p, _ := participantFrom(c)
	updated, err := h.profiles.UploadAvatar(c.Request.Context(), p.ID, f)
	if err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// POST /api/v1/push/subscribe
func (h *ProfileHandler) Subscribe(c *gin.Context) {
	var req pushSubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	p, _ := participantFrom(c)
	if err := h.push.Subscribe(c.Request.Context(), p.ID, req.Endpoint, req.Keys, c.Request.UserAgent()); err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscribed": true})
}

// POST /api/v1/push/unsubscribe
func (h *ProfileHandler) Unsubscribe(c *gin.Context) {
	var req pushUnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	p, _ := participantFrom(c)
	if err := h.push.Unsubscribe(c.Request.Context(), p.ID, req.Endpoint); err != nil {
		respondDomainError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
