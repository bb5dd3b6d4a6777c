package http

import (
	"errors"
	"net/http"
	"strings"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/platform/logger"
	"church-quiz-service/internal/realtime"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TopicSubscriber hands out a channel of realtime messages for topics.
type TopicSubscriber interface {
	Subscribe(topics ...string) (<-chan realtime.Message, func())
}

// WSHandler relays leaderboard snapshots to websocket clients. The stream is
// one-way; clients only send pings.
type WSHandler struct {
	log      *logger.Logger
	hub      TopicSubscriber
	upgrader websocket.Upgrader
}

func NewWSHandler(log *logger.Logger, hub TopicSubscriber) *WSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WSHandler{
		log: log.With("Handler", "WSHandler"),
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Topic   string `json:"topic,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// ServeWS upgrades GET /api/v1/ws?topics=a,b and streams the topics.
func (h *WSHandler) ServeWS(c *gin.Context) {
	topics, err := parseTopics(c.Query("topics"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_topics", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe(topics...)
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "error", err)
				// keep draining so producers never block on a dead socket
				for range send {
				}
				return
			}
		}
	}()

	send <- outboundMessage{Type: "subscribed", Payload: topics}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: update.Event, Topic: update.Topic, Payload: update.Data}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if inbound.Type == "ping" {
			select {
			case send <- outboundMessage{Type: "pong"}:
			default:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func parseTopics(raw string) ([]string, error) {
	seen := make(map[string]struct{})
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !app.IsLeaderboardTopic(t) {
			return nil, errors.New("unknown topic " + t)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
	}
	if len(topics) == 0 {
		return nil, errors.New("at least one topic is required")
	}
	return topics, nil
}
