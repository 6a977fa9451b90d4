package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"marketplace_messaging/internal/domain"
	"marketplace_messaging/internal/middleware"
	"marketplace_messaging/internal/realtime"
	"marketplace_messaging/internal/service"
	"marketplace_messaging/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене нужно проверять origin
	},
}

// WebSocketHandler держит жизненный цикл подписки: join при открытии
// диалога, leave при закрытии. Подписка живет ровно столько,
// сколько открыт экран диалога
type WebSocketHandler struct {
	hub                 *realtime.Hub
	publisher           service.EventPublisher
	conversationService service.ConversationService
	typingService       service.TypingService
	log                 logger.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, publisher service.EventPublisher, conversationService service.ConversationService, typingService service.TypingService, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:                 hub,
		publisher:           publisher,
		conversationService: conversationService,
		typingService:       typingService,
		log:                 log,
	}
}

// Входящий кадр от клиента. Поддерживается только индикатор печати,
// все содержательные операции идут через REST
type clientFrame struct {
	Event    string `json:"event"`
	IsTyping bool   `json:"is_typing"`
}

func (h *WebSocketHandler) HandleConversation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user not authenticated"})
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid conversation ID"})
		return
	}

	// Подписка только для участников диалога
	conversation, err := h.conversationService.Get(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	conn := realtime.NewConnection(userID, ws)
	conn.Start()

	conversationChannel := domain.ConversationChannel(conversationID)
	// Присутствие собеседника: его online/offline приходят в его канал
	presenceChannel := domain.PresenceChannel(conversation.OtherParticipant(userID))

	h.hub.Subscribe(conversationChannel, conn)
	h.hub.Subscribe(presenceChannel, conn)

	h.publishPresence(c.Request.Context(), domain.EventUserOnline, userID)

	// Снимок печатающих для восстановления после переподключения:
	// шина at-most-once, пропущенные события не доигрываются
	h.sendTypingSnapshot(c, conn, conversationID, userID)

	defer func() {
		h.hub.Unsubscribe(conversationChannel, conn)
		h.hub.Unsubscribe(presenceChannel, conn)
		// Контекст запроса к этому моменту может быть отменен
		h.publishPresence(context.Background(), domain.EventUserOffline, userID)
		conn.Close(websocket.CloseNormalClosure, "bye")
	}()

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}

		if frame.Event == domain.EventUserTyping {
			if err := h.typingService.SetTyping(c.Request.Context(), conversationID, userID, frame.IsTyping); err != nil {
				h.log.Warn("Failed to set typing", "error", err, "conversation_id", conversationID)
			}
		}
	}
}

// publishPresence отправляет online/offline через шину в канал
// presence-{userId}, чтобы событие дошло до подписчиков на всех инстансах
func (h *WebSocketHandler) publishPresence(ctx context.Context, event string, userID uuid.UUID) {
	h.publisher.Publish(ctx, domain.PresenceChannel(userID), domain.Event{
		Event:   event,
		Payload: domain.PresencePayload{UserID: userID, At: time.Now()},
	})
}

func (h *WebSocketHandler) sendTypingSnapshot(c *gin.Context, conn *realtime.Connection, conversationID, userID uuid.UUID) {
	typists, err := h.typingService.ActiveTypists(c.Request.Context(), conversationID, userID)
	if err != nil || len(typists) == 0 {
		return
	}

	for _, typist := range typists {
		if typist == userID {
			continue
		}
		payload, err := json.Marshal(domain.Event{
			Event: domain.EventUserTyping,
			Payload: domain.TypingPayload{
				ConversationID: conversationID,
				UserID:         typist,
				IsTyping:       true,
			},
		})
		if err != nil {
			continue
		}
		if err := conn.Send(payload); err != nil {
			return
		}
	}
}
