package handler

import (
	"marketplace_messaging/internal/realtime"
	"marketplace_messaging/internal/service"
	"marketplace_messaging/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	Conversation *ConversationHandler
	Message      *MessageHandler
	Typing       *TypingHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(services *service.Services, hub *realtime.Hub, publisher service.EventPublisher, log logger.Logger) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Conversation: NewConversationHandler(services.Conversation, log),
		Message:      NewMessageHandler(services.Message, log),
		Typing:       NewTypingHandler(services.Typing, log),
		WebSocket:    NewWebSocketHandler(hub, publisher, services.Conversation, services.Typing, log),
	}
}
