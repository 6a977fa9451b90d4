package service

import (
	"marketplace_messaging/internal/config"
	"marketplace_messaging/internal/repository"
	"marketplace_messaging/pkg/logger"
)

type Services struct {
	Conversation ConversationService
	Message      MessageService
	Typing       TypingService
	RateLimit    RateLimitService
}

func NewServices(repos *repository.Repositories, publisher EventPublisher, cfg *config.Config, log logger.Logger) *Services {
	sanitizer := NewHTMLSanitizer()

	return &Services{
		Conversation: NewConversationService(repos.Conversation, repos.Message, repos.Product, repos.User, sanitizer, publisher, cfg.Chat, log),
		Message:      NewMessageService(repos.Message, repos.Conversation, repos.User, sanitizer, publisher, cfg.Chat, log),
		Typing:       NewTypingService(repos.Typing, repos.Conversation, publisher, cfg.Chat, log),
		RateLimit:    NewRateLimitService(repos.RateLimit, log),
	}
}
