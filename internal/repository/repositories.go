package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"marketplace_messaging/pkg/logger"
)

type Repositories struct {
	Conversation ConversationRepository
	Message      MessageRepository
	Product      ProductRepository
	User         UserRepository
	Typing       TypingRepository
	RateLimit    RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		Conversation: NewConversationRepository(db, log),
		Message:      NewMessageRepository(db, log),
		Product:      NewProductRepository(db, log),
		User:         NewUserRepository(db, log),
		Typing:       NewTypingRepository(rdb, log),
		RateLimit:    NewRateLimitRepository(rdb, log),
	}
}
