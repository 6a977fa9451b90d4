package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"marketplace_messaging/pkg/logger"
)

const typingKeyPrefix = "typing:conversation:%s"

// TypingRepository хранит эфемерное состояние "кто печатает" в Redis.
// Sorted set на диалог: member — userID, score — момент истечения.
// Ничего не переживает рестарт, после переподключения набор строится заново.
type TypingRepository interface {
	SetTyping(ctx context.Context, conversationID, userID uuid.UUID, ttl time.Duration) error
	ClearTyping(ctx context.Context, conversationID, userID uuid.UUID) error
	ActiveTypists(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
}

type typingRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewTypingRepository(rdb *redis.Client, log logger.Logger) TypingRepository {
	return &typingRepository{rdb: rdb, log: log}
}

func typingKey(conversationID uuid.UUID) string {
	return fmt.Sprintf(typingKeyPrefix, conversationID.String())
}

func (r *typingRepository) SetTyping(ctx context.Context, conversationID, userID uuid.UUID, ttl time.Duration) error {
	key := typingKey(conversationID)
	expiresAt := float64(time.Now().Add(ttl).UnixMilli())

	err := r.rdb.ZAdd(ctx, key, redis.Z{
		Score:  expiresAt,
		Member: userID.String(),
	}).Err()
	if err != nil {
		r.log.Error("Failed to set typing flag", "error", err, "conversation_id", conversationID)
		return err
	}

	// Ключ целиком живет не дольше двух окон, чтобы не копить мусор
	if err := r.rdb.Expire(ctx, key, 2*ttl).Err(); err != nil {
		r.log.Warn("Failed to set TTL on typing key", "error", err)
	}

	return nil
}

func (r *typingRepository) ClearTyping(ctx context.Context, conversationID, userID uuid.UUID) error {
	err := r.rdb.ZRem(ctx, typingKey(conversationID), userID.String()).Err()
	if err != nil {
		r.log.Error("Failed to clear typing flag", "error", err, "conversation_id", conversationID)
		return err
	}
	return nil
}

func (r *typingRepository) ActiveTypists(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	key := typingKey(conversationID)
	now := float64(time.Now().UnixMilli())

	// Сначала убираем протухшие записи, затем читаем остаток
	if err := r.rdb.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%.0f", now)).Err(); err != nil {
		r.log.Warn("Failed to sweep expired typists", "error", err)
	}

	members, err := r.rdb.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.log.Error("Failed to get active typists", "error", err, "conversation_id", conversationID)
		return nil, err
	}

	typists := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		typists = append(typists, id)
	}

	return typists, nil
}
