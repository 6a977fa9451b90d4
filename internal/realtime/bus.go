package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"marketplace_messaging/internal/domain"
	"marketplace_messaging/pkg/logger"
)

// Bus связывает локальный Hub с Redis Pub/Sub, чтобы события доходили
// до подписчиков на всех инстансах. Ошибка публикации логируется
// и никогда не роняет исходную запись
type Bus struct {
	hub *Hub
	rdb *redis.Client
	log logger.Logger

	cancel context.CancelFunc
}

func NewBus(hub *Hub, rdb *redis.Client, log logger.Logger) *Bus {
	return &Bus{hub: hub, rdb: rdb, log: log}
}

// Publish сериализует событие и отправляет его в Redis-канал.
// При недоступном Redis событие доставляется хотя бы локальным подписчикам
func (b *Bus) Publish(ctx context.Context, channel string, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error("Failed to marshal event", "error", err, "event", event.Event)
		return
	}

	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		b.log.Warn("Failed to publish event to Redis, delivering locally", "error", err, "channel", channel)
		b.hub.Publish(channel, payload)
	}
}

// Run поднимает ретрансляцию Redis -> Hub и блокируется до отмены контекста.
// Шаблоны покрывают оба вида каналов
func (b *Bus) Run(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)

	pubsub := b.rdb.PSubscribe(ctx, "conversation-*", "presence-*")
	defer pubsub.Close()

	b.log.Info("Event bus relay started")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.log.Info("Event bus relay stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.hub.Publish(msg.Channel, []byte(msg.Payload))
		}
	}
}

// Stop останавливает ретрансляцию
func (b *Bus) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}
