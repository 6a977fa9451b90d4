package realtime

import (
	"sync"
)

// Subscriber получает события канала. Send не должен блокировать вызывающего
type Subscriber interface {
	Send(payload []byte) error
}

// Hub раздает события локальным подписчикам именованных каналов
// (conversation-{id}, presence-{userId}). Подписка живет в рамках
// открытого соединения. Гарантий доставки нет: пропущенное событие
// восстанавливается повторной выборкой из хранилища.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[Subscriber]struct{}),
	}
}

// Subscribe добавляет подписчика в канал
func (h *Hub) Subscribe(channel string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.channels[channel]
	if subs == nil {
		subs = make(map[Subscriber]struct{})
		h.channels[channel] = subs
	}
	subs[sub] = struct{}{}
}

// Unsubscribe убирает подписчика из канала
func (h *Hub) Unsubscribe(channel string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.channels[channel]
	if subs == nil {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.channels, channel)
	}
}

// UnsubscribeAll убирает подписчика из всех каналов
func (h *Hub) UnsubscribeAll(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channel, subs := range h.channels {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}

// Publish доставляет событие всем текущим подписчикам канала.
// Возвращает число успешных доставок
func (h *Hub) Publish(channel string, payload []byte) int {
	h.mu.RLock()
	subs := h.channels[channel]
	if len(subs) == 0 {
		h.mu.RUnlock()
		return 0
	}
	targets := make([]Subscriber, 0, len(subs))
	for sub := range subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if err := sub.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}
