package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"marketplace_messaging/internal/domain"
)

// Статус сообщения в локальной проекции
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// ClientMessage хранит сообщение в состоянии клиента: серверную запись
// либо оптимистичную заготовку с корреляционным ID до подтверждения
type ClientMessage struct {
	ID           uuid.UUID
	OptimisticID string
	SenderID     uuid.UUID
	Content      string
	ImageURL     *string
	Status       MessageStatus
	CreatedAt    time.Time
}

// ThreadState держит состояние открытого диалога: упорядоченный список
// без дубликатов, сводящий оптимистичные отправки, подтверждения сервера
// и входящие real-time события. Записи различаются по серверному ID,
// до подтверждения по optimisticID
type ThreadState struct {
	mu        sync.Mutex
	userID    uuid.UUID
	messages  []*ClientMessage
	connected bool
}

func NewThreadState(userID uuid.UUID) *ThreadState {
	return &ThreadState{userID: userID, connected: true}
}

// AppendOptimistic немедленно добавляет локальное сообщение со статусом
// sending. UI никогда не ждет сеть ради этой вставки
func (t *ThreadState) AppendOptimistic(content string, imageURL *string) *ClientMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	message := &ClientMessage{
		OptimisticID: uuid.NewString(),
		SenderID:     t.userID,
		Content:      content,
		ImageURL:     imageURL,
		Status:       StatusSending,
		CreatedAt:    time.Now(),
	}
	t.messages = append(t.messages, message)
	return message
}

// ConfirmSent заменяет оптимистичную заготовку серверной записью.
// Сопоставление по optimisticID, по содержимому только для клиентов
// без корреляционного ID
func (t *ThreadState) ConfirmSent(optimisticID string, confirmed *domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Эхо по websocket могло подтвердить заготовку раньше HTTP-ответа:
	// повторное подтверждение не трогает остальные записи
	for _, existing := range t.messages {
		if existing.ID == confirmed.ID {
			return true
		}
	}

	idx := t.findOptimisticLocked(optimisticID, confirmed.Content)
	if idx < 0 {
		return false
	}

	t.messages[idx] = &ClientMessage{
		ID:        confirmed.ID,
		SenderID:  confirmed.SenderID,
		Content:   confirmed.Content,
		ImageURL:  confirmed.ImageURL,
		Status:    StatusSent,
		CreatedAt: confirmed.CreatedAt,
	}
	return true
}

// MarkFailed переводит заготовку в failed на месте — не удаляет,
// чтобы UI мог предложить повтор
func (t *ThreadState) MarkFailed(optimisticID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, message := range t.messages {
		if message.OptimisticID == optimisticID && message.Status == StatusSending {
			message.Status = StatusFailed
			return true
		}
	}
	return false
}

// StartSendTimeout переводит сообщение в failed, если подтверждение
// не пришло за отведенное время — отправка не должна висеть вечно
func (t *ThreadState) StartSendTimeout(optimisticID string, timeout time.Duration) {
	time.AfterFunc(timeout, func() {
		t.MarkFailed(optimisticID)
	})
}

// Retry убирает неудавшееся сообщение и создает свежую заготовку
// с тем же содержимым. Failed никогда не становится sent на месте
func (t *ThreadState) Retry(optimisticID string) *ClientMessage {
	t.mu.Lock()

	var failed *ClientMessage
	for i, message := range t.messages {
		if message.OptimisticID == optimisticID && message.Status == StatusFailed {
			failed = message
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	if failed == nil {
		return nil
	}
	return t.AppendOptimistic(failed.Content, failed.ImageURL)
}

// Receive вливает входящее real-time событие new-message.
// Дубликаты по серверному ID отбрасываются: повторная доставка
// не должна раздваивать сообщение
func (t *ThreadState) Receive(message *domain.Message, optimisticID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, existing := range t.messages {
		if existing.ID == message.ID {
			return
		}
	}

	// Эхо собственной отправки: сверяем с заготовкой вместо добавления
	if message.SenderID == t.userID {
		if idx := t.findOptimisticLocked(optimisticID, message.Content); idx >= 0 {
			t.messages[idx] = &ClientMessage{
				ID:        message.ID,
				SenderID:  message.SenderID,
				Content:   message.Content,
				ImageURL:  message.ImageURL,
				Status:    StatusSent,
				CreatedAt: message.CreatedAt,
			}
			return
		}
	}

	t.messages = append(t.messages, &ClientMessage{
		ID:        message.ID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		ImageURL:  message.ImageURL,
		Status:    StatusDelivered,
		CreatedAt: message.CreatedAt,
	})
}

// MarkRead — локальная проекция прочтения; хранилище обновляется
// отдельным вызовом mark-read
func (t *ThreadState) MarkRead(messageIDs []uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make(map[uuid.UUID]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = struct{}{}
	}

	for _, message := range t.messages {
		if _, ok := ids[message.ID]; ok {
			message.Status = StatusRead
		}
	}
}

// Prepend добавляет страницу более старых сообщений в начало списка
func (t *ThreadState) Prepend(older []*domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(t.messages))
	for _, message := range t.messages {
		seen[message.ID] = struct{}{}
	}

	prefix := make([]*ClientMessage, 0, len(older))
	for _, message := range older {
		if _, ok := seen[message.ID]; ok {
			continue
		}
		prefix = append(prefix, fromServer(message))
	}

	t.messages = append(prefix, t.messages...)
}

// Reconcile заменяет подтвержденную часть списка авторитетной выборкой
// из хранилища, сохраняя неподтвержденные заготовки в конце.
// Вызывается при переподключении: push-канал — только подсказка
func (t *ThreadState) Reconcile(authoritative []*domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var pending []*ClientMessage
	for _, message := range t.messages {
		if message.Status == StatusSending || message.Status == StatusFailed {
			pending = append(pending, message)
		}
	}

	merged := make([]*ClientMessage, 0, len(authoritative)+len(pending))
	for _, message := range authoritative {
		merged = append(merged, fromServer(message))
	}
	t.messages = append(merged, pending...)
}

// SetConnected отражает состояние соединения; при восстановлении
// вызывающий обязан выполнить Reconcile
func (t *ThreadState) SetConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = connected
}

func (t *ThreadState) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Messages возвращает снимок списка в текущем порядке
func (t *ThreadState) Messages() []*ClientMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make([]*ClientMessage, len(t.messages))
	copy(snapshot, t.messages)
	return snapshot
}

func (t *ThreadState) findOptimisticLocked(optimisticID, content string) int {
	if optimisticID != "" {
		for i, message := range t.messages {
			if message.OptimisticID == optimisticID && message.Status == StatusSending {
				return i
			}
		}
		// ID задан, но заготовки с ним больше нет: сверка по содержимому
		// зацепила бы чужую запись с тем же текстом
		return -1
	}

	// Запасной путь для клиентов без корреляционного ID
	for i, message := range t.messages {
		if message.Status == StatusSending && message.Content == content {
			return i
		}
	}
	return -1
}

func fromServer(message *domain.Message) *ClientMessage {
	status := StatusDelivered
	if message.Read {
		status = StatusRead
	}
	return &ClientMessage{
		ID:        message.ID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		ImageURL:  message.ImageURL,
		Status:    status,
		CreatedAt: message.CreatedAt,
	}
}
