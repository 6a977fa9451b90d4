package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Имена событий real-time канала
const (
	EventNewMessage    = "new-message"
	EventMessageEdited = "message-edited"
	EventUserTyping    = "user-typing"
	EventMessageRead   = "message-read"
	EventUserOnline    = "user-online"
	EventUserOffline   = "user-offline"
)

// Event — конверт события для pub/sub. Доставка at-most-once:
// подписчики обязаны переживать дубликаты и пропуски,
// источником истины остается выборка из хранилища.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// ConversationChannel возвращает имя канала диалога: conversation-{id}
func ConversationChannel(conversationID uuid.UUID) string {
	return fmt.Sprintf("conversation-%s", conversationID)
}

// PresenceChannel возвращает имя персонального канала: presence-{userId}
func PresenceChannel(userID uuid.UUID) string {
	return fmt.Sprintf("presence-%s", userID)
}

// NewMessagePayload — полезная нагрузка события new-message.
// OptimisticID пробрасывается обратно отправителю для сопоставления
// с локальным оптимистичным сообщением.
type NewMessagePayload struct {
	Message      *Message `json:"message"`
	OptimisticID string   `json:"optimistic_id,omitempty"`
}

type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	IsTyping       bool      `json:"is_typing"`
}

type MessageReadPayload struct {
	ConversationID uuid.UUID   `json:"conversation_id"`
	ReaderID       uuid.UUID   `json:"reader_id"`
	MessageIDs     []uuid.UUID `json:"message_ids"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	At     time.Time `json:"at"`
}
