package domain

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	ConversationStatusActive   = "active"
	ConversationStatusArchived = "archived"
)

// IsParticipant проверяет, что пользователь является покупателем или продавцом
func (c *Conversation) IsParticipant(userID uuid.UUID) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// CanWrite разрешает запись только участникам активного диалога
func (c *Conversation) CanWrite(userID uuid.UUID) bool {
	return c.IsParticipant(userID) && c.Status == ConversationStatusActive
}

// OtherParticipant возвращает ID второго участника диалога
func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// ConversationPreview — элемент списка диалогов пользователя
type ConversationPreview struct {
	ID           uuid.UUID           `json:"id"`
	Product      ProductSummary      `json:"product"`
	Interlocutor UserSummary         `json:"interlocutor"`
	LastMessage  *LastMessagePreview `json:"last_message,omitempty"`
	UnreadCount  int                 `json:"unread_count"`
	Status       string              `json:"status"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type LastMessagePreview struct {
	Content      string    `json:"content"`
	IsOwnMessage bool      `json:"is_own_message"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConversationThread — полный диалог: участники, товар и сообщения по порядку
type ConversationThread struct {
	Conversation *Conversation  `json:"conversation"`
	Product      ProductSummary `json:"product"`
	Buyer        UserSummary    `json:"buyer"`
	Seller       UserSummary    `json:"seller"`
	Messages     []*Message     `json:"messages"`
}
