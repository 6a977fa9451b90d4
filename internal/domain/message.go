package domain

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	Content        string     `json:"content"`
	ImageURL       *string    `json:"image_url,omitempty"`
	Read           bool       `json:"read"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`

	// Дополнительные поля для API
	Sender       *UserSummary `json:"sender,omitempty"`
	IsOwnMessage bool         `json:"is_own_message"`
}

const (
	MessageMaxContentLength = 1000
)

// Page — конверт пагинации, возвращаемый вместе со списком сообщений
type Page struct {
	Page            int   `json:"page"`
	Limit           int   `json:"limit"`
	Total           int64 `json:"total"`
	TotalPages      int   `json:"total_pages"`
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
}

type MessagePage struct {
	Messages   []*Message `json:"messages"`
	Pagination Page       `json:"pagination"`
}
