package domain

import (
	"github.com/google/uuid"
)

// UserSummary — публичная карточка пользователя, приходит от сервиса идентификации
type UserSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
}
