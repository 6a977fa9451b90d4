package service

import (
	"context"
	"html"
	"strings"

	"github.com/google/uuid"
	"marketplace_messaging/internal/domain"
)

// EventPublisher публикует события real-time шины. Публикация
// fire-and-forget: реализация сама логирует свои ошибки, запись
// в хранилище от доставки не зависит
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event domain.Event)
}

// ProductCatalog отдает карточки товаров. Сервис диалогов доверяет
// каталогу статус товара и ID продавца
type ProductCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

// UserDirectory отдает отображаемые данные пользователей
type UserDirectory interface {
	GetSummary(ctx context.Context, id uuid.UUID) (*domain.UserSummary, error)
}

// Sanitizer приводит пользовательский текст к безопасному для отображения виду
type Sanitizer interface {
	Sanitize(content string) string
}

type htmlSanitizer struct{}

// NewHTMLSanitizer возвращает санитайзер по умолчанию: обрезка пробелов
// и экранирование HTML. Сырой ввод клиента никогда не сохраняется как есть
func NewHTMLSanitizer() Sanitizer {
	return htmlSanitizer{}
}

func (htmlSanitizer) Sanitize(content string) string {
	return html.EscapeString(strings.TrimSpace(content))
}
