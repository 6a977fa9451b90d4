package service

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"marketplace_messaging/internal/config"
	"marketplace_messaging/internal/domain"
	"marketplace_messaging/internal/repository"
	apperrors "marketplace_messaging/pkg/errors"
	"marketplace_messaging/pkg/logger"
)

type MessageService interface {
	// GetMessages возвращает страницу сообщений от старых к новым.
	// Побочный эффект: чужие непрочитанные сообщения страницы помечаются
	// прочитанными — просмотр означает подтверждение
	GetMessages(ctx context.Context, conversationID, requesterID uuid.UUID, page, limit int) (*domain.MessagePage, error)
	SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string, imageURL *string, optimisticID string) (*domain.Message, error)
	MarkAsRead(ctx context.Context, conversationID, requesterID uuid.UUID, messageIDs []uuid.UUID) error
	EditMessage(ctx context.Context, messageID, requesterID uuid.UUID, content string) (*domain.Message, error)
}

type messageService struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	users            UserDirectory
	sanitizer        Sanitizer
	publisher        EventPublisher
	cfg              config.ChatConfig
	log              logger.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	conversationRepo repository.ConversationRepository,
	users UserDirectory,
	sanitizer Sanitizer,
	publisher EventPublisher,
	cfg config.ChatConfig,
	log logger.Logger,
) MessageService {
	return &messageService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		users:            users,
		sanitizer:        sanitizer,
		publisher:        publisher,
		cfg:              cfg,
		log:              log,
	}
}

func (s *messageService) GetMessages(ctx context.Context, conversationID, requesterID uuid.UUID, page, limit int) (*domain.MessagePage, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	// Чтение разрешено и в архивных диалогах, статус блокирует только запись
	if !conversation.IsParticipant(requesterID) {
		return nil, apperrors.ErrAccessDenied
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.cfg.DefaultPageLimit
	}
	if limit > s.cfg.MaxPageLimit {
		limit = s.cfg.MaxPageLimit
	}

	messages, total, err := s.messageRepo.ListPage(ctx, conversationID, page, limit)
	if err != nil {
		return nil, err
	}

	// Хранилище отдает от новых к старым, наружу — от старых к новым
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	// Просмотр означает прочтение: отдельной командой помечаем
	// чужие сообщения, видимые на этой странице
	var unreadIDs []uuid.UUID
	for _, message := range messages {
		message.IsOwnMessage = message.SenderID == requesterID
		if !message.IsOwnMessage && !message.Read {
			unreadIDs = append(unreadIDs, message.ID)
		}
	}

	if len(unreadIDs) > 0 {
		readIDs, err := s.messageRepo.MarkRead(ctx, conversationID, requesterID, unreadIDs)
		if err != nil {
			// Выборка уже успешна, прочтение догонит следующий запрос
			s.log.Warn("Failed to mark page as read", "error", err, "conversation_id", conversationID)
		} else if len(readIDs) > 0 {
			// В проекцию попадает ровно то, что подтвердило хранилище
			read := make(map[uuid.UUID]struct{}, len(readIDs))
			for _, id := range readIDs {
				read[id] = struct{}{}
			}
			for _, message := range messages {
				if _, ok := read[message.ID]; ok {
					message.Read = true
				}
			}
			s.publishRead(ctx, conversation, requesterID, readIDs)
		}
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &domain.MessagePage{
		Messages: messages,
		Pagination: domain.Page{
			Page:            page,
			Limit:           limit,
			Total:           total,
			TotalPages:      totalPages,
			HasNextPage:     page < totalPages,
			HasPreviousPage: page > 1,
		},
	}, nil
}

func (s *messageService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string, imageURL *string, optimisticID string) (*domain.Message, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !conversation.IsParticipant(senderID) {
		return nil, apperrors.ErrAccessDenied
	}
	if conversation.Status == domain.ConversationStatusArchived {
		return nil, apperrors.ErrConversationArchived
	}

	content, err = prepareContent(s.sanitizer, content, imageURL)
	if err != nil {
		return nil, err
	}

	message := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		ImageURL:       imageURL,
		CreatedAt:      time.Now(),
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	if sender, err := s.users.GetSummary(ctx, senderID); err == nil {
		message.Sender = sender
	}
	message.IsOwnMessage = true

	s.publisher.Publish(ctx, domain.ConversationChannel(conversationID), domain.Event{
		Event: domain.EventNewMessage,
		Payload: domain.NewMessagePayload{
			Message:      message,
			OptimisticID: optimisticID,
		},
	})

	return message, nil
}

func (s *messageService) MarkAsRead(ctx context.Context, conversationID, requesterID uuid.UUID, messageIDs []uuid.UUID) error {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	if !conversation.IsParticipant(requesterID) {
		return apperrors.ErrAccessDenied
	}

	// Идемпотентно: уже прочитанные и свои сообщения просто не попадают в выборку
	readIDs, err := s.messageRepo.MarkRead(ctx, conversationID, requesterID, messageIDs)
	if err != nil {
		return err
	}

	if len(readIDs) > 0 {
		s.publishRead(ctx, conversation, requesterID, readIDs)
	}

	return nil
}

func (s *messageService) EditMessage(ctx context.Context, messageID, requesterID uuid.UUID, content string) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if message.SenderID != requesterID {
		return nil, apperrors.ErrAccessDenied
	}

	conversation, err := s.conversationRepo.GetByID(ctx, message.ConversationID)
	if err != nil {
		return nil, err
	}
	if conversation.Status == domain.ConversationStatusArchived {
		return nil, apperrors.ErrConversationArchived
	}

	// Разрешено одно редактирование, истории версий нет
	if message.EditedAt != nil {
		return nil, apperrors.ErrValidation
	}

	content, err = prepareContent(s.sanitizer, content, message.ImageURL)
	if err != nil {
		return nil, err
	}

	message.Content = content
	if err := s.messageRepo.SetEdited(ctx, message); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, domain.ConversationChannel(message.ConversationID), domain.Event{
		Event:   domain.EventMessageEdited,
		Payload: domain.NewMessagePayload{Message: message},
	})

	return message, nil
}

func (s *messageService) publishRead(ctx context.Context, conversation *domain.Conversation, readerID uuid.UUID, messageIDs []uuid.UUID) {
	s.publisher.Publish(ctx, domain.ConversationChannel(conversation.ID), domain.Event{
		Event: domain.EventMessageRead,
		Payload: domain.MessageReadPayload{
			ConversationID: conversation.ID,
			ReaderID:       readerID,
			MessageIDs:     messageIDs,
		},
	})
}

// prepareContent прогоняет текст через санитайзер и проверяет ограничения:
// 1–1000 символов, пустой текст допустим только вместе с изображением
func prepareContent(sanitizer Sanitizer, content string, imageURL *string) (string, error) {
	content = sanitizer.Sanitize(content)

	if content == "" && imageURL == nil {
		return "", apperrors.ErrValidation
	}
	if len([]rune(content)) > domain.MessageMaxContentLength {
		return "", apperrors.ErrValidation
	}
	if imageURL != nil {
		parsed, err := url.Parse(*imageURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return "", apperrors.ErrValidation
		}
	}

	return content, nil
}
