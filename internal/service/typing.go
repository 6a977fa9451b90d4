package service

import (
	"context"

	"github.com/google/uuid"
	"marketplace_messaging/internal/config"
	"marketplace_messaging/internal/domain"
	"marketplace_messaging/internal/repository"
	apperrors "marketplace_messaging/pkg/errors"
	"marketplace_messaging/pkg/logger"
)

// TypingService — серверная половина индикатора печати. Клиент шлет только
// переходы (начал/перестал), сервер держит флаг в Redis с TTL: потерянный
// stop-сигнал гасится истечением окна, а не ожиданием парного события
type TypingService interface {
	SetTyping(ctx context.Context, conversationID, userID uuid.UUID, isTyping bool) error
	// ActiveTypists отдает текущий набор печатающих — снимок для переподключения
	ActiveTypists(ctx context.Context, conversationID, requesterID uuid.UUID) ([]uuid.UUID, error)
}

type typingService struct {
	typingRepo       repository.TypingRepository
	conversationRepo repository.ConversationRepository
	publisher        EventPublisher
	cfg              config.ChatConfig
	log              logger.Logger
}

func NewTypingService(
	typingRepo repository.TypingRepository,
	conversationRepo repository.ConversationRepository,
	publisher EventPublisher,
	cfg config.ChatConfig,
	log logger.Logger,
) TypingService {
	return &typingService{
		typingRepo:       typingRepo,
		conversationRepo: conversationRepo,
		publisher:        publisher,
		cfg:              cfg,
		log:              log,
	}
}

func (s *typingService) SetTyping(ctx context.Context, conversationID, userID uuid.UUID, isTyping bool) error {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	if !conversation.IsParticipant(userID) {
		return apperrors.ErrAccessDenied
	}
	if conversation.Status == domain.ConversationStatusArchived {
		return apperrors.ErrConversationArchived
	}

	if isTyping {
		err = s.typingRepo.SetTyping(ctx, conversationID, userID, s.cfg.TypingTTL)
	} else {
		err = s.typingRepo.ClearTyping(ctx, conversationID, userID)
	}
	if err != nil {
		return err
	}

	s.publisher.Publish(ctx, domain.ConversationChannel(conversationID), domain.Event{
		Event: domain.EventUserTyping,
		Payload: domain.TypingPayload{
			ConversationID: conversationID,
			UserID:         userID,
			IsTyping:       isTyping,
		},
	})

	return nil
}

func (s *typingService) ActiveTypists(ctx context.Context, conversationID, requesterID uuid.UUID) ([]uuid.UUID, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.IsParticipant(requesterID) {
		return nil, apperrors.ErrAccessDenied
	}

	return s.typingRepo.ActiveTypists(ctx, conversationID)
}
