package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"marketplace_messaging/internal/config"
	"marketplace_messaging/internal/domain"
	"marketplace_messaging/internal/repository"
	apperrors "marketplace_messaging/pkg/errors"
	"marketplace_messaging/pkg/logger"
)

type ConversationService interface {
	// FindOrCreate возвращает существующий активный диалог по (товар, покупатель)
	// или создает новый вместе с первым сообщением. Повторное обращение
	// к тому же объявлению не создает дубликата
	FindOrCreate(ctx context.Context, productID, buyerID uuid.UUID, content string, imageURL *string) (*domain.ConversationThread, error)
	Get(ctx context.Context, conversationID, requesterID uuid.UUID) (*domain.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.ConversationPreview, error)
	Archive(ctx context.Context, conversationID, requesterID uuid.UUID) error
}

type conversationService struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	catalog          ProductCatalog
	users            UserDirectory
	sanitizer        Sanitizer
	publisher        EventPublisher
	cfg              config.ChatConfig
	log              logger.Logger
}

func NewConversationService(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	catalog ProductCatalog,
	users UserDirectory,
	sanitizer Sanitizer,
	publisher EventPublisher,
	cfg config.ChatConfig,
	log logger.Logger,
) ConversationService {
	return &conversationService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		catalog:          catalog,
		users:            users,
		sanitizer:        sanitizer,
		publisher:        publisher,
		cfg:              cfg,
		log:              log,
	}
}

func (s *conversationService) FindOrCreate(ctx context.Context, productID, buyerID uuid.UUID, content string, imageURL *string) (*domain.ConversationThread, error) {
	// Каталог — источник истины о товаре; любой его отказ трактуем
	// как недоступность товара
	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, apperrors.ErrProductUnavailable
	}
	if !product.Purchasable() {
		return nil, apperrors.ErrProductUnavailable
	}
	if product.SellerID == buyerID {
		return nil, apperrors.ErrSelfConversation
	}

	content, err = prepareContent(s.sanitizer, content, imageURL)
	if err != nil {
		return nil, err
	}

	conversation, err := s.conversationRepo.FindActive(ctx, productID, buyerID)
	switch {
	case err == nil:
		// Диалог уже есть — добавляем сообщение в него
		if err := s.appendMessage(ctx, conversation, buyerID, content, imageURL); err != nil {
			return nil, err
		}
	case errors.Is(err, apperrors.ErrNotFound):
		conversation, err = s.create(ctx, product, buyerID, content, imageURL)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return s.buildThread(ctx, conversation, product, buyerID)
}

func (s *conversationService) create(ctx context.Context, product *domain.Product, buyerID uuid.UUID, content string, imageURL *string) (*domain.Conversation, error) {
	now := time.Now()
	conversation := &domain.Conversation{
		ID:        uuid.New(),
		ProductID: product.ID,
		BuyerID:   buyerID,
		SellerID:  product.SellerID,
		Status:    domain.ConversationStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	firstMessage := &domain.Message{
		ID:        uuid.New(),
		SenderID:  buyerID,
		Content:   content,
		ImageURL:  imageURL,
		CreatedAt: now,
	}

	err := s.conversationRepo.Create(ctx, conversation, firstMessage)
	if err == nil {
		s.publishNewMessage(ctx, conversation.ID, firstMessage)
		return conversation, nil
	}

	// Гонка двух первых обращений: уникальный индекс пропустил только одного,
	// проигравший дописывает свое сообщение в победивший диалог
	if errors.Is(err, repository.ErrDuplicateConversation) {
		existing, ferr := s.conversationRepo.FindActive(ctx, product.ID, buyerID)
		if ferr != nil {
			return nil, ferr
		}
		if aerr := s.appendMessage(ctx, existing, buyerID, content, imageURL); aerr != nil {
			return nil, aerr
		}
		return existing, nil
	}

	return nil, err
}

func (s *conversationService) appendMessage(ctx context.Context, conversation *domain.Conversation, senderID uuid.UUID, content string, imageURL *string) error {
	if !conversation.CanWrite(senderID) {
		return apperrors.ErrConversationArchived
	}

	message := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Content:        content,
		ImageURL:       imageURL,
		CreatedAt:      time.Now(),
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return err
	}

	s.publishNewMessage(ctx, conversation.ID, message)
	return nil
}

func (s *conversationService) publishNewMessage(ctx context.Context, conversationID uuid.UUID, message *domain.Message) {
	s.publisher.Publish(ctx, domain.ConversationChannel(conversationID), domain.Event{
		Event:   domain.EventNewMessage,
		Payload: domain.NewMessagePayload{Message: message},
	})
}

func (s *conversationService) buildThread(ctx context.Context, conversation *domain.Conversation, product *domain.Product, requesterID uuid.UUID) (*domain.ConversationThread, error) {
	messages, _, err := s.messageRepo.ListPage(ctx, conversation.ID, 1, s.cfg.DefaultPageLimit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	for _, message := range messages {
		message.IsOwnMessage = message.SenderID == requesterID
	}

	thread := &domain.ConversationThread{
		Conversation: conversation,
		Product:      product.Summary(),
		Messages:     messages,
	}

	if buyer, err := s.users.GetSummary(ctx, conversation.BuyerID); err == nil {
		thread.Buyer = *buyer
	}
	if seller, err := s.users.GetSummary(ctx, conversation.SellerID); err == nil {
		thread.Seller = *seller
	}

	return thread, nil
}

func (s *conversationService) Get(ctx context.Context, conversationID, requesterID uuid.UUID) (*domain.Conversation, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.IsParticipant(requesterID) {
		return nil, apperrors.ErrAccessDenied
	}
	return conversation, nil
}

func (s *conversationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.ConversationPreview, error) {
	return s.conversationRepo.ListForUser(ctx, userID)
}

func (s *conversationService) Archive(ctx context.Context, conversationID, requesterID uuid.UUID) error {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.IsParticipant(requesterID) {
		return apperrors.ErrAccessDenied
	}

	// Архивный диалог остается читаемым, блокируется только запись
	return s.conversationRepo.Archive(ctx, conversationID)
}
