package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"marketplace_messaging/internal/config"
	"marketplace_messaging/internal/domain"
	"marketplace_messaging/internal/repository"
	apperrors "marketplace_messaging/pkg/errors"
	"marketplace_messaging/pkg/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Fatal(string, ...any) {}

func (l nopLogger) With(...any) logger.Logger { return l }

func testChatConfig() config.ChatConfig {
	return config.ChatConfig{
		DefaultPageLimit: 50,
		MaxPageLimit:     100,
		TypingTTL:        5 * time.Second,
	}
}

// memStore — хранилище диалогов и сообщений в памяти с семантикой
// боевых репозиториев: уникальность активного диалога по (товар, покупатель),
// выдача страниц от новых к старым, идемпотентный mark-read
type memStore struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*domain.Conversation
	messages      []*domain.Message
	products      map[uuid.UUID]*domain.Product
	users         map[uuid.UUID]*domain.UserSummary
}

func newMemStore() *memStore {
	return &memStore{
		conversations: make(map[uuid.UUID]*domain.Conversation),
		products:      make(map[uuid.UUID]*domain.Product),
		users:         make(map[uuid.UUID]*domain.UserSummary),
	}
}

func (s *memStore) addProduct(sellerID uuid.UUID, status string) *domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &domain.Product{
		ID:       uuid.New(),
		SellerID: sellerID,
		Title:    "Ноутбук",
		Price:    45000,
		Currency: "RUB",
		Status:   status,
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) addUser(name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[id] = &domain.UserSummary{ID: id, DisplayName: name}
	return id
}

func copyConversation(c *domain.Conversation) *domain.Conversation {
	dup := *c
	return &dup
}

func copyMessage(m *domain.Message) *domain.Message {
	dup := *m
	return &dup
}

func (s *memStore) Create(ctx context.Context, conversation *domain.Conversation, firstMessage *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.conversations {
		if existing.ProductID == conversation.ProductID &&
			existing.BuyerID == conversation.BuyerID &&
			existing.Status == domain.ConversationStatusActive {
			return repository.ErrDuplicateConversation
		}
	}

	s.conversations[conversation.ID] = copyConversation(conversation)
	firstMessage.ConversationID = conversation.ID
	s.messages = append(s.messages, copyMessage(firstMessage))
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.conversations[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyConversation(conversation), nil
}

func (s *memStore) FindActive(ctx context.Context, productID, buyerID uuid.UUID) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conversation := range s.conversations {
		if conversation.ProductID == productID &&
			conversation.BuyerID == buyerID &&
			conversation.Status == domain.ConversationStatusActive {
			return copyConversation(conversation), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.ConversationPreview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var previews []*domain.ConversationPreview
	for _, conversation := range s.conversations {
		if !conversation.IsParticipant(userID) || conversation.Status != domain.ConversationStatusActive {
			continue
		}

		preview := &domain.ConversationPreview{
			ID:        conversation.ID,
			Status:    conversation.Status,
			UpdatedAt: conversation.UpdatedAt,
		}
		if product, ok := s.products[conversation.ProductID]; ok {
			preview.Product = product.Summary()
		}
		if interlocutor, ok := s.users[conversation.OtherParticipant(userID)]; ok {
			preview.Interlocutor = *interlocutor
		}

		for _, message := range s.messages {
			if message.ConversationID != conversation.ID {
				continue
			}
			preview.LastMessage = &domain.LastMessagePreview{
				Content:      message.Content,
				IsOwnMessage: message.SenderID == userID,
				CreatedAt:    message.CreatedAt,
			}
			if message.SenderID != userID && !message.Read {
				preview.UnreadCount++
			}
		}
		previews = append(previews, preview)
	}
	return previews, nil
}

func (s *memStore) Archive(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.conversations[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	conversation.Status = domain.ConversationStatusArchived
	conversation.UpdatedAt = time.Now()
	return nil
}

// --- MessageRepository ---

type memMessages struct {
	store *memStore
}

func (s *memStore) messageRepo() repository.MessageRepository {
	return &memMessages{store: s}
}

func (m *memMessages) Create(ctx context.Context, message *domain.Message) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, copyMessage(message))
	if conversation, ok := s.conversations[message.ConversationID]; ok {
		conversation.UpdatedAt = time.Now()
	}
	return nil
}

func (m *memMessages) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, message := range s.messages {
		if message.ID == id {
			return copyMessage(message), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memMessages) ListPage(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]*domain.Message, int64, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*domain.Message
	for _, message := range s.messages {
		if message.ConversationID == conversationID {
			all = append(all, message)
		}
	}

	// От новых к старым, как отдает SQL-репозиторий
	reversed := make([]*domain.Message, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		reversed = append(reversed, all[i])
	}

	offset := (page - 1) * limit
	if offset >= len(reversed) {
		return nil, int64(len(all)), nil
	}
	end := offset + limit
	if end > len(reversed) {
		end = len(reversed)
	}

	result := make([]*domain.Message, 0, end-offset)
	for _, message := range reversed[offset:end] {
		dup := copyMessage(message)
		if sender, ok := s.users[message.SenderID]; ok {
			dup.Sender = sender
		}
		result = append(result, dup)
	}
	return result, int64(len(all)), nil
}

func (m *memMessages) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID, messageIDs []uuid.UUID) ([]uuid.UUID, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[uuid.UUID]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = struct{}{}
	}

	var read []uuid.UUID
	for _, message := range s.messages {
		if message.ConversationID != conversationID || message.SenderID == readerID || message.Read {
			continue
		}
		if _, ok := wanted[message.ID]; !ok {
			continue
		}
		message.Read = true
		read = append(read, message.ID)
	}
	return read, nil
}

func (m *memMessages) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) ([]uuid.UUID, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var read []uuid.UUID
	for _, message := range s.messages {
		if message.ConversationID == conversationID && message.SenderID != readerID && !message.Read {
			message.Read = true
			read = append(read, message.ID)
		}
	}
	return read, nil
}

func (m *memMessages) SetEdited(ctx context.Context, message *domain.Message) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stored := range s.messages {
		if stored.ID == message.ID {
			now := time.Now()
			stored.Content = message.Content
			stored.EditedAt = &now
			message.EditedAt = &now
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// --- ProductCatalog / UserDirectory ---

type memCatalog struct {
	store *memStore
	err   error
}

func (c *memCatalog) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	product, ok := c.store.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	dup := *product
	return &dup, nil
}

type memUsers struct {
	store *memStore
}

func (u *memUsers) GetSummary(ctx context.Context, id uuid.UUID) (*domain.UserSummary, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	summary, ok := u.store.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	dup := *summary
	return &dup, nil
}

// --- TypingRepository ---

type memTyping struct {
	mu    sync.Mutex
	flags map[uuid.UUID]map[uuid.UUID]time.Time
}

func newMemTyping() *memTyping {
	return &memTyping{flags: make(map[uuid.UUID]map[uuid.UUID]time.Time)}
}

func (t *memTyping) SetTyping(ctx context.Context, conversationID, userID uuid.UUID, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.flags[conversationID] == nil {
		t.flags[conversationID] = make(map[uuid.UUID]time.Time)
	}
	t.flags[conversationID][userID] = time.Now().Add(ttl)
	return nil
}

func (t *memTyping) ClearTyping(ctx context.Context, conversationID, userID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.flags[conversationID], userID)
	return nil
}

func (t *memTyping) ActiveTypists(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var users []uuid.UUID
	for userID, expiry := range t.flags[conversationID] {
		if expiry.After(now) {
			users = append(users, userID)
		}
	}
	return users, nil
}

// --- EventPublisher ---

type recordedEvent struct {
	Channel string
	Event   domain.Event
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Publish(ctx context.Context, channel string, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Channel: channel, Event: event})
}

func (r *eventRecorder) named(name string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []recordedEvent
	for _, e := range r.events {
		if e.Event.Event == name {
			matched = append(matched, e)
		}
	}
	return matched
}
