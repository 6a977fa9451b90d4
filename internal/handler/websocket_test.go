package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"marketplace_messaging/internal/domain"
	"marketplace_messaging/internal/realtime"
	"marketplace_messaging/pkg/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Fatal(string, ...any) {}

func (l nopLogger) With(...any) logger.Logger { return l }

type stubConversationService struct {
	conversation *domain.Conversation
}

func (s *stubConversationService) FindOrCreate(ctx context.Context, productID, buyerID uuid.UUID, content string, imageURL *string) (*domain.ConversationThread, error) {
	return nil, nil
}

func (s *stubConversationService) Get(ctx context.Context, conversationID, requesterID uuid.UUID) (*domain.Conversation, error) {
	return s.conversation, nil
}

func (s *stubConversationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.ConversationPreview, error) {
	return nil, nil
}

func (s *stubConversationService) Archive(ctx context.Context, conversationID, requesterID uuid.UUID) error {
	return nil
}

type stubTypingService struct{}

func (stubTypingService) SetTyping(ctx context.Context, conversationID, userID uuid.UUID, isTyping bool) error {
	return nil
}

func (stubTypingService) ActiveTypists(ctx context.Context, conversationID, requesterID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

type publishedEvent struct {
	Channel string
	Event   domain.Event
}

type publisherRecorder struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *publisherRecorder) Publish(ctx context.Context, channel string, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{Channel: channel, Event: event})
}

func (r *publisherRecorder) waitFor(t *testing.T, name string) string {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		for _, e := range r.events {
			if e.Event.Event == name {
				r.mu.Unlock()
				return e.Channel
			}
		}
		r.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("event %s was not published", name)
	return ""
}

func TestWebSocketPresencePublishedThroughBus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	buyerID := uuid.New()
	sellerID := uuid.New()
	conversation := &domain.Conversation{
		ID:       uuid.New(),
		BuyerID:  buyerID,
		SellerID: sellerID,
		Status:   domain.ConversationStatusActive,
	}

	hub := realtime.NewHub()
	publisher := &publisherRecorder{}
	h := NewWebSocketHandler(hub, publisher, &stubConversationService{conversation: conversation}, stubTypingService{}, nopLogger{})

	router := gin.New()
	router.GET("/ws/conversations/:id", func(c *gin.Context) {
		c.Set("user_id", buyerID)
	}, h.HandleConversation)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/conversations/" + conversation.ID.String()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	// online уходит через шину в канал присутствия подключившегося
	channel := publisher.waitFor(t, domain.EventUserOnline)
	if channel != domain.PresenceChannel(buyerID) {
		t.Fatalf("expected %s, got %s", domain.PresenceChannel(buyerID), channel)
	}

	// Соединение подписано на канал диалога и присутствие собеседника
	if delivered := hub.Publish(domain.ConversationChannel(conversation.ID), []byte(`{}`)); delivered != 1 {
		t.Fatalf("expected conversation subscription, got %d deliveries", delivered)
	}
	if delivered := hub.Publish(domain.PresenceChannel(sellerID), []byte(`{}`)); delivered != 1 {
		t.Fatalf("expected interlocutor presence subscription, got %d deliveries", delivered)
	}

	ws.Close()

	channel = publisher.waitFor(t, domain.EventUserOffline)
	if channel != domain.PresenceChannel(buyerID) {
		t.Fatalf("expected %s, got %s", domain.PresenceChannel(buyerID), channel)
	}
}
