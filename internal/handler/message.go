package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"marketplace_messaging/internal/middleware"
	"marketplace_messaging/internal/service"
	"marketplace_messaging/pkg/logger"
)

type MessageHandler struct {
	messageService service.MessageService
	log            logger.Logger
}

func NewMessageHandler(messageService service.MessageService, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		log:            log,
	}
}

// GetMessages отдает страницу сообщений с конвертом пагинации.
// Просмотр страницы помечает чужие сообщения прочитанными
func (h *MessageHandler) GetMessages(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	conversationID, err := uuid.Parse(c.Query("conversation_id"))
	if err != nil {
		respondBadRequest(c, "invalid conversation ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	result, err := h.messageService.GetMessages(c.Request.Context(), conversationID, userID, page, limit)
	if err != nil {
		c.Error(err)
		return
	}

	respondData(c, http.StatusOK, result)
}

type SendMessageRequest struct {
	ConversationID uuid.UUID `json:"conversation_id" binding:"required"`
	Content        string    `json:"content"`
	ImageURL       *string   `json:"image_url"`
	// Клиентский корреляционный ID для сверки с оптимистичным сообщением
	OptimisticID string `json:"optimistic_id"`
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	message, err := h.messageService.SendMessage(c.Request.Context(), req.ConversationID, userID, req.Content, req.ImageURL, req.OptimisticID)
	if err != nil {
		c.Error(err)
		return
	}

	respondData(c, http.StatusCreated, message)
}

type MarkReadRequest struct {
	ConversationID uuid.UUID   `json:"conversation_id" binding:"required"`
	MessageIDs     []uuid.UUID `json:"message_ids" binding:"required"`
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.messageService.MarkAsRead(c.Request.Context(), req.ConversationID, userID, req.MessageIDs); err != nil {
		c.Error(err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"read": true})
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *MessageHandler) EditMessage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		respondBadRequest(c, "invalid message ID")
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	message, err := h.messageService.EditMessage(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		c.Error(err)
		return
	}

	respondData(c, http.StatusOK, message)
}
