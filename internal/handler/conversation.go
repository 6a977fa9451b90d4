package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"marketplace_messaging/internal/middleware"
	"marketplace_messaging/internal/service"
	"marketplace_messaging/pkg/logger"
)

type ConversationHandler struct {
	conversationService service.ConversationService
	log                 logger.Logger
}

func NewConversationHandler(conversationService service.ConversationService, log logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		log:                 log,
	}
}

// List возвращает активные диалоги пользователя: превью последнего
// сообщения, счетчик непрочитанных, сортировка по updated_at
func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	previews, err := h.conversationService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	respondData(c, http.StatusOK, previews)
}

type CreateConversationRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url"`
}

// Create находит или создает диалог по объявлению и добавляет первое сообщение
func (h *ConversationHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	thread, err := h.conversationService.FindOrCreate(c.Request.Context(), req.ProductID, userID, req.Content, req.ImageURL)
	if err != nil {
		c.Error(err)
		return
	}

	respondData(c, http.StatusCreated, thread)
}

func (h *ConversationHandler) Archive(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid conversation ID")
		return
	}

	if err := h.conversationService.Archive(c.Request.Context(), conversationID, userID); err != nil {
		c.Error(err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"archived": true})
}
