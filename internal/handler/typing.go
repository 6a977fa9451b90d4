package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"marketplace_messaging/internal/middleware"
	"marketplace_messaging/internal/service"
	"marketplace_messaging/pkg/logger"
)

type TypingHandler struct {
	typingService service.TypingService
	log           logger.Logger
}

func NewTypingHandler(typingService service.TypingService, log logger.Logger) *TypingHandler {
	return &TypingHandler{
		typingService: typingService,
		log:           log,
	}
}

type TypingRequest struct {
	ConversationID uuid.UUID `json:"conversation_id" binding:"required"`
	IsTyping       *bool     `json:"is_typing" binding:"required"`
}

// SetTyping принимает переходы индикатора печати (начал/перестал).
// Клиент шлет только фронты, не каждое нажатие
func (h *TypingHandler) SetTyping(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.typingService.SetTyping(c.Request.Context(), req.ConversationID, userID, *req.IsTyping); err != nil {
		c.Error(err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"is_typing": *req.IsTyping})
}
