package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/service"
)

// MessageHandler exposes the message lifecycle over REST.
type MessageHandler struct {
	svc      *service.MessageService
	pageSize int
}

// NewMessageHandler builds a MessageHandler. pageSize is the history page
// size served to clients.
func NewMessageHandler(svc *service.MessageService, pageSize int) *MessageHandler {
	return &MessageHandler{svc: svc, pageSize: pageSize}
}

type messageBody struct {
	Message string `json:"message" binding:"required"`
}

// SendMessage stores a message for the receiver in the path and returns it.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	receiverID, err := strconv.Atoi(c.Param("receiverId"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid receiver id")
		return
	}

	var req messageBody
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "All fields are required")
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.svc.Send(c.Request.Context(), userID, receiverID, req.Message)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "responseData": msg})
}

// GetMessages returns one history page for the conversation with the
// participant in the path.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	peerID, err := strconv.Atoi(c.Param("otherParticipantId"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid participant id")
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid page")
			return
		}
		// out-of-range pages clamp to the newest block
		if page < 1 {
			page = 1
		}
	}

	userID := c.GetInt("userID")
	msgs, hasMore, err := h.svc.FetchHistory(c.Request.Context(), userID, peerID, page, h.pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"responseData": gin.H{
			"messages": msgs,
			"page":     page,
			"hasMore":  hasMore,
		},
	})
}

// UpdateMessage edits a message's body (sender only).
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("messageId"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid message id")
		return
	}

	var req messageBody
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Message ID and new content are required")
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.svc.Edit(c.Request.Context(), messageID, userID, req.Message)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "responseData": msg})
}

// DeleteMessage removes a message (sender only).
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("messageId"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid message id")
		return
	}

	userID := c.GetInt("userID")
	if err := h.svc.Delete(c.Request.Context(), messageID, userID); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message deleted successfully"})
}

// ListConversations returns the caller's conversation summaries.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	summaries, err := h.svc.ListConversations(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if summaries == nil {
		summaries = []models.ConversationSummary{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "responseData": gin.H{"conversations": summaries}})
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(c, http.StatusBadRequest, "All fields are required")
	case errors.Is(err, service.ErrForbidden):
		writeError(c, http.StatusForbidden, "You can only modify your own messages")
	case errors.Is(err, repositories.ErrMessageNotFound):
		writeError(c, http.StatusNotFound, "Message not found")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "errMessage": msg})
}
