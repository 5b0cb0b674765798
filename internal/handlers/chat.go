package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rednote/internal/gateway"
	"rednote/internal/identity"
)

// ChatHandler manages conversation mutations. The conversation list and
// message history go over their websockets; these endpoints only write.
type ChatHandler struct {
	gateway  gateway.Service
	resolver identity.Service
}

func NewChatHandler(gw gateway.Service, resolver identity.Service) *ChatHandler {
	return &ChatHandler{gateway: gw, resolver: resolver}
}

// StartChat returns the conversation between the caller and the target,
// creating it on first contact.
func (h *ChatHandler) StartChat(c *gin.Context) {
	ident, ok := resolveIdentity(c, h.resolver)
	if !ok {
		return
	}

	var req struct {
		TargetID   string `json:"target_id" binding:"required"`
		TargetName string `json:"target_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.gateway.GetOrCreateConversation(c.Request.Context(), ident, req.TargetID, req.TargetName)
	if err != nil {
		if errors.Is(err, gateway.ErrSelfConversation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start conversation"})
		return
	}

	c.JSON(http.StatusOK, conv.ViewFor(ident.ID))
}

// PostMessage appends a message to a conversation. Empty content is
// acknowledged with 204 and nothing is written.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	chatID := c.Param("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	ident, ok := resolveIdentity(c, h.resolver)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.gateway.SendMessage(c.Request.Context(), chatID, req.Content, ident)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send message"})
		return
	}
	if msg == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusCreated, msg)
}
