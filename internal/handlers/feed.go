package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rednote/internal/gateway"
	"rednote/internal/identity"
)

// FeedHandler manages post and comment mutations. Reads go over the feed
// websocket; these endpoints only write.
type FeedHandler struct {
	gateway  gateway.Service
	resolver identity.Service
}

func NewFeedHandler(gw gateway.Service, resolver identity.Service) *FeedHandler {
	return &FeedHandler{gateway: gw, resolver: resolver}
}

// CreatePost appends a post. Empty content is acknowledged with 204 and
// nothing is written.
func (h *FeedHandler) CreatePost(c *gin.Context) {
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

	post, err := h.gateway.CreatePost(c.Request.Context(), req.Content, ident)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create post"})
		return
	}
	if post == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// ToggleLike flips the caller's like on a post, deciding from the likedBy
// list the caller last saw.
func (h *FeedHandler) ToggleLike(c *gin.Context) {
	postID := c.Param("post_id")
	if postID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	userID := userIDFromContext(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		LikedBy []string `json:"liked_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.gateway.ToggleLike(c.Request.Context(), postID, userID, req.LikedBy); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not toggle like"})
		return
	}

	c.Status(http.StatusNoContent)
}

// AddComment appends a comment under a post. Empty content is acknowledged
// with 204 and nothing is written.
func (h *FeedHandler) AddComment(c *gin.Context) {
	postID := c.Param("post_id")
	if postID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
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

	comment, err := h.gateway.AddComment(c.Request.Context(), postID, req.Content, ident)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add comment"})
		return
	}
	if comment == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusCreated, comment)
}
