package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rednote/internal/identity"
)

// ProfileHandler reads and writes the caller's display profile.
type ProfileHandler struct {
	resolver identity.Service
}

func NewProfileHandler(resolver identity.Service) *ProfileHandler {
	return &ProfileHandler{resolver: resolver}
}

// GetProfile returns the caller's profile, 404 when none was set up yet.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	username, job, err := h.resolver.Profile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, identity.ErrProfileNotSet) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not set"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": username, "job": job})
}

// SetProfile stores the caller's display fields. The local copy is written
// before the handler returns; the remote mirror catches up asynchronously.
func (h *ProfileHandler) SetProfile(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
		Job      string `json:"job"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is empty"})
		return
	}

	if err := h.resolver.SetProfile(c.Request.Context(), userID, username, strings.TrimSpace(req.Job)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": username, "job": strings.TrimSpace(req.Job)})
}
