package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rednote/internal/identity"
	"rednote/internal/models"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) string {
	if val, ok := c.Get("userID"); ok {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// resolveIdentity loads the caller's full identity. Mutations need display
// fields, so a caller without a stored profile is rejected here.
func resolveIdentity(c *gin.Context, resolver identity.Service) (models.Identity, bool) {
	userID := userIDFromContext(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return models.Identity{}, false
	}

	username, job, err := resolver.Profile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, identity.ErrProfileNotSet) {
			c.JSON(http.StatusForbidden, gin.H{"error": "profile not set"})
			return models.Identity{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve profile"})
		return models.Identity{}, false
	}

	return models.Identity{ID: userID, Username: username, Job: job}, true
}
