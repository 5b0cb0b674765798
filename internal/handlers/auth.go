package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rednote/internal/identity"
)

// AuthHandler establishes anonymous sessions.
type AuthHandler struct {
	resolver identity.Service
}

func NewAuthHandler(resolver identity.Service) *AuthHandler {
	return &AuthHandler{resolver: resolver}
}

// SignInAnonymously mints a fresh anonymous identity and resolves any
// profile already stored for it.
func (h *AuthHandler) SignInAnonymously(c *gin.Context) {
	session, err := h.resolver.EnsureIdentity(c.Request.Context())
	if err != nil {
		if errors.Is(err, identity.ErrAuthUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign-in failed"})
		return
	}

	c.JSON(http.StatusOK, session)
}
