package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rednote/internal/identity"
	"rednote/internal/mocks"
	"rednote/internal/models"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/anonymous", handler.SignInAnonymously)
	return r
}

func TestSignInAnonymouslySuccess(t *testing.T) {
	resolver := new(mocks.IdentityMock)
	router := setupAuthRouter(NewAuthHandler(resolver))

	resolver.On("EnsureIdentity", mock.Anything).Return(identity.Session{
		Identity:   models.Identity{ID: "u1", Username: "maria", Job: "welder"},
		Token:      "tok",
		ProfileSet: true,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/anonymous", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp identity.Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "u1", resp.Identity.ID)
	assert.True(t, resp.ProfileSet)
	resolver.AssertExpectations(t)
}

func TestSignInAnonymouslyAuthUnavailable(t *testing.T) {
	resolver := new(mocks.IdentityMock)
	router := setupAuthRouter(NewAuthHandler(resolver))

	resolver.On("EnsureIdentity", mock.Anything).Return(identity.Session{}, identity.ErrAuthUnavailable).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/anonymous", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resolver.AssertExpectations(t)
}
