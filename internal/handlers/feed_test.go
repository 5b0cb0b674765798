package handlers

import (
	"bytes"
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

var testIdentity = models.Identity{ID: "u1", Username: "maria", Job: "welder"}

func setupFeedRouter(handler *FeedHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.POST("/posts", handler.CreatePost)
	r.POST("/posts/:post_id/like", handler.ToggleLike)
	r.POST("/posts/:post_id/comments", handler.AddComment)
	return r
}

func TestCreatePostSuccess(t *testing.T) {
	gw := new(mocks.GatewayMock)
	resolver := new(mocks.IdentityMock)
	router := setupFeedRouter(NewFeedHandler(gw, resolver))

	resolver.On("Profile", mock.Anything, "u1").Return("maria", "welder", nil).Once()
	gw.On("CreatePost", mock.Anything, "hello", testIdentity).
		Return(&models.Post{ID: "p1", Content: "hello"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewBufferString(`{"content":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	gw.AssertExpectations(t)
	resolver.AssertExpectations(t)
}

func TestCreatePostEmptyContentNoContent(t *testing.T) {
	gw := new(mocks.GatewayMock)
	resolver := new(mocks.IdentityMock)
	router := setupFeedRouter(NewFeedHandler(gw, resolver))

	resolver.On("Profile", mock.Anything, "u1").Return("maria", "welder", nil).Once()
	gw.On("CreatePost", mock.Anything, "  ", testIdentity).Return((*models.Post)(nil), nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewBufferString(`{"content":"  "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	gw.AssertExpectations(t)
}

func TestCreatePostWithoutProfile(t *testing.T) {
	gw := new(mocks.GatewayMock)
	resolver := new(mocks.IdentityMock)
	router := setupFeedRouter(NewFeedHandler(gw, resolver))

	resolver.On("Profile", mock.Anything, "u1").Return("", "", identity.ErrProfileNotSet).Once()

	req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewBufferString(`{"content":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	gw.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything, mock.Anything)
}

func TestToggleLikeSuccess(t *testing.T) {
	gw := new(mocks.GatewayMock)
	resolver := new(mocks.IdentityMock)
	router := setupFeedRouter(NewFeedHandler(gw, resolver))

	gw.On("ToggleLike", mock.Anything, "p1", "u1", []string{"u2"}).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/posts/p1/like", bytes.NewBufferString(`{"liked_by":["u2"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	gw.AssertExpectations(t)
}

func TestToggleLikeGatewayError(t *testing.T) {
	gw := new(mocks.GatewayMock)
	resolver := new(mocks.IdentityMock)
	router := setupFeedRouter(NewFeedHandler(gw, resolver))

	gw.On("ToggleLike", mock.Anything, "p1", "u1", []string(nil)).Return(assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/posts/p1/like", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	gw.AssertExpectations(t)
}

func TestAddCommentSuccess(t *testing.T) {
	gw := new(mocks.GatewayMock)
	resolver := new(mocks.IdentityMock)
	router := setupFeedRouter(NewFeedHandler(gw, resolver))

	resolver.On("Profile", mock.Anything, "u1").Return("maria", "welder", nil).Once()
	gw.On("AddComment", mock.Anything, "p1", "nice", testIdentity).
		Return(&models.Comment{ID: "c1", Content: "nice"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/posts/p1/comments", bytes.NewBufferString(`{"content":"nice"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	gw.AssertExpectations(t)
}

func TestAddCommentEmptyContentNoContent(t *testing.T) {
	gw := new(mocks.GatewayMock)
	resolver := new(mocks.IdentityMock)
	router := setupFeedRouter(NewFeedHandler(gw, resolver))

	resolver.On("Profile", mock.Anything, "u1").Return("maria", "welder", nil).Once()
	gw.On("AddComment", mock.Anything, "p1", "", testIdentity).Return((*models.Comment)(nil), nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/posts/p1/comments", bytes.NewBufferString(`{"content":""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	gw.AssertExpectations(t)
}
