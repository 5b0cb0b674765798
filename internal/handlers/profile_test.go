package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rednote/internal/identity"
	"rednote/internal/mocks"
)

func setupProfileRouter(handler *ProfileHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.GET("/profile", handler.GetProfile)
	r.POST("/profile", handler.SetProfile)
	return r
}

func TestGetProfileSuccess(t *testing.T) {
	resolver := new(mocks.IdentityMock)
	router := setupProfileRouter(NewProfileHandler(resolver))

	resolver.On("Profile", mock.Anything, "u1").Return("maria", "welder", nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"username":"maria","job":"welder"}`, rec.Body.String())
	resolver.AssertExpectations(t)
}

func TestGetProfileNotSet(t *testing.T) {
	resolver := new(mocks.IdentityMock)
	router := setupProfileRouter(NewProfileHandler(resolver))

	resolver.On("Profile", mock.Anything, "u1").Return("", "", identity.ErrProfileNotSet).Once()

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resolver.AssertExpectations(t)
}

func TestSetProfileSuccess(t *testing.T) {
	resolver := new(mocks.IdentityMock)
	router := setupProfileRouter(NewProfileHandler(resolver))

	resolver.On("SetProfile", mock.Anything, "u1", "maria", "welder").Return(nil).Once()

	body := bytes.NewBufferString(`{"username":" maria ","job":" welder "}`)
	req := httptest.NewRequest(http.MethodPost, "/profile", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resolver.AssertExpectations(t)
}

func TestSetProfileRejectsMissingUsername(t *testing.T) {
	resolver := new(mocks.IdentityMock)
	router := setupProfileRouter(NewProfileHandler(resolver))

	req := httptest.NewRequest(http.MethodPost, "/profile", bytes.NewBufferString(`{"job":"welder"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resolver.AssertNotCalled(t, "SetProfile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetProfileRejectsBlankUsername(t *testing.T) {
	resolver := new(mocks.IdentityMock)
	router := setupProfileRouter(NewProfileHandler(resolver))

	req := httptest.NewRequest(http.MethodPost, "/profile", bytes.NewBufferString(`{"username":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resolver.AssertNotCalled(t, "SetProfile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
