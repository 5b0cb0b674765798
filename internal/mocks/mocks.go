package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rednote/internal/gateway"
	"rednote/internal/identity"
	"rednote/internal/models"
)

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) CreatePost(ctx context.Context, content string, ident models.Identity) (*models.Post, error) {
	args := m.Called(ctx, content, ident)
	var post *models.Post
	if val := args.Get(0); val != nil {
		post = val.(*models.Post)
	}
	return post, args.Error(1)
}

func (m *GatewayMock) ToggleLike(ctx context.Context, postID, identityID string, currentLikedBy []string) error {
	args := m.Called(ctx, postID, identityID, currentLikedBy)
	return args.Error(0)
}

func (m *GatewayMock) AddComment(ctx context.Context, postID, content string, ident models.Identity) (*models.Comment, error) {
	args := m.Called(ctx, postID, content, ident)
	var comment *models.Comment
	if val := args.Get(0); val != nil {
		comment = val.(*models.Comment)
	}
	return comment, args.Error(1)
}

func (m *GatewayMock) GetOrCreateConversation(ctx context.Context, self models.Identity, targetID, targetName string) (models.Conversation, error) {
	args := m.Called(ctx, self, targetID, targetName)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *GatewayMock) SendMessage(ctx context.Context, conversationID, content string, ident models.Identity) (*models.Message, error) {
	args := m.Called(ctx, conversationID, content, ident)
	var msg *models.Message
	if val := args.Get(0); val != nil {
		msg = val.(*models.Message)
	}
	return msg, args.Error(1)
}

type IdentityMock struct {
	mock.Mock
}

func (m *IdentityMock) EnsureIdentity(ctx context.Context) (identity.Session, error) {
	args := m.Called(ctx)
	var session identity.Session
	if val := args.Get(0); val != nil {
		session = val.(identity.Session)
	}
	return session, args.Error(1)
}

func (m *IdentityMock) SetProfile(ctx context.Context, userID, username, job string) error {
	args := m.Called(ctx, userID, username, job)
	return args.Error(0)
}

func (m *IdentityMock) Profile(ctx context.Context, userID string) (string, string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.String(1), args.Error(2)
}

var (
	_ gateway.Service  = (*GatewayMock)(nil)
	_ identity.Service = (*IdentityMock)(nil)
)
