// Package gateway is the write path. Every operation is a direct store
// write; nothing here mutates local view state, the projections pick the
// change up from the next snapshot.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"rednote/internal/models"
	"rednote/internal/observability"
	"rednote/internal/store"
)

var ErrSelfConversation = errors.New("cannot start a conversation with yourself")

// Service is the mutation surface the handlers consume. Create operations
// return nil on empty content: skipped, not failed.
type Service interface {
	CreatePost(ctx context.Context, content string, ident models.Identity) (*models.Post, error)
	ToggleLike(ctx context.Context, postID, identityID string, currentLikedBy []string) error
	AddComment(ctx context.Context, postID, content string, ident models.Identity) (*models.Comment, error)
	GetOrCreateConversation(ctx context.Context, self models.Identity, targetID, targetName string) (models.Conversation, error)
	SendMessage(ctx context.Context, conversationID, content string, ident models.Identity) (*models.Message, error)
}

// Gateway implements Service against a document store.
type Gateway struct {
	store store.Store
}

func New(st store.Store) *Gateway {
	return &Gateway{store: st}
}

// CreatePost appends a post. Whitespace-only content is silently skipped.
func (g *Gateway) CreatePost(ctx context.Context, content string, ident models.Identity) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	author := ident.Username
	if author == "" {
		author = "Anonymous"
	}
	doc, err := g.store.Add(ctx, models.PostsCollection, map[string]any{
		"author":    author,
		"username":  ident.DisplayName(),
		"content":   content,
		"likes":     0,
		"comments":  0,
		"likedBy":   []string{},
		"avatar":    models.AvatarURL(ident.Username),
		"authorId":  ident.ID,
		"timestamp": store.ServerTimestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	observability.IncStoreWrite(models.PostsCollection, "add")
	observability.PublishMutation(ctx, observability.EventPostCreated, ident.ID, map[string]interface{}{
		"post_id": doc.ID,
	})

	post := models.PostFromDocument(doc, doc.CreatedAt)
	return &post, nil
}

// ToggleLike flips identityID's like on a post. The decision is computed
// from the caller-supplied likedBy list, so two clients toggling from the
// same stale list race at the store; that lost-update window is an accepted
// part of the contract, not something to repair here.
func (g *Gateway) ToggleLike(ctx context.Context, postID, identityID string, currentLikedBy []string) error {
	likedBy := models.DedupeIDs(currentLikedBy)

	liked := false
	for _, id := range likedBy {
		if id == identityID {
			liked = true
			break
		}
	}

	if liked {
		next := make([]string, 0, len(likedBy)-1)
		for _, id := range likedBy {
			if id != identityID {
				next = append(next, id)
			}
		}
		likedBy = next
	} else {
		likedBy = append(likedBy, identityID)
	}
	// Deriving the count from the list keeps likes == |likedBy| no matter
	// what the caller handed us.
	likes := len(likedBy)

	err := g.store.Update(ctx, models.PostsCollection, postID, map[string]any{
		"likes":   likes,
		"likedBy": likedBy,
	})
	if err != nil {
		return fmt.Errorf("toggle like: %w", err)
	}
	observability.IncStoreWrite(models.PostsCollection, "update")
	observability.PublishMutation(ctx, observability.EventPostLiked, identityID, map[string]interface{}{
		"post_id": postID,
		"liked":   !liked,
	})
	return nil
}

// AddComment appends a comment under a post. Whitespace-only content is
// silently skipped.
func (g *Gateway) AddComment(ctx context.Context, postID, content string, ident models.Identity) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	collection := models.CommentsCollection(postID)
	doc, err := g.store.Add(ctx, collection, map[string]any{
		"authorId":       ident.ID,
		"authorUsername": ident.Handle(),
		"content":        content,
		"avatar":         models.AvatarURL(ident.Username),
		"timestamp":      store.ServerTimestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	observability.IncStoreWrite(observability.CollectionRoot(collection), "add")
	observability.PublishMutation(ctx, observability.EventCommentAdded, ident.ID, map[string]interface{}{
		"post_id":    postID,
		"comment_id": doc.ID,
	})

	comment := models.CommentFromDocument(doc, doc.CreatedAt)
	return &comment, nil
}

// GetOrCreateConversation returns the existing conversation between self
// and target, creating one if none exists. The lookup-before-create is not
// atomic: concurrent first contacts between the same pair can produce two
// documents. Best effort, per contract.
func (g *Gateway) GetOrCreateConversation(ctx context.Context, self models.Identity, targetID, targetName string) (models.Conversation, error) {
	if targetID == self.ID {
		return models.Conversation{}, ErrSelfConversation
	}

	existing, err := g.store.GetAll(ctx,
		store.C(models.ChatsCollection).Where("participants", store.OpArrayContains, self.ID))
	if err != nil {
		return models.Conversation{}, fmt.Errorf("look up conversations: %w", err)
	}
	for _, doc := range existing {
		conv := models.ConversationFromDocument(doc, doc.CreatedAt)
		for _, p := range conv.Participants {
			if p == targetID {
				return conv, nil
			}
		}
	}

	doc, err := g.store.Add(ctx, models.ChatsCollection, map[string]any{
		"participants": []string{self.ID, targetID},
		"participantNames": map[string]string{
			self.ID:  self.Username,
			targetID: targetName,
		},
		"lastMessage":          models.ConversationStartedMarker,
		"lastMessageTimestamp": store.ServerTimestamp,
		"createdAt":            store.ServerTimestamp,
	})
	if err != nil {
		return models.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	observability.IncStoreWrite(models.ChatsCollection, "add")
	observability.PublishMutation(ctx, observability.EventConversationStarted, self.ID, map[string]interface{}{
		"conversation_id": doc.ID,
		"target_id":       targetID,
	})

	return models.ConversationFromDocument(doc, doc.CreatedAt), nil
}

// SendMessage appends a message, then refreshes the conversation's
// denormalized summary. Two separate writes: a reader may see the message
// before the summary. If the summary write fails the message still stands;
// the summary stays stale until the next message corrects it.
func (g *Gateway) SendMessage(ctx context.Context, conversationID, content string, ident models.Identity) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	collection := models.MessagesCollection(conversationID)
	doc, err := g.store.Add(ctx, collection, map[string]any{
		"senderId":       ident.ID,
		"senderUsername": ident.Handle(),
		"content":        content,
		"avatar":         models.AvatarURL(ident.Username),
		"timestamp":      store.ServerTimestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	observability.IncStoreWrite(observability.CollectionRoot(collection), "add")

	err = g.store.Update(ctx, models.ChatsCollection, conversationID, map[string]any{
		"lastMessage":          content,
		"lastMessageTimestamp": store.ServerTimestamp,
	})
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).
			Msg("conversation summary update failed, summary stale until next message")
	} else {
		observability.IncStoreWrite(models.ChatsCollection, "update")
	}

	observability.PublishMutation(ctx, observability.EventMessageSent, ident.ID, map[string]interface{}{
		"conversation_id": conversationID,
		"message_id":      doc.ID,
	})

	msg := models.MessageFromDocument(doc, conversationID, doc.CreatedAt)
	return &msg, nil
}

var _ Service = (*Gateway)(nil)
