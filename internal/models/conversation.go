package models

import (
	"time"

	"rednote/internal/store"
)

// UnknownUser is the display fallback when a counterpart's name is missing
// from the conversation's denormalized name map.
const UnknownUser = "Unknown User"

// ConversationStartedMarker seeds lastMessage on a new conversation.
const ConversationStartedMarker = "Conversation started!"

// Conversation is a two-party chat with a denormalized summary of its
// latest message.
type Conversation struct {
	ID                   string            `json:"id"`
	Participants         []string          `json:"participants"`
	ParticipantNames     map[string]string `json:"participant_names"`
	LastMessage          string            `json:"last_message"`
	LastMessageTimestamp time.Time         `json:"last_message_timestamp"`
	CreatedAt            time.Time         `json:"created_at"`
}

// ConversationView is a Conversation plus the counterpart derivation for
// one viewer.
type ConversationView struct {
	Conversation
	CounterpartID   string `json:"counterpart_id"`
	CounterpartName string `json:"counterpart_name"`
}

// Counterpart returns the participant other than viewerID, with the
// UnknownUser fallback when the name map has no entry.
func (c Conversation) Counterpart(viewerID string) (string, string) {
	var id string
	for _, p := range c.Participants {
		if p != viewerID {
			id = p
			break
		}
	}
	name, ok := c.ParticipantNames[id]
	if !ok || name == "" {
		name = UnknownUser
	}
	return id, name
}

// ViewFor derives the viewer-specific projection of the conversation.
func (c Conversation) ViewFor(viewerID string) ConversationView {
	id, name := c.Counterpart(viewerID)
	return ConversationView{Conversation: c, CounterpartID: id, CounterpartName: name}
}

// ConversationFromDocument normalizes a raw chat document.
func ConversationFromDocument(doc store.Document, now time.Time) Conversation {
	return Conversation{
		ID:                   doc.ID,
		Participants:         docStringSlice(doc.Data, "participants"),
		ParticipantNames:     docStringMap(doc.Data, "participantNames"),
		LastMessage:          docString(doc.Data, "lastMessage"),
		LastMessageTimestamp: docTime(doc.Data, "lastMessageTimestamp", now),
		CreatedAt:            docTime(doc.Data, "createdAt", now),
	}
}
