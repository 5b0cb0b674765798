package models

import (
	"time"

	"rednote/internal/store"
)

// Message is one entry in a conversation's append-only history.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	Avatar         string    `json:"avatar"`
	Timestamp      time.Time `json:"timestamp"`
}

// MessageFromDocument normalizes a raw message document. The conversation
// id comes from the subscription, not the document, since messages live in
// a per-conversation subcollection.
func MessageFromDocument(doc store.Document, conversationID string, now time.Time) Message {
	return Message{
		ID:             doc.ID,
		ConversationID: conversationID,
		SenderID:       docString(doc.Data, "senderId"),
		Sender:         docString(doc.Data, "senderUsername"),
		Content:        docString(doc.Data, "content"),
		Avatar:         docString(doc.Data, "avatar"),
		Timestamp:      docTime(doc.Data, "timestamp", now),
	}
}
