package models

import "fmt"

// Collection layout of the document store.
const (
	PostsCollection = "posts"
	ChatsCollection = "chats"
)

func CommentsCollection(postID string) string {
	return fmt.Sprintf("%s/%s/comments", PostsCollection, postID)
}

func MessagesCollection(chatID string) string {
	return fmt.Sprintf("%s/%s/messages", ChatsCollection, chatID)
}

func ProfileCollection(userID string) string {
	return fmt.Sprintf("users/%s/profile", userID)
}

// ProfileDocID is the fixed id of the single profile document per user.
const ProfileDocID = "info"
