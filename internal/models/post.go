package models

import (
	"time"

	"rednote/internal/store"
)

// Post is one feed entry with its aggregated comments.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Avatar    string    `json:"avatar"`
	Likes     int       `json:"likes"`
	LikedBy   []string  `json:"liked_by"`
	Timestamp time.Time `json:"timestamp"`
	Comments  []Comment `json:"comments"`
}

// Comment belongs to exactly one post.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Avatar    string    `json:"avatar"`
	Timestamp time.Time `json:"timestamp"`
}

// PostFromDocument normalizes a raw post document. now substitutes for a
// timestamp the store has not confirmed yet.
func PostFromDocument(doc store.Document, now time.Time) Post {
	likedBy := DedupeIDs(docStringSlice(doc.Data, "likedBy"))
	if likedBy == nil {
		likedBy = []string{}
	}
	return Post{
		ID:        doc.ID,
		AuthorID:  docString(doc.Data, "authorId"),
		Author:    docString(doc.Data, "author"),
		Username:  docString(doc.Data, "username"),
		Content:   docString(doc.Data, "content"),
		Avatar:    docString(doc.Data, "avatar"),
		Likes:     docInt(doc.Data, "likes"),
		LikedBy:   likedBy,
		Timestamp: docTime(doc.Data, "timestamp", now),
		Comments:  []Comment{},
	}
}

// CommentFromDocument normalizes a raw comment document.
func CommentFromDocument(doc store.Document, now time.Time) Comment {
	return Comment{
		ID:        doc.ID,
		AuthorID:  docString(doc.Data, "authorId"),
		Author:    docString(doc.Data, "authorUsername"),
		Content:   docString(doc.Data, "content"),
		Avatar:    docString(doc.Data, "avatar"),
		Timestamp: docTime(doc.Data, "timestamp", now),
	}
}
