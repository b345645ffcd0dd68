// Package models defines the domain types for Gebo.
package models

import "time"

// User is a marketplace account. Points is the spendable balance;
// it must never go negative.
type User struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// Note is the metadata record for one uploaded file. The blob itself
// lives in the blob store under ID. Notes are immutable once stored.
type Note struct {
	ID            string    `json:"_id"`
	Filename      string    `json:"filename"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	UploaderEmail string    `json:"uploaderEmail"`
	UploaderName  string    `json:"uploaderName"`
	Filepath      string    `json:"filepath,omitempty"`
	Size          int64     `json:"length"`
	Checksum      string    `json:"checksum,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// QAPair is one generated quiz question with its answer.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Summary is the derived record for a note: prose summary plus quiz
// pairs. Created once per note after extraction completes, never
// updated afterwards.
type Summary struct {
	NoteID  string   `json:"fileId"`
	Summary string   `json:"summary"`
	QnA     []QAPair `json:"qna"`
}

// ForumPost is a discussion thread started by a user.
type ForumPost struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	OwnerEmail string    `json:"ownerEmail"`
	OwnerName  string    `json:"ownerName"`
	Comments   []Comment `json:"comments"`
	CreatedAt  time.Time `json:"created_at"`
}

// Comment belongs to a forum post. AuthorName is denormalized from the
// commenter at write time. ParentID is set for nested replies (modeled,
// not exposed end-to-end).
type Comment struct {
	ID             int64     `json:"id"`
	PostID         int64     `json:"postId"`
	CommenterEmail string    `json:"commenterEmail"`
	AuthorName     string    `json:"authorName"`
	Text           string    `json:"text"`
	ParentID       *int64    `json:"parentId,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
