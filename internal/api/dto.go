package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/gebo/internal/market"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/store"
)

// SignupRequest is the request body for creating an account.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate implements request validation for signup.
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
	)
}

// PointsRequest is the request body for adding or deducting points.
type PointsRequest struct {
	Email  string `json:"email"`
	Amount int    `json:"amount"`
}

// Validate implements request validation for points changes.
func (r PointsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Amount, validation.Required, validation.Min(1)),
	)
}

// CreatePostRequest is the request body for starting a forum thread.
type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Email   string `json:"email"`
}

// AddCommentRequest is the request body for commenting on a thread.
type AddCommentRequest struct {
	PostID         int64  `json:"postId"`
	CommenterEmail string `json:"commenterEmail"`
	Text           string `json:"text"`
	ParentID       *int64 `json:"parentId,omitempty"`
}

// DownloadSummaryRequest is the request body for the docx export.
type DownloadSummaryRequest struct {
	Summary string `json:"summary"`
}

// UserResponse is the account shape returned by signup.
type UserResponse struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// ShelfResponse wraps a user's uploaded and bought notes.
type ShelfResponse = market.Shelf

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = market.Detail

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []store.SearchResult `json:"results"`
}

// UploadResponse reports a completed upload.
type UploadResponse struct {
	Message string         `json:"message"`
	Summary models.Summary `json:"summary"`
}
