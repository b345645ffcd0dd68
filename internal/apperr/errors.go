// Package apperr defines sentinel errors shared across the service.
// Handlers map them to HTTP statuses at the API boundary.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Upload pipeline.
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrStore           = errors.New("store error")
	ErrExtraction      = errors.New("extraction error")
	ErrSummarization   = errors.New("summarization error")

	// Ledger.
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrAlreadyOwned       = errors.New("note already owned")
	ErrWrongSeller        = errors.New("seller does not own this note")
)
