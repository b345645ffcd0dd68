// Package blob defines the file blob store abstraction.
//
// Uploaded note files are opaque blobs addressed by caller-assigned ids
// (UUIDs in practice) with arbitrary string metadata attached per object.
// Objects are immutable once stored.
package blob

import (
	"context"
	"io"
)

// Metadata is the free-form key/value map attached to a stored object.
type Metadata map[string]string

// Object describes a stored blob.
type Object struct {
	ID          string   `json:"id"`
	Filename    string   `json:"filename"`
	Size        int64    `json:"size"`
	ContentType string   `json:"content_type"`
	Metadata    Metadata `json:"metadata"`
}

// Store is the interface for blob operations.
type Store interface {
	// Put streams r into the store under id and attaches meta.
	Put(ctx context.Context, id, filename string, r io.Reader, meta Metadata) (*Object, error)
	// Open returns a reader over the stored bytes plus the object description.
	Open(ctx context.Context, id string) (io.ReadCloser, *Object, error)
	// Stat returns the object description without the bytes.
	Stat(ctx context.Context, id string) (*Object, error)
	// Delete removes the object.
	Delete(ctx context.Context, id string) error
	// URI returns an addressable location for the object, for handing to
	// external services (e.g. the transcriber).
	URI(id string) string
}
