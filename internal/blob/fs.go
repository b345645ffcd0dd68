package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/starford/gebo/internal/apperr"
)

// FS implements Store backed by a local directory. Each object is a
// file named by its id plus a JSON sidecar holding filename, content
// type, and metadata. Meant for local development and tests; the S3
// provider is the production backend.
type FS struct {
	root string // absolute path to the blob directory
}

// fsSidecar is the on-disk metadata record next to each object.
type fsSidecar struct {
	Filename    string   `json:"filename"`
	ContentType string   `json:"content_type"`
	Metadata    Metadata `json:"metadata"`
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("blob: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blob: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// objectPath validates the id (plain name, no traversal) and returns
// the absolute path of the object file.
func (f *FS) objectPath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("blob: id is required")
	}
	cleaned := filepath.Clean(id)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("blob: invalid id: %s", id)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("blob: id escapes blob root: %s", id)
	}
	return abs, nil
}

// Put writes the object atomically via a tmp file, fsync and rename,
// then the sidecar. An existing id is rejected; objects are immutable.
func (f *FS) Put(_ context.Context, id, filename string, r io.Reader, meta Metadata) (*Object, error) {
	abs, err := f.objectPath(id)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err == nil {
		return nil, fmt.Errorf("blob: put %s: %w", id, apperr.ErrAlreadyExists)
	}

	tmp, err := os.CreateTemp(f.root, ".gebo-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("blob: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return nil, fmt.Errorf("blob: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("blob: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("blob: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return nil, fmt.Errorf("blob: rename: %w", err)
	}
	success = true

	if meta == nil {
		meta = Metadata{}
	}
	contentType := ""
	if mt, detectErr := mimetype.DetectFile(abs); detectErr == nil {
		contentType = mt.String()
	}
	side := fsSidecar{Filename: filename, ContentType: contentType, Metadata: meta}
	data, err := json.Marshal(side)
	if err != nil {
		return nil, fmt.Errorf("blob: encode sidecar: %w", err)
	}
	if err := os.WriteFile(abs+".json", data, 0o644); err != nil {
		return nil, fmt.Errorf("blob: write sidecar: %w", err)
	}

	return &Object{ID: id, Filename: filename, Size: size, ContentType: contentType, Metadata: meta}, nil
}

// Open returns a reader over the stored bytes.
func (f *FS) Open(ctx context.Context, id string) (io.ReadCloser, *Object, error) {
	obj, err := f.Stat(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	abs, err := f.objectPath(id)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("blob: open %s: %w", id, err)
	}
	return file, obj, nil
}

// Stat returns the object description read from the sidecar.
func (f *FS) Stat(_ context.Context, id string) (*Object, error) {
	abs, err := f.objectPath(id)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blob: stat %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("blob: stat %s: %w", id, err)
	}

	var side fsSidecar
	if data, readErr := os.ReadFile(abs + ".json"); readErr == nil {
		_ = json.Unmarshal(data, &side)
	}
	if side.Metadata == nil {
		side.Metadata = Metadata{}
	}
	return &Object{
		ID:          id,
		Filename:    side.Filename,
		Size:        info.Size(),
		ContentType: side.ContentType,
		Metadata:    side.Metadata,
	}, nil
}

// Delete removes the object and its sidecar.
func (f *FS) Delete(_ context.Context, id string) error {
	abs, err := f.objectPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("blob: delete %s: %w", id, apperr.ErrNotFound)
		}
		return fmt.Errorf("blob: delete %s: %w", id, err)
	}
	_ = os.Remove(abs + ".json")
	return nil
}

// URI returns a file:// location for the object.
func (f *FS) URI(id string) string {
	return "file://" + filepath.Join(f.root, id)
}
