// Package market exposes read views over the note catalog: per-user
// shelves, note details, and viewer role classification.
package market

import (
	"errors"
	"fmt"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/store"
)

// Viewer roles for a note.
const (
	RoleOwner = "owner"
	RoleBuyer = "buyer"
	RoleNone  = "none"
)

// NoteItem is the list entry shape for user shelves.
type NoteItem struct {
	ID       string `json:"_id"`
	Filename string `json:"filename"`
	Length   int64  `json:"length"`
	UserName string `json:"userName"`
	Title    string `json:"title"`
}

// Shelf holds a user's uploaded and bought notes. A note the user both
// uploaded and bought appears only under uploaded.
type Shelf struct {
	Uploaded []NoteItem `json:"uploadedNotes"`
	Bought   []NoteItem `json:"boughtNotes"`
}

// Detail is the full note view: metadata, derived summary, and the
// requesting viewer's role.
type Detail struct {
	Note    models.Note     `json:"note"`
	Summary *models.Summary `json:"summary,omitempty"`
	Role    string          `json:"role"`
}

// Service answers catalog queries.
type Service struct {
	db *store.DB
}

// New creates a market service.
func New(db *store.DB) *Service {
	return &Service{db: db}
}

// Shelf returns the user's uploaded and bought notes, deduplicated.
func (s *Service) Shelf(email string) (*Shelf, error) {
	uploaded, err := s.db.NotesByUploader(email)
	if err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}
	owned, err := s.db.NotesOwnedBy(email)
	if err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}

	uploadedIDs := make(map[string]struct{}, len(uploaded))
	shelf := &Shelf{Uploaded: []NoteItem{}, Bought: []NoteItem{}}
	for _, n := range uploaded {
		uploadedIDs[n.ID] = struct{}{}
		shelf.Uploaded = append(shelf.Uploaded, toItem(n))
	}
	for _, n := range owned {
		if _, isUploader := uploadedIDs[n.ID]; isUploader {
			continue
		}
		shelf.Bought = append(shelf.Bought, toItem(n))
	}
	return shelf, nil
}

// Catalog returns every note in the marketplace.
func (s *Service) Catalog() ([]NoteItem, error) {
	notes, err := s.db.ListNotes()
	if err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}
	items := make([]NoteItem, 0, len(notes))
	for _, n := range notes {
		items = append(items, toItem(n))
	}
	return items, nil
}

// Detail returns the note with its summary and the viewer's role.
// A missing summary is tolerated; the note may still be in flight.
func (s *Service) Detail(noteID, viewerEmail string) (*Detail, error) {
	note, err := s.db.GetNote(noteID)
	if err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}

	d := &Detail{Note: *note, Role: RoleNone}
	if viewerEmail != "" {
		d.Role, err = s.classify(note, viewerEmail)
		if err != nil {
			return nil, err
		}
	}

	summary, err := s.db.GetSummary(noteID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("market: %w", err)
	}
	d.Summary = summary
	return d, nil
}

// classify resolves the viewer's relationship to a note. The uploader
// is always the owner, even when the note also sits in their bought set.
func (s *Service) classify(note *models.Note, email string) (string, error) {
	if note.UploaderEmail == email {
		return RoleOwner, nil
	}
	owns, err := s.db.OwnsNote(email, note.ID)
	if err != nil {
		return "", fmt.Errorf("market: %w", err)
	}
	if owns {
		return RoleBuyer, nil
	}
	return RoleNone, nil
}

func toItem(n models.Note) NoteItem {
	return NoteItem{
		ID:       n.ID,
		Filename: n.Filename,
		Length:   n.Size,
		UserName: n.UploaderName,
		Title:    n.Title,
	}
}
