// Package upload orchestrates the ingestion pipeline: store the blob,
// extract its text, generate the summary and quiz, persist everything,
// and reward the uploader.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/blob"
	"github.com/starford/gebo/internal/checksum"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/store"
)

// Extractor turns file bytes into text.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (text string, isHTML bool, err error)
}

// Summarizer produces the summary and quiz pairs.
type Summarizer interface {
	Summarize(ctx context.Context, content string, isHTML bool) (string, error)
	GenerateQnA(ctx context.Context, summary string) ([]models.QAPair, error)
}

// Publisher announces completed uploads to live listeners.
type Publisher interface {
	PublishNoteUploaded(noteID, title string)
}

// Request carries one file through the pipeline.
type Request struct {
	Filename    string
	Title       string
	Description string
	UserEmail   string
	UserName    string
	Filepath    string
	File        io.Reader
}

// Result reports the stored note and its derived summary.
type Result struct {
	NoteID  string
	Summary models.Summary
}

// Orchestrator runs the pipeline stages in order.
type Orchestrator struct {
	blobs      blob.Store
	db         *store.DB
	extractor  Extractor
	summarizer Summarizer
	events     Publisher
	reward     int
	timeout    time.Duration
	log        *slog.Logger
}

// New creates an orchestrator. events may be nil when no live update
// channel is wired. A zero timeout disables the per-upload deadline.
func New(blobs blob.Store, db *store.DB, extractor Extractor, summarizer Summarizer, events Publisher, reward int, timeout time.Duration, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		blobs:      blobs,
		db:         db,
		extractor:  extractor,
		summarizer: summarizer,
		events:     events,
		reward:     reward,
		timeout:    timeout,
		log:        log,
	}
}

// Process runs the full pipeline for one upload. A failure after the
// blob is stored leaves the blob behind; it is logged and kept so a
// later sweep can reconcile it.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Result, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	data, err := io.ReadAll(req.File)
	if err != nil {
		return nil, fmt.Errorf("upload: read file: %w: %v", apperr.ErrStore, err)
	}

	id := uuid.NewString()
	meta := blob.Metadata{
		"title":       req.Title,
		"description": req.Description,
		"userEmail":   req.UserEmail,
		"userName":    req.UserName,
		"filepath":    req.Filepath,
	}
	obj, err := o.blobs.Put(ctx, id, req.Filename, bytes.NewReader(data), meta)
	if err != nil {
		return nil, fmt.Errorf("upload: store blob: %w: %v", apperr.ErrStore, err)
	}

	// Extraction works from the stored bytes, not the request buffer, so
	// a corrupted write surfaces here instead of as a bad summary.
	stored, err := o.readBack(ctx, id)
	if err != nil {
		o.logOrphan(id, "read back", err)
		return nil, fmt.Errorf("upload: read back blob: %w: %v", apperr.ErrStore, err)
	}

	text, isHTML, err := o.extractor.Extract(ctx, req.Filename, stored)
	if err != nil {
		o.logOrphan(id, "extract", err)
		if errors.Is(err, apperr.ErrUnsupportedType) {
			return nil, err
		}
		return nil, fmt.Errorf("upload: extract %s: %w: %v", req.Filename, apperr.ErrExtraction, err)
	}

	summaryText, err := o.summarizer.Summarize(ctx, text, isHTML)
	if err != nil {
		o.logOrphan(id, "summarize", err)
		return nil, fmt.Errorf("upload: summarize %s: %w: %v", req.Filename, apperr.ErrSummarization, err)
	}
	qna, err := o.summarizer.GenerateQnA(ctx, summaryText)
	if err != nil {
		o.logOrphan(id, "qna", err)
		return nil, fmt.Errorf("upload: generate qna %s: %w: %v", req.Filename, apperr.ErrSummarization, err)
	}

	note := models.Note{
		ID:            id,
		Filename:      req.Filename,
		Title:         req.Title,
		Description:   req.Description,
		UploaderEmail: req.UserEmail,
		UploaderName:  req.UserName,
		Filepath:      req.Filepath,
		Size:          obj.Size,
		Checksum:      checksum.Sum(stored),
	}
	if err := o.db.InsertNote(note, summaryText); err != nil {
		o.logOrphan(id, "persist note", err)
		return nil, fmt.Errorf("upload: %w", err)
	}
	summary := models.Summary{NoteID: id, Summary: summaryText, QnA: qna}
	if err := o.db.SaveSummary(summary); err != nil {
		o.logOrphan(id, "persist summary", err)
		return nil, fmt.Errorf("upload: %w", err)
	}

	// The uploader owns their own note and earns the upload reward.
	if err := o.db.AddOwnedNote(req.UserEmail, id); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if o.reward > 0 {
		if err := o.db.AddPoints(req.UserEmail, o.reward); err != nil {
			o.log.Warn("upload reward failed", "user", req.UserEmail, "error", err)
		}
	}

	if o.events != nil {
		o.events.PublishNoteUploaded(id, req.Title)
	}

	o.log.Info("upload processed", "note_id", id, "filename", req.Filename, "uploader", req.UserEmail)
	return &Result{NoteID: id, Summary: summary}, nil
}

func (o *Orchestrator) readBack(ctx context.Context, id string) ([]byte, error) {
	rc, _, err := o.blobs.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (o *Orchestrator) logOrphan(id, stage string, err error) {
	o.log.Warn("pipeline failed after blob stored, keeping blob", "blob_id", id, "stage", stage, "error", err)
}
