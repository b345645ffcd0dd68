package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

// InsertNote stores the metadata record for an uploaded file and its
// search text. Note rows are immutable once written.
func (db *DB) InsertNote(n models.Note, searchText string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notes (id, filename, title, description, uploader_email, uploader_name, filepath, size, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Filename, n.Title, n.Description, n.UploaderEmail, n.UploaderName, n.Filepath, n.Size, n.Checksum)
	if err != nil {
		return fmt.Errorf("store: insert note: %w", err)
	}

	if err := ftsUpsert(tx, n.ID, n.Title, n.Description, searchText); err != nil {
		return err
	}

	return tx.Commit()
}

// GetNote fetches one note by id.
func (db *DB) GetNote(id string) (*models.Note, error) {
	var n models.Note
	err := db.conn.QueryRow(`
		SELECT id, filename, title, description, uploader_email, uploader_name, filepath, size, checksum, created_at
		FROM notes WHERE id = ?
	`, id).Scan(&n.ID, &n.Filename, &n.Title, &n.Description, &n.UploaderEmail, &n.UploaderName,
		&n.Filepath, &n.Size, &n.Checksum, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: get note %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	return &n, nil
}

// ListNotes returns every stored note, newest first.
func (db *DB) ListNotes() ([]models.Note, error) {
	rows, err := db.conn.Query(`
		SELECT id, filename, title, description, uploader_email, uploader_name, filepath, size, checksum, created_at
		FROM notes ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

// NotesByUploader returns the notes uploaded by one user, newest first.
func (db *DB) NotesByUploader(email string) ([]models.Note, error) {
	rows, err := db.conn.Query(`
		SELECT id, filename, title, description, uploader_email, uploader_name, filepath, size, checksum, created_at
		FROM notes WHERE uploader_email = ? ORDER BY created_at DESC, id
	`, email)
	if err != nil {
		return nil, fmt.Errorf("store: notes by uploader: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

// NotesOwnedBy returns the notes in a user's owned set, newest first.
func (db *DB) NotesOwnedBy(email string) ([]models.Note, error) {
	rows, err := db.conn.Query(`
		SELECT n.id, n.filename, n.title, n.description, n.uploader_email, n.uploader_name, n.filepath, n.size, n.checksum, n.created_at
		FROM notes n
		JOIN owned_notes o ON o.note_id = n.id
		WHERE o.user_email = ?
		ORDER BY n.created_at DESC, n.id
	`, email)
	if err != nil {
		return nil, fmt.Errorf("store: notes owned by: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

func scanNotes(rows *sql.Rows) ([]models.Note, error) {
	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Filename, &n.Title, &n.Description, &n.UploaderEmail,
			&n.UploaderName, &n.Filepath, &n.Size, &n.Checksum, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// AddOwnedNote records noteID in email's owned set. Re-adding is a no-op.
func (db *DB) AddOwnedNote(email, noteID string) error {
	_, err := db.conn.Exec(`
		INSERT OR IGNORE INTO owned_notes (user_email, note_id) VALUES (?, ?)
	`, email, noteID)
	if err != nil {
		return fmt.Errorf("store: add owned note: %w", err)
	}
	return nil
}

// OwnsNote reports whether email's owned set contains noteID.
func (db *DB) OwnsNote(email, noteID string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`
		SELECT 1 FROM owned_notes WHERE user_email = ? AND note_id = ?
	`, email, noteID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: owns note: %w", err)
	}
	return true, nil
}
