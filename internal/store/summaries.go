package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

// SaveSummary stores the derived summary and quiz pairs for a note in
// one transaction. Written once per note after the pipeline finishes.
func (db *DB) SaveSummary(s models.Summary) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`INSERT INTO summaries (note_id, summary) VALUES (?, ?)`, s.NoteID, s.Summary)
	if err != nil {
		return fmt.Errorf("store: insert summary: %w", err)
	}
	for i, qa := range s.QnA {
		_, err = tx.Exec(`
			INSERT INTO qna (note_id, position, question, answer) VALUES (?, ?, ?, ?)
		`, s.NoteID, i, qa.Question, qa.Answer)
		if err != nil {
			return fmt.Errorf("store: insert qna: %w", err)
		}
	}

	return tx.Commit()
}

// GetSummary fetches the summary and quiz pairs for a note.
func (db *DB) GetSummary(noteID string) (*models.Summary, error) {
	var s models.Summary
	s.NoteID = noteID
	err := db.conn.QueryRow(`SELECT summary FROM summaries WHERE note_id = ?`, noteID).Scan(&s.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: get summary %s: %w", noteID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get summary: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT question, answer FROM qna WHERE note_id = ? ORDER BY position
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("store: get qna: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var qa models.QAPair
		if err := rows.Scan(&qa.Question, &qa.Answer); err != nil {
			return nil, err
		}
		s.QnA = append(s.QnA, qa)
	}
	return &s, rows.Err()
}
