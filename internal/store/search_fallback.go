//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses a LIKE fallback over notes and summaries.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string) error {
	// Search text lives in the summaries table; nothing extra to do.
	return nil
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"_id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT n.id, n.title, substr(COALESCE(s.summary, n.description), 1, 200)
		FROM notes n
		LEFT JOIN summaries s ON s.note_id = n.id
		WHERE n.title LIKE ? OR n.description LIKE ? OR s.summary LIKE ?
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
