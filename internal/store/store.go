// Package store provides SQLite-backed persistence for users, notes,
// summaries, ownership, and the forum, with optional FTS5 full-text search.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	email         TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	points        INTEGER NOT NULL DEFAULT 100,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS friends (
	user_email   TEXT NOT NULL,
	friend_email TEXT NOT NULL,
	UNIQUE(user_email, friend_email)
);

CREATE INDEX IF NOT EXISTS idx_friends_user ON friends(user_email);

CREATE TABLE IF NOT EXISTS notes (
	id             TEXT PRIMARY KEY,
	filename       TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	uploader_email TEXT NOT NULL,
	uploader_name  TEXT NOT NULL DEFAULT '',
	filepath       TEXT NOT NULL DEFAULT '',
	size           INTEGER NOT NULL DEFAULT 0,
	checksum       TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notes_uploader ON notes(uploader_email);

CREATE TABLE IF NOT EXISTS owned_notes (
	user_email TEXT NOT NULL,
	note_id    TEXT NOT NULL,
	UNIQUE(user_email, note_id)
);

CREATE INDEX IF NOT EXISTS idx_owned_user ON owned_notes(user_email);

CREATE TABLE IF NOT EXISTS summaries (
	note_id TEXT PRIMARY KEY,
	summary TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS qna (
	note_id  TEXT NOT NULL,
	position INTEGER NOT NULL,
	question TEXT NOT NULL,
	answer   TEXT NOT NULL,
	UNIQUE(note_id, position)
);

CREATE TABLE IF NOT EXISTS forum_posts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	owner_email TEXT NOT NULL,
	owner_name  TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS comments (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id         INTEGER NOT NULL,
	commenter_email TEXT NOT NULL,
	author_name     TEXT NOT NULL DEFAULT '',
	text            TEXT NOT NULL,
	parent_id       INTEGER,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);
`

// DB wraps a sql.DB with marketplace-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// WithTx runs fn inside a transaction, committing when fn returns nil
// and rolling back otherwise. The ledger runs its purchase through this.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
