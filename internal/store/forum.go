package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

// CreatePost starts a discussion thread and returns its id.
func (db *DB) CreatePost(title, content, ownerEmail, ownerName string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO forum_posts (title, content, owner_email, owner_name) VALUES (?, ?, ?, ?)
	`, title, content, ownerEmail, ownerName)
	if err != nil {
		return 0, fmt.Errorf("store: create post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: create post: %w", err)
	}
	return id, nil
}

// GetPost fetches one thread with its comments.
func (db *DB) GetPost(id int64) (*models.ForumPost, error) {
	var p models.ForumPost
	err := db.conn.QueryRow(`
		SELECT id, title, content, owner_email, owner_name, created_at
		FROM forum_posts WHERE id = ?
	`, id).Scan(&p.ID, &p.Title, &p.Content, &p.OwnerEmail, &p.OwnerName, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: get post %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get post: %w", err)
	}

	comments, err := db.commentsForPost(id)
	if err != nil {
		return nil, err
	}
	p.Comments = comments
	return &p, nil
}

// ListPosts returns every thread with comments, newest thread first.
func (db *DB) ListPosts() ([]models.ForumPost, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, content, owner_email, owner_name, created_at
		FROM forum_posts ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list posts: %w", err)
	}
	defer rows.Close()

	var out []models.ForumPost
	for rows.Next() {
		var p models.ForumPost
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.OwnerEmail, &p.OwnerName, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		comments, err := db.commentsForPost(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Comments = comments
	}
	return out, nil
}

// DeletePost removes a thread and all its comments.
func (db *DB) DeletePost(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM forum_posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete post: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: delete post %d: %w", id, apperr.ErrNotFound)
	}
	if _, err := tx.Exec(`DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete post comments: %w", err)
	}

	return tx.Commit()
}

// AddComment attaches a comment to a thread and returns its id.
// parentID is non-nil for nested replies.
func (db *DB) AddComment(postID int64, commenterEmail, authorName, text string, parentID *int64) (int64, error) {
	if _, err := db.GetPost(postID); err != nil {
		return 0, err
	}
	res, err := db.conn.Exec(`
		INSERT INTO comments (post_id, commenter_email, author_name, text, parent_id)
		VALUES (?, ?, ?, ?, ?)
	`, postID, commenterEmail, authorName, text, parentID)
	if err != nil {
		return 0, fmt.Errorf("store: add comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: add comment: %w", err)
	}
	return id, nil
}

// DeleteComment removes one comment from a thread.
func (db *DB) DeleteComment(postID, commentID int64) error {
	res, err := db.conn.Exec(`
		DELETE FROM comments WHERE id = ? AND post_id = ?
	`, commentID, postID)
	if err != nil {
		return fmt.Errorf("store: delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete comment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: delete comment %d: %w", commentID, apperr.ErrNotFound)
	}
	return nil
}

func (db *DB) commentsForPost(postID int64) ([]models.Comment, error) {
	rows, err := db.conn.Query(`
		SELECT id, post_id, commenter_email, author_name, text, parent_id, created_at
		FROM comments WHERE post_id = ? ORDER BY created_at, id
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("store: comments for post: %w", err)
	}
	defer rows.Close()

	out := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.CommenterEmail, &c.AuthorName, &c.Text, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
