package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

// CreateUser inserts a new account. A duplicate email maps to
// apperr.ErrAlreadyExists.
func (db *DB) CreateUser(email, name, passwordHash string, points int) error {
	_, err := db.conn.Exec(`
		INSERT INTO users (email, name, password_hash, points)
		VALUES (?, ?, ?, ?)
	`, email, name, passwordHash, points)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("store: create user %s: %w", email, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

// GetUser fetches one account by email.
func (db *DB) GetUser(email string) (*models.User, error) {
	var u models.User
	err := db.conn.QueryRow(`
		SELECT email, name, points, created_at FROM users WHERE email = ?
	`, email).Scan(&u.Email, &u.Name, &u.Points, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: get user %s: %w", email, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

// GetPasswordHash returns the stored bcrypt hash for login checks.
func (db *DB) GetPasswordHash(email string) (string, error) {
	var hash string
	err := db.conn.QueryRow(`SELECT password_hash FROM users WHERE email = ?`, email).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("store: get password hash %s: %w", email, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("store: get password hash: %w", err)
	}
	return hash, nil
}

// GetPoints returns the current balance for a user.
func (db *DB) GetPoints(email string) (int, error) {
	var points int
	err := db.conn.QueryRow(`SELECT points FROM users WHERE email = ?`, email).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("store: get points %s: %w", email, apperr.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("store: get points: %w", err)
	}
	return points, nil
}

// AddPoints credits amount to a user unconditionally.
func (db *DB) AddPoints(email string, amount int) error {
	res, err := db.conn.Exec(`UPDATE users SET points = points + ? WHERE email = ?`, amount, email)
	if err != nil {
		return fmt.Errorf("store: add points: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: add points: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: add points %s: %w", email, apperr.ErrNotFound)
	}
	return nil
}

// DeductPoints debits amount only if the balance covers it. The
// conditional UPDATE is the single atomic balance guard; there is no
// separate read-then-write window.
func (db *DB) DeductPoints(email string, amount int) error {
	if _, err := db.GetPoints(email); err != nil {
		return err
	}
	res, err := db.conn.Exec(`
		UPDATE users SET points = points - ? WHERE email = ? AND points >= ?
	`, amount, email, amount)
	if err != nil {
		return fmt.Errorf("store: deduct points: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: deduct points: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: deduct points %s: %w", email, apperr.ErrInsufficientPoints)
	}
	return nil
}

// Friends returns the friend list for a user, in insertion order.
func (db *DB) Friends(email string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT friend_email FROM friends WHERE user_email = ? ORDER BY rowid
	`, email)
	if err != nil {
		return nil, fmt.Errorf("store: friends: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// AddFriend records friendEmail in email's friend list. Re-adding an
// existing friend is a no-op.
func (db *DB) AddFriend(email, friendEmail string) error {
	if _, err := db.GetUser(email); err != nil {
		return err
	}
	_, err := db.conn.Exec(`
		INSERT OR IGNORE INTO friends (user_email, friend_email) VALUES (?, ?)
	`, email, friendEmail)
	if err != nil {
		return fmt.Errorf("store: add friend: %w", err)
	}
	return nil
}

// RemoveFriend drops friendEmail from email's friend list.
func (db *DB) RemoveFriend(email, friendEmail string) error {
	if _, err := db.GetUser(email); err != nil {
		return err
	}
	_, err := db.conn.Exec(`
		DELETE FROM friends WHERE user_email = ? AND friend_email = ?
	`, email, friendEmail)
	if err != nil {
		return fmt.Errorf("store: remove friend: %w", err)
	}
	return nil
}
