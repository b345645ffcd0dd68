// Package ledger implements the points economy: purchases move points
// from buyer to seller and ownership to the buyer, atomically.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/store"
)

// Sentinel errors distinguishing which party a failed lookup refers to.
// Handlers map them to per-party HTTP messages.
var (
	ErrNoteNotFound   = errors.New("note not found")
	ErrBuyerNotFound  = errors.New("buyer not found")
	ErrSellerNotFound = errors.New("seller not found")
)

// Receipt reports the post-purchase balances.
type Receipt struct {
	NoteTitle    string
	BuyerPoints  int
	SellerPoints int
}

// Service executes purchases against the store.
type Service struct {
	db *store.DB
}

// New creates a ledger service.
func New(db *store.DB) *Service {
	return &Service{db: db}
}

// Purchase transfers amount points from buyer to seller and adds the
// note to the buyer's owned set. The whole operation runs in one
// transaction; any failed precondition rolls everything back.
//
// The buyer debit is a conditional UPDATE guarded on the balance, so
// two concurrent purchases can never overdraw the same account.
func (s *Service) Purchase(ctx context.Context, buyerEmail, sellerEmail, noteID string, amount int) (*Receipt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("ledger: amount must be positive")
	}

	var receipt Receipt
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var noteTitle, uploaderEmail string
		err := tx.QueryRow(`SELECT title, uploader_email FROM notes WHERE id = ?`, noteID).
			Scan(&noteTitle, &uploaderEmail)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoteNotFound
		}
		if err != nil {
			return fmt.Errorf("ledger: load note: %w", err)
		}
		if uploaderEmail != sellerEmail {
			return apperr.ErrWrongSeller
		}

		var buyerPoints int
		err = tx.QueryRow(`SELECT points FROM users WHERE email = ?`, buyerEmail).Scan(&buyerPoints)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBuyerNotFound
		}
		if err != nil {
			return fmt.Errorf("ledger: load buyer: %w", err)
		}

		res, err := tx.Exec(`
			UPDATE users SET points = points - ? WHERE email = ? AND points >= ?
		`, amount, buyerEmail, amount)
		if err != nil {
			return fmt.Errorf("ledger: debit buyer: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("ledger: debit buyer: %w", err)
		}
		if n == 0 {
			return apperr.ErrInsufficientPoints
		}

		res, err = tx.Exec(`UPDATE users SET points = points + ? WHERE email = ?`, amount, sellerEmail)
		if err != nil {
			return fmt.Errorf("ledger: credit seller: %w", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("ledger: credit seller: %w", err)
		}
		if n == 0 {
			return ErrSellerNotFound
		}

		var one int
		err = tx.QueryRow(`
			SELECT 1 FROM owned_notes WHERE user_email = ? AND note_id = ?
		`, buyerEmail, noteID).Scan(&one)
		if err == nil {
			return apperr.ErrAlreadyOwned
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("ledger: check ownership: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO owned_notes (user_email, note_id) VALUES (?, ?)
		`, buyerEmail, noteID); err != nil {
			return fmt.Errorf("ledger: record ownership: %w", err)
		}

		err = tx.QueryRow(`SELECT points FROM users WHERE email = ?`, buyerEmail).Scan(&receipt.BuyerPoints)
		if err != nil {
			return fmt.Errorf("ledger: reload buyer: %w", err)
		}
		err = tx.QueryRow(`SELECT points FROM users WHERE email = ?`, sellerEmail).Scan(&receipt.SellerPoints)
		if err != nil {
			return fmt.Errorf("ledger: reload seller: %w", err)
		}
		receipt.NoteTitle = noteTitle
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}
