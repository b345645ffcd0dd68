package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/ledger"
	"github.com/starford/gebo/internal/market"
	"github.com/starford/gebo/internal/store"
	"github.com/starford/gebo/internal/upload"
)

const (
	defaultSignupPoints = 100
	maxUploadBytes      = 50 << 20

	// formParseTimeout bounds how long a client may take to deliver the
	// multipart upload body.
	formParseTimeout = 15 * time.Second
)

// Uploader runs the ingestion pipeline for one file.
type Uploader interface {
	Process(ctx context.Context, req upload.Request) (*upload.Result, error)
}

// Publisher announces completed purchases to live listeners.
type Publisher interface {
	PublishNotePurchased(noteID, buyerEmail string)
}

// Handler holds API route handlers.
type Handler struct {
	db          *store.DB
	market      *market.Service
	ledger      *ledger.Service
	pipe        Uploader
	events      Publisher
	formTimeout time.Duration
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(db *store.DB, mkt *market.Service, led *ledger.Service, pipe Uploader, events Publisher) *Handler {
	return &Handler{
		db:          db,
		market:      mkt,
		ledger:      led,
		pipe:        pipe,
		events:      events,
		formTimeout: formParseTimeout,
	}
}

// Signup handles POST /api/auth/signup. New accounts start with the
// default point balance.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("No form data"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		slog.Error("password hash failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal server error"))
		return
	}

	if err := h.db.CreateUser(req.Email, req.Name, string(hash), defaultSignupPoints); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusUnprocessableEntity, msgResponse{Message: "User already exists"})
			return
		}
		slog.Error("signup failed", slog.String("email", req.Email), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal server error"))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": true,
		"user":   UserResponse{Email: req.Email, Name: req.Name, Points: defaultSignupPoints},
	})
}

// GetPoints handles GET /api/users/points.
func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	points, err := h.db.GetPoints(email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("User not found"))
			return
		}
		slog.Error("get points failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"points": points})
}

// AddPoints handles POST /api/users/points.
func (h *Handler) AddPoints(w http.ResponseWriter, r *http.Request) {
	var req PointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	previous, err := h.db.GetPoints(req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("User not found"))
			return
		}
		slog.Error("add points failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	if err := h.db.AddPoints(req.Email, req.Amount); err != nil {
		slog.Error("add points failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Points updated",
		"PreviousPoints": previous,
		"PointsAdded":    req.Amount,
		"Updatedpoints":  previous + req.Amount,
	})
}

// DeductPoints handles PUT /api/users/points. The balance can never go
// negative; an overdraft is rejected.
func (h *Handler) DeductPoints(w http.ResponseWriter, r *http.Request) {
	var req PointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	previous, err := h.db.GetPoints(req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("User not found"))
			return
		}
		slog.Error("deduct points failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	if err := h.db.DeductPoints(req.Email, req.Amount); err != nil {
		if errors.Is(err, apperr.ErrInsufficientPoints) {
			writeJSON(w, http.StatusBadRequest, errorBody("Insufficient points"))
			return
		}
		slog.Error("deduct points failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Points deducted",
		"PreviousPoints": previous,
		"PointsDeducted": req.Amount,
		"Updatedpoints":  previous - req.Amount,
	})
}

// Buy handles PATCH /api/users/buy. Parameters arrive as query values.
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	buyerEmail := q.Get("buyerEmail")
	sellerEmail := q.Get("sellerEmail")
	noteID := q.Get("noteId")
	amountStr := q.Get("amount")

	if buyerEmail == "" || sellerEmail == "" || noteID == "" || amountStr == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Buyer, seller, noteId, and amount are required as query parameters."))
		return
	}
	amount, err := strconv.Atoi(amountStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Amount must be a valid number."))
		return
	}
	if amount <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("Amount must be a valid number."))
		return
	}

	receipt, err := h.ledger.Purchase(r.Context(), buyerEmail, sellerEmail, noteID, amount)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNoteNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Note not found."))
		case errors.Is(err, apperr.ErrWrongSeller):
			writeJSON(w, http.StatusBadRequest, errorBody("Seller does not own this note."))
		case errors.Is(err, ledger.ErrBuyerNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Buyer not found."))
		case errors.Is(err, apperr.ErrInsufficientPoints):
			writeJSON(w, http.StatusBadRequest, errorBody("Buyer does not have enough points."))
		case errors.Is(err, ledger.ErrSellerNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Seller not found."))
		case errors.Is(err, apperr.ErrAlreadyOwned):
			writeJSON(w, http.StatusBadRequest, errorBody("Buyer already owns this note."))
		default:
			slog.Error("purchase failed", slog.String("note", noteID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		}
		return
	}

	if h.events != nil {
		h.events.PublishNotePurchased(noteID, buyerEmail)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Transaction successful",
		"noteTitle":    receipt.NoteTitle,
		"buyerPoints":  receipt.BuyerPoints,
		"sellerPoints": receipt.SellerPoints,
	})
}

// GetFriends handles GET /api/users/friends.
func (h *Handler) GetFriends(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if _, err := h.db.GetUser(email); err != nil {
		h.friendsError(w, err)
		return
	}
	friends, err := h.db.Friends(email)
	if err != nil {
		h.friendsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"friends": friends})
}

// AddFriend handles POST /api/users/friends.
func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	friendEmail := r.URL.Query().Get("friendEmail")
	if err := h.db.AddFriend(email, friendEmail); err != nil {
		h.friendsError(w, err)
		return
	}
	friends, err := h.db.Friends(email)
	if err != nil {
		h.friendsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Friend added", "friends": friends})
}

// RemoveFriend handles DELETE /api/users/friends.
func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	friendEmail := r.URL.Query().Get("friendEmail")
	if err := h.db.RemoveFriend(email, friendEmail); err != nil {
		h.friendsError(w, err)
		return
	}
	friends, err := h.db.Friends(email)
	if err != nil {
		h.friendsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Friend removed", "friends": friends})
}

func (h *Handler) friendsError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("User not found"))
		return
	}
	slog.Error("friends operation failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
}

// UserNotes handles GET /api/users/notes.
func (h *Handler) UserNotes(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Email is required"))
		return
	}
	if _, err := h.db.GetUser(email); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("User not found"))
			return
		}
		slog.Error("user notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}

	shelf, err := h.market.Shelf(email)
	if err != nil {
		slog.Error("user notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	writeJSON(w, http.StatusOK, shelf)
}
