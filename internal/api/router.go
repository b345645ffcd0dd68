package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("Method not allowed"))
	})

	// Accounts.
	r.Post("/auth/signup", h.Signup)

	// Upload pipeline.
	r.Post("/upload", h.Upload)

	// Points economy.
	r.Get("/users/points", h.GetPoints)
	r.Post("/users/points", h.AddPoints)
	r.Put("/users/points", h.DeductPoints)
	r.Patch("/users/buy", h.Buy)

	// Shelves and friends.
	r.Get("/users/notes", h.UserNotes)
	r.Get("/users/friends", h.GetFriends)
	r.Post("/users/friends", h.AddFriend)
	r.Delete("/users/friends", h.RemoveFriend)

	// Notes.
	r.Get("/notes/{id}", h.NoteDetail)
	r.Get("/search", h.Search)
	r.Post("/summary/download", h.DownloadSummary)

	// Forum.
	r.Get("/forum", h.ListPosts)
	r.Post("/forum", h.CreatePost)
	r.Get("/forum/{id}", h.GetPost)
	r.Delete("/forum/{id}", h.DeletePost)
	r.Post("/forum/comments", h.AddComment)
	r.Delete("/forum/comments", h.DeleteComment)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
