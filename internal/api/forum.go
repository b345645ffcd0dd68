package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gebo/internal/apperr"
)

// ListPosts handles GET /api/forum.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.db.ListPosts()
	if err != nil {
		slog.Error("list posts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// CreatePost handles POST /api/forum. The poster must have an account;
// their display name is denormalized onto the thread.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing required fields"))
		return
	}
	if req.Title == "" || req.Content == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing required fields"))
		return
	}

	user, err := h.db.GetUser(req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("User not found"))
			return
		}
		slog.Error("create post failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}

	id, err := h.db.CreatePost(req.Title, req.Content, user.Email, user.Name)
	if err != nil {
		slog.Error("create post failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	post, err := h.db.GetPost(id)
	if err != nil {
		slog.Error("create post failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Post created successfully", "post": post})
}

// GetPost handles GET /api/forum/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("Post not found"))
		return
	}
	post, err := h.db.GetPost(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Post not found"))
			return
		}
		slog.Error("get post failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DeletePost handles DELETE /api/forum/{id}.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("Post not found"))
		return
	}
	if err := h.db.DeletePost(id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Post not found"))
			return
		}
		slog.Error("delete post failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	writeJSON(w, http.StatusOK, msgResponse{Message: "Post deleted successfully"})
}

// AddComment handles POST /api/forum/comments.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing required fields"))
		return
	}
	if req.PostID == 0 || req.CommenterEmail == "" || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing required fields"))
		return
	}

	user, err := h.db.GetUser(req.CommenterEmail)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("User not found"))
			return
		}
		slog.Error("add comment failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}

	if _, err := h.db.AddComment(req.PostID, user.Email, user.Name, req.Text, req.ParentID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Post not found"))
			return
		}
		slog.Error("add comment failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	post, err := h.db.GetPost(req.PostID)
	if err != nil {
		slog.Error("add comment failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Comment added successfully", "post": post})
}

// DeleteComment handles DELETE /api/forum/comments. Parameters arrive
// as query values.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	postID, err1 := strconv.ParseInt(r.URL.Query().Get("postId"), 10, 64)
	commentID, err2 := strconv.ParseInt(r.URL.Query().Get("commentId"), 10, 64)
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing required fields"))
		return
	}

	if _, err := h.db.GetPost(postID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Post not found"))
			return
		}
		slog.Error("delete comment failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	if err := h.db.DeleteComment(postID, commentID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Comment not found"))
			return
		}
		slog.Error("delete comment failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	writeJSON(w, http.StatusOK, msgResponse{Message: "Comment deleted successfully"})
}
