package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/docxgen"
	"github.com/starford/gebo/internal/store"
	"github.com/starford/gebo/internal/upload"
)

// Upload handles POST /api/upload: multipart form with the file plus
// title, description, userEmail, and userName fields. The file is run
// through the full pipeline before the response returns.
//
// The form parse runs under a read deadline so a stalled client cannot
// hold the handler; the pipeline itself is bounded separately.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctl := http.NewResponseController(w)
	_ = ctl.SetReadDeadline(time.Now().Add(h.formTimeout))

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Error parsing form data"))
		return
	}
	_ = ctl.SetReadDeadline(time.Time{})

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Error parsing form data"))
		return
	}
	defer file.Close()

	req := upload.Request{
		Filename:    header.Filename,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		UserEmail:   r.FormValue("userEmail"),
		UserName:    r.FormValue("userName"),
		File:        file,
	}

	res, err := h.pipe.Process(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrUnsupportedType):
			writeJSON(w, http.StatusInternalServerError, errorBody("Unsupported file type"))
		case errors.Is(err, apperr.ErrExtraction):
			writeJSON(w, http.StatusInternalServerError, errorBody("Error extracting file content"))
		case errors.Is(err, apperr.ErrSummarization):
			writeJSON(w, http.StatusInternalServerError, errorBody("Error summarizing file content"))
		default:
			slog.Error("upload failed", slog.String("filename", header.Filename), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("Error uploading file"))
		}
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message: "File uploaded and summarized successfully",
		Summary: res.Summary,
	})
}

// NoteDetail handles GET /api/notes/{id}. The optional email query
// parameter resolves the viewer's role for the note.
func (h *Handler) NoteDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	email := r.URL.Query().Get("email")

	detail, err := h.market.Detail(id, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Note not found."))
			return
		}
		slog.Error("note detail failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	results, err := h.db.Search(query, 20)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
		return
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// DownloadSummary handles POST /api/summary/download: renders the
// posted summary text as a .docx attachment.
func (h *Handler) DownloadSummary(w http.ResponseWriter, r *http.Request) {
	var req DownloadSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Summary == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("summary is required"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", "attachment; filename=Summary.docx")
	if err := docxgen.Write(w, []string{req.Summary}); err != nil {
		slog.Error("summary download failed", slog.String("error", err.Error()))
	}
}
