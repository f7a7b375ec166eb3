package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quill/internal/uploads"
)

// multipartOverhead is allowed on top of the file limit for form framing.
const multipartOverhead = 64 << 10

// UploadHandler accepts post images and serves them back.
type UploadHandler struct {
	store *uploads.Store
}

// NewUploadHandler creates a handler backed by store.
func NewUploadHandler(store *uploads.Store) *UploadHandler {
	return &UploadHandler{store: store}
}

// ServeFile handles GET /uploads/{filename}.
func (h *UploadHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.store.Path(chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/uploads (multipart/form-data, field "file").
// Only images are accepted.
//
//	@Summary	Upload a post image
//	@Tags		uploads
//	@Accept		mpfd
//	@Produce	json
//	@Param		file	formData	file	true	"Image"
//	@Success	201		{object}	UploadResponse
//	@Failure	400		{object}	errResponse
//	@Failure	413		{object}	errResponse
//	@Failure	415		{object}	errResponse
//	@Router		/uploads [post]
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.store.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(limit); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("File too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	if header.Size > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("File too large"))
		return
	}

	saved, err := h.store.Save(header.Filename, file)
	switch {
	case errors.Is(err, uploads.ErrNotImage):
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody("Only image files are allowed"))
		return
	case errors.Is(err, uploads.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("File too large"))
		return
	case err != nil:
		writeError(w, r, err, "Failed to store file")
		return
	}

	slog.Info("upload stored", slog.String("filename", saved.Name), slog.Int64("size", saved.Size))
	writeJSON(w, http.StatusCreated, UploadResponse{
		Filename: saved.Name,
		Size:     saved.Size,
		URL:      saved.URL(),
	})
}
