package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mediabundle/internal/domain"
	"mediabundle/internal/logging"
)

const maxMemory = 32 << 20

// MediaService is what the handler needs from the media manager.
type MediaService interface {
	Get(ctx context.Context, id int64) (*domain.Media, error)
	Add(ctx context.Context, upload *domain.UploadedFile, userID, collectionID int64, properties []domain.FileVersionProperties) (*domain.Media, error)
	Update(ctx context.Context, upload *domain.UploadedFile, userID, id int64, collectionID *int64, properties []domain.FileVersionProperties) (*domain.Media, error)
	Remove(ctx context.Context, id, userID int64) error
}

type MediaHandler struct {
	media     MediaService
	uploadDir string
}

func NewMediaHandler(media MediaService, uploadDir string) *MediaHandler {
	return &MediaHandler{media: media, uploadDir: uploadDir}
}

// Register mounts the media routes on r.
func (h *MediaHandler) Register(r chi.Router) {
	r.Post("/media", h.AddMedia)
	r.Route("/media/{id}", func(r chi.Router) {
		r.Get("/", h.GetMedia)
		r.Post("/", h.UpdateMedia)
		r.Delete("/", h.RemoveMedia)
	})
}

func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	media, err := h.media.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, media)
}

func (h *MediaHandler) AddMedia(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		http.Error(w, "Invalid X-User-ID header", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	collectionID, err := strconv.ParseInt(r.FormValue("collection_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid collection ID", http.StatusBadRequest)
		return
	}

	properties, err := parseProperties(r)
	if err != nil {
		http.Error(w, "Invalid properties", http.StatusBadRequest)
		return
	}

	upload, cleanup, err := h.receiveFile(r)
	if err != nil {
		logging.WithContext(r.Context()).Error("failed to receive upload", logging.Err(err))
		http.Error(w, "Failed to receive file", http.StatusInternalServerError)
		return
	}
	defer cleanup()

	media, err := h.media.Add(r.Context(), upload, userID, collectionID, properties)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, media)
}

func (h *MediaHandler) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	userID, err := actingUser(r)
	if err != nil {
		http.Error(w, "Invalid X-User-ID header", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var collectionID *int64
	if raw := r.FormValue("collection_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid collection ID", http.StatusBadRequest)
			return
		}
		collectionID = &parsed
	}

	properties, err := parseProperties(r)
	if err != nil {
		http.Error(w, "Invalid properties", http.StatusBadRequest)
		return
	}

	upload, cleanup, err := h.receiveFile(r)
	if err != nil {
		logging.WithContext(r.Context()).Error("failed to receive upload", logging.Err(err))
		http.Error(w, "Failed to receive file", http.StatusInternalServerError)
		return
	}
	defer cleanup()

	media, err := h.media.Update(r.Context(), upload, userID, id, collectionID, properties)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, media)
}

func (h *MediaHandler) RemoveMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	userID, err := actingUser(r)
	if err != nil {
		http.Error(w, "Invalid X-User-ID header", http.StatusBadRequest)
		return
	}

	if err := h.media.Remove(r.Context(), id, userID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// receiveFile copies the "file" part to a temp file. upload is nil when no file was sent.
func (h *MediaHandler) receiveFile(r *http.Request) (*domain.UploadedFile, func(), error) {
	noop := func() {}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	defer file.Close()

	tmp, err := os.CreateTemp(h.uploadDir, "upload-*")
	if err != nil {
		return nil, noop, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	size, err := io.Copy(tmp, file)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("write temp file: %w", err)
	}

	return &domain.UploadedFile{
		Path:     tmp.Name(),
		Name:     header.Filename,
		Size:     size,
		MimeType: contentType(header),
	}, cleanup, nil
}

func contentType(header *multipart.FileHeader) string {
	return header.Header.Get("Content-Type")
}

func parseProperties(r *http.Request) ([]domain.FileVersionProperties, error) {
	raw := r.FormValue("properties")
	if raw == "" {
		return nil, nil
	}
	var properties []domain.FileVersionProperties
	if err := json.Unmarshal([]byte(raw), &properties); err != nil {
		return nil, err
	}
	return properties, nil
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// actingUser reads the caller's user id. Authentication happens in front of this service.
func actingUser(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		typeErr       *domain.InvalidMediaTypeError
	)

	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnknownMediaType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrCollectionNotFound),
		errors.Is(err, domain.ErrFileVersionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &typeErr):
		http.Error(w, typeErr.Error(), http.StatusConflict)
	default:
		logging.WithContext(r.Context()).Error("media request failed", logging.Err(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
