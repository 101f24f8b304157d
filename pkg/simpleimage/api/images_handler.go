package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-image/pkg/simpleimage"
)

// ImagesHandler exposes upload, transform and invalidation endpoints over
// the simpleimage service.
type ImagesHandler struct {
	service simpleimage.Service
}

func NewImagesHandler(service simpleimage.Service) *ImagesHandler {
	return &ImagesHandler{service: service}
}

// Routes returns the router for image endpoints
func (h *ImagesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.UploadImage)
	r.Get("/{hash}", h.GetImage)
	r.Get("/{hash}/transform", h.GetOrCreateTransform)
	r.Delete("/{hash}/transforms", h.InvalidateTransforms)
	r.Delete("/{hash}", h.DeleteImage)
	return r
}

// UploadImageResponse is returned after a successful upload
type UploadImageResponse struct {
	Hash       string    `json:"hash"`
	Format     string    `json:"format"`
	Size       int64     `json:"size"`
	Key        string    `json:"key"`
	Duplicate  bool      `json:"duplicate"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// TransformResponse is returned for a transform request
type TransformResponse struct {
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
}

// InvalidateResponse reports how many cached variants were removed
type InvalidateResponse struct {
	Deleted int `json:"deleted"`
}

// UploadImage accepts image bytes (multipart field "file" or the raw
// request body) and stores them deduplicated by content hash.
func (h *ImagesHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	req := simpleimage.UploadImageRequest{Reader: r.Body}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		req.Reader = file
		req.FileName = header.Filename
	}
	req.Format = r.URL.Query().Get("format")

	result, err := h.service.UploadImage(r.Context(), req)
	if err != nil {
		if errors.Is(err, simpleimage.ErrInvalidImage) {
			http.Error(w, "not a valid image", http.StatusBadRequest)
			return
		}
		slog.Error("Failed to upload image", "error", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadImageResponse{
		Hash:       result.Image.Hash,
		Format:     result.Image.Format,
		Size:       result.Image.Size,
		Key:        result.Key,
		Duplicate:  result.Duplicate,
		UploadedAt: result.Image.UploadedAt,
	})
}

// GetImage returns the stored metadata record for a content hash
func (h *ImagesHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	image, err := h.service.GetImage(r.Context(), hash)
	if err != nil {
		if errors.Is(err, simpleimage.ErrRawImageNotFound) {
			http.Error(w, "image not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get image", "hash", hash, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, image)
}

// GetOrCreateTransform resolves a transformed variant, creating it on first
// request, and returns its key plus a time-limited access URL when the
// backend supports one.
func (h *ImagesHandler) GetOrCreateTransform(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := simpleimage.TransformRequest{
		Hash:        chi.URLParam(r, "hash"),
		Format:      q.Get("format"),
		Width:       parseIntParam(q.Get("width")),
		Height:      parseIntParam(q.Get("height")),
		Watermarked: q.Get("watermark") == "true" || q.Get("watermark") == "1",
	}

	key, err := h.service.GetOrCreateTransform(r.Context(), req)
	if err != nil {
		if errors.Is(err, simpleimage.ErrRawImageNotFound) {
			http.Error(w, "image not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, simpleimage.ErrInvalidImage) {
			http.Error(w, "processing failed", http.StatusUnprocessableEntity)
			return
		}
		slog.Error("Failed to create transform", "hash", req.Hash, "error", err)
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}

	resp := TransformResponse{Key: key}
	if url, err := h.service.GetDownloadURL(r.Context(), key); err == nil {
		resp.URL = url
	}

	render.JSON(w, r, resp)
}

// InvalidateTransforms deletes all cached variants of a content hash
func (h *ImagesHandler) InvalidateTransforms(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	deleted, err := h.service.InvalidateTransforms(r.Context(), hash)
	if err != nil {
		slog.Error("Failed to invalidate transforms", "hash", hash, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, InvalidateResponse{Deleted: deleted})
}

// DeleteImage removes the raw image, its cached variants and its metadata
func (h *ImagesHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	if err := h.service.DeleteImage(r.Context(), hash); err != nil {
		if errors.Is(err, simpleimage.ErrRawImageNotFound) {
			http.Error(w, "image not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete image", "hash", hash, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseIntParam(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
