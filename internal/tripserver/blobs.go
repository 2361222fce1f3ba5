package tripserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxBlobSize caps photo uploads at 16 MiB.
const maxBlobSize = 16 << 20

// BlobHandler serves raw photo bytes. Blobs bypass the JSON API layer so
// uploads and downloads stream as application/octet-stream.
type BlobHandler struct {
	store     *Storage
	log       *slog.Logger
	publicURL string
}

func NewBlobHandler(store *Storage, publicURL string, log *slog.Logger) *BlobHandler {
	return &BlobHandler{
		store:     store,
		log:       log,
		publicURL: publicURL,
	}
}

// SetupRoutes mounts the blob endpoints on the router.
func (h *BlobHandler) SetupRoutes(mux *chi.Mux) {
	mux.Put("/api/v1/blobs/{name}", h.put)
	mux.Get("/api/v1/blobs/{name}", h.get)
	mux.Delete("/api/v1/blobs/{name}", h.delete)
}

func (h *BlobHandler) put(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBlobSize+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(data) > maxBlobSize {
		http.Error(w, "blob too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := h.store.PutBlob(r.Context(), name, data); err != nil {
		h.log.Error("Failed to store blob", "name", name, "error", err)
		http.Error(w, "failed to store blob", http.StatusInternalServerError)
		return
	}

	h.log.Info("Blob stored", "name", name, "size", len(data))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"url": h.publicURL + "/api/v1/blobs/" + name,
	})
}

func (h *BlobHandler) get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	data, err := h.store.GetBlob(r.Context(), name)
	if errors.Is(err, ErrBlobNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log.Error("Failed to read blob", "name", name, "error", err)
		http.Error(w, "failed to read blob", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (h *BlobHandler) delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	err := h.store.DeleteBlob(r.Context(), name)
	if errors.Is(err, ErrBlobNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log.Error("Failed to delete blob", "name", name, "error", err)
		http.Error(w, "failed to delete blob", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
