// internal/handlers/inventory.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ammerola/stockroom-be/internal/adapters/photocache"
	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
)

// InventoryHandler handles inventory-related HTTP requests. Photo uploads
// are written into the cache here, before the record write; the core only
// ever sees finished filenames.
type InventoryHandler struct {
	service        ports.InventoryService
	photos         *photocache.Cache
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(service ports.InventoryService, photos *photocache.Cache, maxUploadMB int64, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service:        service,
		photos:         photos,
		maxUploadBytes: maxUploadMB << 20,
		logger:         logger.With(slog.String("handler", "inventory")),
	}
}

// CreateInventory handles POST /api/v1/inventory.
// Accepts either a JSON body or multipart/form-data with an optional photo
// part, so a record and its photo can land in one request.
func (h *InventoryHandler) CreateInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		name          string
		description   string
		photoFilename string
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			h.respondError(w, http.StatusBadRequest, "validation_error", "Failed to parse multipart form")
			return
		}

		name = r.FormValue("inventory_name")
		description = r.FormValue("description")

		filename, err := h.savePhotoFromForm(ctx, r)
		if err != nil {
			h.respondServiceError(w, err, "Failed to store uploaded photo")
			return
		}
		photoFilename = filename
	} else {
		var req CreateInventoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			h.respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		name = req.InventoryName
		description = req.Description
	}

	item, err := h.service.Create(ctx, name, description, photoFilename)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create inventory item",
			slog.String("error", err.Error()))

		// The blob was written before the record; undo it so a rejected
		// create leaves nothing behind.
		if photoFilename != "" {
			if rmErr := h.photos.Remove(ctx, photoFilename); rmErr != nil {
				h.logger.WarnContext(ctx, "failed to remove photo after rejected create",
					slog.String("filename", photoFilename),
					slog.String("error", rmErr.Error()))
			}
		}

		h.respondServiceError(w, err, "Failed to create inventory item")
		return
	}

	h.logger.InfoContext(ctx, "inventory item created",
		slog.Int64("id", item.ID),
		slog.String("inventory_name", item.InventoryName),
		slog.Bool("has_photo", item.HasPhoto()))

	h.respondJSON(w, http.StatusCreated, item)
}

// GetInventory handles GET /api/v1/inventory/{id}
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	item, err := h.service.GetByID(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get inventory item",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		h.respondServiceError(w, err, "Failed to retrieve inventory item")
		return
	}

	h.respondJSON(w, http.StatusOK, item)
}

// ListInventory handles GET /api/v1/inventory.
// A non-empty q parameter switches from a plain insertion-order listing to
// a substring search over name and description.
func (h *InventoryHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		items []domain.InventoryItem
		err   error
	)

	if query := r.URL.Query().Get("q"); query != "" {
		items, err = h.service.Search(ctx, query)
	} else {
		items, err = h.service.List(ctx)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list inventory items",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "internal", "Failed to list inventory items")
		return
	}

	h.respondJSON(w, http.StatusOK, ListInventoryResponse{
		Items: items,
		Count: len(items),
	})
}

// UpdateInventory handles PUT /api/v1/inventory/{id}.
// Fields absent from the body are left untouched; an explicit empty string
// is a real value.
func (h *InventoryHandler) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req UpdateInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	item, err := h.service.UpdateFields(ctx, id, req.ToDomain())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to update inventory item",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		h.respondServiceError(w, err, "Failed to update inventory item")
		return
	}

	h.logger.InfoContext(ctx, "inventory item updated", slog.Int64("id", id))

	h.respondJSON(w, http.StatusOK, item)
}

// ReplacePhoto handles PUT /api/v1/inventory/{id}/photo.
// The new blob is written first, then the record is repointed. The old
// blob stays on disk as an orphan.
func (h *InventoryHandler) ReplacePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation_error", "Failed to parse multipart form")
		return
	}

	filename, err := h.savePhotoFromForm(ctx, r)
	if err != nil {
		h.respondServiceError(w, err, "Failed to store uploaded photo")
		return
	}
	if filename == "" {
		h.respondError(w, http.StatusBadRequest, "validation_error", "Photo file is required")
		return
	}

	item, err := h.service.ReplacePhoto(ctx, id, filename)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to replace inventory photo",
			slog.Int64("id", id),
			slog.String("error", err.Error()))

		if rmErr := h.photos.Remove(ctx, filename); rmErr != nil {
			h.logger.WarnContext(ctx, "failed to remove photo after rejected replace",
				slog.String("filename", filename),
				slog.String("error", rmErr.Error()))
		}

		h.respondServiceError(w, err, "Failed to replace inventory photo")
		return
	}

	h.logger.InfoContext(ctx, "inventory photo replaced", slog.Int64("id", id))

	h.respondJSON(w, http.StatusOK, item)
}

// ServePhoto handles GET /inventory/{id}/photo, the exact URL embedded in
// records. The backing file is checked here, at serve time; a record may
// reference a blob that has since been removed from disk.
func (h *InventoryHandler) ServePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	path, err := h.service.PhotoPath(ctx, id)
	if err != nil {
		h.respondServiceError(w, err, "Failed to serve photo")
		return
	}

	// The URL stays the same when the photo is replaced, so clients must
	// revalidate instead of caching.
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

// DeleteInventory handles DELETE /api/v1/inventory/{id}
func (h *InventoryHandler) DeleteInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.logger.ErrorContext(ctx, "failed to delete inventory item",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		h.respondServiceError(w, err, "Failed to delete inventory item")
		return
	}

	h.logger.InfoContext(ctx, "inventory item deleted", slog.Int64("id", id))

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("inventory item %d deleted", id),
		"id":      id,
	})
}

// parseID extracts and parses the {id} path segment, writing the error
// response itself when the segment is not a positive integer.
func (h *InventoryHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := r.PathValue("id")

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		h.respondError(w, http.StatusBadRequest, "validation_error", "Invalid inventory ID format")
		return 0, false
	}
	return id, true
}

// savePhotoFromForm extracts the photo part, when present, and streams it
// into the cache. Returns the stored filename, or empty when the form had
// no photo part.
func (h *InventoryHandler) savePhotoFromForm(ctx context.Context, r *http.Request) (string, error) {
	file, header, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", fmt.Errorf("%w: invalid photo upload: %s", domain.ErrValidation, err.Error())
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "image/") && ct != "application/octet-stream" {
		return "", fmt.Errorf("%w: photo must be an image, got %s", domain.ErrValidation, ct)
	}

	filename, err := h.photos.Save(ctx, header.Filename, file)
	if err != nil {
		return "", err
	}
	return filename, nil
}

// Helper methods

func (h *InventoryHandler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "not_found", "Inventory item not found")
	case errors.Is(err, domain.ErrValidation):
		h.respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		h.respondError(w, http.StatusInternalServerError, "internal", fallback)
	}
}

func (h *InventoryHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *InventoryHandler) respondError(w http.ResponseWriter, status int, kind, message string) {
	h.respondJSON(w, status, map[string]string{"error": message, "kind": kind})
}

// Request/Response DTOs

// CreateInventoryRequest represents the JSON request body for creating
// inventory without a photo
type CreateInventoryRequest struct {
	InventoryName string `json:"inventory_name"`
	Description   string `json:"description,omitempty"`
}

// Validate validates the create inventory request
func (r *CreateInventoryRequest) Validate() error {
	if r.InventoryName == "" {
		return fmt.Errorf("inventory_name is required")
	}
	return nil
}

// UpdateInventoryRequest represents the request body for updating
// inventory fields. Pointer fields distinguish "absent" from "empty".
type UpdateInventoryRequest struct {
	InventoryName *string `json:"inventory_name"`
	Description   *string `json:"description"`
}

// Validate validates the update inventory request
func (r *UpdateInventoryRequest) Validate() error {
	if r.InventoryName != nil && *r.InventoryName == "" {
		return fmt.Errorf("inventory_name cannot be empty")
	}
	return nil
}

// ToDomain converts the request to a domain field update
func (r *UpdateInventoryRequest) ToDomain() domain.FieldUpdate {
	return domain.FieldUpdate{
		InventoryName: r.InventoryName,
		Description:   r.Description,
	}
}

// ListInventoryResponse wraps a listing or search result
type ListInventoryResponse struct {
	Items []domain.InventoryItem `json:"items"`
	Count int                    `json:"count"`
}
