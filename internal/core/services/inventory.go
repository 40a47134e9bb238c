// internal/core/services/inventory.go
package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ammerola/stockroom-be/internal/adapters/photocache"
	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
)

// InventoryService implements the inventory operations on top of the
// record store and the photo cache binder. Records coming out of the
// store never carry the derived photo URL; every read path here stamps it
// on fresh, so the URL always reflects the photo state at response time.
type InventoryService struct {
	store  ports.InventoryStore
	photos *photocache.Cache
	logger *slog.Logger
}

// Ensure InventoryService implements the interface
var _ ports.InventoryService = (*InventoryService)(nil)

// NewInventoryService creates a new inventory service
func NewInventoryService(store ports.InventoryStore, photos *photocache.Cache, logger *slog.Logger) *InventoryService {
	return &InventoryService{
		store:  store,
		photos: photos,
		logger: logger.With(slog.String("service", "inventory")),
	}
}

// Create inserts a new record. The photo filename, when present, names a
// blob the transport layer already wrote into the cache.
func (s *InventoryService) Create(ctx context.Context, name, description, photoFilename string) (*domain.InventoryItem, error) {
	item, err := s.store.Create(ctx, name, description, photoFilename)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "inventory item created",
		slog.Int64("id", item.ID),
		slog.Bool("has_photo", item.HasPhoto()))

	return s.withPhotoURL(item), nil
}

// GetByID returns a single record
func (s *InventoryService) GetByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withPhotoURL(item), nil
}

// List returns all records in insertion order
func (s *InventoryService) List(ctx context.Context) ([]domain.InventoryItem, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.withPhotoURLs(items), nil
}

// Search filters a fresh snapshot by case-insensitive substring match over
// name and description. The store stays index-free, so insertion order
// carries through untouched.
func (s *InventoryService) Search(ctx context.Context, query string) ([]domain.InventoryItem, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.withPhotoURLs(items), nil
	}

	matched := make([]domain.InventoryItem, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.InventoryName), query) ||
			strings.Contains(strings.ToLower(item.Description), query) {
			matched = append(matched, item)
		}
	}

	s.logger.DebugContext(ctx, "inventory searched",
		slog.String("query", query),
		slog.Int("matches", len(matched)))

	return s.withPhotoURLs(matched), nil
}

// UpdateFields applies a partial update. Nil fields in the update are left
// unchanged on the record.
func (s *InventoryService) UpdateFields(ctx context.Context, id int64, update domain.FieldUpdate) (*domain.InventoryItem, error) {
	item, err := s.store.UpdateFields(ctx, id, update)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "inventory item updated", slog.Int64("id", id))

	return s.withPhotoURL(item), nil
}

// ReplacePhoto points the record at a new blob the transport layer already
// wrote. The previous blob is orphaned on disk, not deleted.
func (s *InventoryService) ReplacePhoto(ctx context.Context, id int64, photoFilename string) (*domain.InventoryItem, error) {
	item, err := s.store.UpdatePhoto(ctx, id, photoFilename)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "inventory photo replaced", slog.Int64("id", id))

	return s.withPhotoURL(item), nil
}

// Delete removes the record. The photo blob, if any, stays in the cache
// directory as an orphan.
func (s *InventoryService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "inventory item deleted", slog.Int64("id", id))
	return nil
}

// PhotoPath resolves the on-disk blob path for the item's photo. Existence
// is checked here at serve time, never when the record was written, so a
// record may reference a file that has since disappeared.
func (s *InventoryService) PhotoPath(ctx context.Context, id int64) (string, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	path, err := s.photos.Resolve(item)
	if err != nil {
		s.logger.WarnContext(ctx, "photo blob missing at serve time",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		return "", err
	}
	return path, nil
}

// ReferencedPhotos snapshots the filenames live records point at. Anything
// in the cache directory outside this set is an orphan.
func (s *InventoryService) ReferencedPhotos(ctx context.Context) ([]string, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	referenced := make([]string, 0, len(items))
	for _, item := range items {
		if item.HasPhoto() {
			referenced = append(referenced, item.PhotoFilename)
		}
	}
	return referenced, nil
}

func (s *InventoryService) withPhotoURL(item *domain.InventoryItem) *domain.InventoryItem {
	item.PhotoURL = photocache.URLFor(item.ID, item.HasPhoto())
	return item
}

func (s *InventoryService) withPhotoURLs(items []domain.InventoryItem) []domain.InventoryItem {
	for i := range items {
		items[i].PhotoURL = photocache.URLFor(items[i].ID, items[i].HasPhoto())
	}
	return items
}
