// internal/adapters/photocache/photocache.go
package photocache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ammerola/stockroom-be/internal/core/domain"
)

// URLFor returns the serving URL for an item's photo, or the empty string
// when the item has none. Pure, touches no filesystem state.
func URLFor(id int64, hasPhoto bool) string {
	if !hasPhoto {
		return ""
	}
	return fmt.Sprintf("/inventory/%d/photo", id)
}

// Cache binds inventory records to photo blobs in a local directory.
//
// Records are the only bookkeeping; the directory itself is append-mostly.
// Replacing a photo orphans the previous blob, deleting a record orphans
// its blob, and neither path removes files. Existence of a blob is checked
// lazily when a photo is resolved for serving, never at record-write time.
type Cache struct {
	dir    string
	logger *slog.Logger
}

// New creates the cache directory if needed and returns a Cache rooted at
// dir.
func New(dir string, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photo cache directory: %w", err)
	}
	return &Cache{
		dir:    dir,
		logger: logger.With(slog.String("storage", "photo_cache")),
	}, nil
}

// Dir returns the cache directory path
func (c *Cache) Dir() string {
	return c.dir
}

// Resolve returns the absolute path of the blob backing the item's photo.
// The file is stat'ed at call time; a record may reference a blob that is
// gone, and that surfaces here as not found.
func (c *Cache) Resolve(item *domain.InventoryItem) (string, error) {
	if !item.HasPhoto() {
		return "", fmt.Errorf("inventory item %d has no photo: %w", item.ID, domain.ErrNotFound)
	}

	path := filepath.Join(c.dir, item.PhotoFilename)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("photo blob for inventory item %d: %w", item.ID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("failed to stat photo blob: %w", err)
	}
	return path, nil
}

// Save streams an uploaded blob into the cache under a unique filename and
// returns that filename. The uuid prefix keeps concurrent uploads of the
// same original name from colliding.
func (c *Cache) Save(ctx context.Context, originalName string, data io.Reader) (string, error) {
	filename := fmt.Sprintf("%s_%s", uuid.New().String(), safeBaseName(originalName))
	path := filepath.Join(c.dir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create photo blob: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, data)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write photo blob: %w", err)
	}

	c.logger.DebugContext(ctx, "photo blob saved",
		slog.String("filename", filename),
		slog.Int64("size", size))

	return filename, nil
}

// Remove deletes a blob by filename. Used by the transport layer to undo
// an upload whose record write failed, not by the core.
func (c *Cache) Remove(ctx context.Context, filename string) error {
	if filename == "" {
		return nil
	}

	path := filepath.Join(c.dir, safeBaseName(filename))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to remove photo blob: %w", err)
	}

	c.logger.DebugContext(ctx, "photo blob removed", slog.String("filename", filename))
	return nil
}

// safeBaseName strips any path components from a client-supplied name so
// it cannot escape the cache directory.
func safeBaseName(name string) string {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "photo"
	}
	return base
}
