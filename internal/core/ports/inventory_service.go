// internal/core/ports/inventory_service.go
package ports

import (
	"context"

	"github.com/ammerola/stockroom-be/internal/core/domain"
)

// InventoryService defines the application service port for inventory.
// This interface is implemented by the application service.
type InventoryService interface {
	Create(ctx context.Context, name, description, photoFilename string) (*domain.InventoryItem, error)
	GetByID(ctx context.Context, id int64) (*domain.InventoryItem, error)
	List(ctx context.Context) ([]domain.InventoryItem, error)
	Search(ctx context.Context, query string) ([]domain.InventoryItem, error)
	UpdateFields(ctx context.Context, id int64, update domain.FieldUpdate) (*domain.InventoryItem, error)
	ReplacePhoto(ctx context.Context, id int64, photoFilename string) (*domain.InventoryItem, error)
	Delete(ctx context.Context, id int64) error
	// PhotoPath resolves the on-disk path of the photo for id. The backing
	// file is checked at call time, not at write time.
	PhotoPath(ctx context.Context, id int64) (string, error)
	// ReferencedPhotos snapshots the photo filenames current records point
	// at. The cache sweep treats everything else as orphaned.
	ReferencedPhotos(ctx context.Context) ([]string, error)
}
