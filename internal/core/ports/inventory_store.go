// internal/core/ports/inventory_store.go
package ports

import (
	"context"

	"github.com/ammerola/stockroom-be/internal/core/domain"
)

// InventoryStore defines the record-keeping port for inventory.
// This interface is implemented by the in-memory store adapter.
type InventoryStore interface {
	// Create assigns the next id and inserts the record. The photo
	// filename may be empty for records created without a photo.
	Create(ctx context.Context, name, description, photoFilename string) (*domain.InventoryItem, error)
	// List returns a snapshot of all records in insertion order. Later
	// mutations do not affect a returned snapshot.
	List(ctx context.Context) ([]domain.InventoryItem, error)
	Get(ctx context.Context, id int64) (*domain.InventoryItem, error)
	// UpdateFields applies a partial update. Nil fields are left unchanged.
	UpdateFields(ctx context.Context, id int64, update domain.FieldUpdate) (*domain.InventoryItem, error)
	// UpdatePhoto unconditionally replaces the photo filename. The blob the
	// old filename pointed at stays on disk.
	UpdatePhoto(ctx context.Context, id int64, photoFilename string) (*domain.InventoryItem, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) int
}
