// internal/core/domain/inventory.go
package domain

import "fmt"

// InventoryItem represents a single inventory record.
//
// ID is assigned by the store at creation, starts at 1, strictly increases,
// and is never reused. PhotoFilename names the blob inside the photo cache
// directory and is never exposed to clients; PhotoURL is derived from the
// ID on every read and is never persisted.
type InventoryItem struct {
	ID            int64  `json:"id"`
	InventoryName string `json:"inventory_name"`
	Description   string `json:"description"`
	PhotoFilename string `json:"-"`
	PhotoURL      string `json:"photo_url,omitempty"`
}

// HasPhoto reports whether a photo has ever been attached to the item.
// Once set, a photo filename can be replaced but never cleared.
func (i *InventoryItem) HasPhoto() bool {
	return i.PhotoFilename != ""
}

// Validate performs domain validation on the inventory item
func (i *InventoryItem) Validate() error {
	if i.InventoryName == "" {
		return fmt.Errorf("%w: inventory_name is required", ErrValidation)
	}
	return nil
}

// FieldUpdate carries a partial update for an inventory item. Nil pointers
// mean "leave unchanged"; a pointer to the empty string is a present, empty
// value and is validated like any other.
type FieldUpdate struct {
	InventoryName *string `json:"inventory_name"`
	Description   *string `json:"description"`
}

// Validate rejects updates that would clear the required name field
func (u *FieldUpdate) Validate() error {
	if u.InventoryName != nil && *u.InventoryName == "" {
		return fmt.Errorf("%w: inventory_name cannot be empty", ErrValidation)
	}
	return nil
}
