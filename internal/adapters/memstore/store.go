// internal/adapters/memstore/store.go
package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
)

// Store implements ports.InventoryStore with a mutex-guarded map. Records
// live only in process memory; nothing survives a restart.
//
// Ids start at 1, increase by one per successful Create, and are never
// reused, even after deletes. The store keeps no secondary index and does
// no sorting or filtering; List returns records in creation order. The
// derived PhotoURL field is never stored, records carry it empty.
type Store struct {
	mu     sync.RWMutex
	items  map[int64]domain.InventoryItem
	order  []int64
	nextID int64
	logger *slog.Logger
}

var _ ports.InventoryStore = (*Store)(nil)

// New creates an empty store
func New(logger *slog.Logger) *Store {
	return &Store{
		items:  make(map[int64]domain.InventoryItem),
		order:  make([]int64, 0, 64),
		nextID: 1,
		logger: logger.With(slog.String("store", "memory")),
	}
}

// Create assigns the next id and inserts the record. Id allocation and
// insertion happen in one critical section, so concurrent creates can
// never share an id or interleave partial writes.
func (s *Store) Create(ctx context.Context, name, description, photoFilename string) (*domain.InventoryItem, error) {
	item := domain.InventoryItem{
		InventoryName: name,
		Description:   description,
		PhotoFilename: photoFilename,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = s.nextID
	s.nextID++
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)

	s.logger.DebugContext(ctx, "inventory item created",
		slog.Int64("id", item.ID),
		slog.Bool("has_photo", item.HasPhoto()))

	return &item, nil
}

// List returns a copy of all records in insertion order. The snapshot is
// detached, later mutations do not show through.
func (s *Store) List(ctx context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.InventoryItem, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, s.items[id])
	}
	return items, nil
}

// Get returns the record for id
func (s *Store) Get(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("inventory item %d: %w", id, domain.ErrNotFound)
	}
	return &item, nil
}

// UpdateFields applies a partial update to the record for id. Nil update
// fields are left unchanged; there is no check that a present value
// differs from the stored one.
func (s *Store) UpdateFields(ctx context.Context, id int64, update domain.FieldUpdate) (*domain.InventoryItem, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("inventory item %d: %w", id, domain.ErrNotFound)
	}

	if update.InventoryName != nil {
		item.InventoryName = *update.InventoryName
	}
	if update.Description != nil {
		item.Description = *update.Description
	}
	s.items[id] = item

	return &item, nil
}

// UpdatePhoto replaces the photo filename for id. The replacement is
// unconditional; the blob behind the previous filename is orphaned on
// disk, never deleted here.
func (s *Store) UpdatePhoto(ctx context.Context, id int64, photoFilename string) (*domain.InventoryItem, error) {
	if photoFilename == "" {
		return nil, fmt.Errorf("%w: photo filename is required", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("inventory item %d: %w", id, domain.ErrNotFound)
	}

	item.PhotoFilename = photoFilename
	s.items[id] = item

	s.logger.DebugContext(ctx, "inventory photo replaced",
		slog.Int64("id", id))

	return &item, nil
}

// Delete removes the record for id. The photo blob, if any, stays on
// disk, and the id is never handed out again.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("inventory item %d: %w", id, domain.ErrNotFound)
	}

	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.logger.DebugContext(ctx, "inventory item deleted",
		slog.Int64("id", id))

	return nil
}

// Count returns the number of live records
func (s *Store) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
