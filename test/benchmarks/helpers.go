// test/benchmarks/helpers.go
package benchmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/ammerola/stockroom-be/internal/adapters/memstore"
	"github.com/ammerola/stockroom-be/internal/adapters/photocache"
	"github.com/ammerola/stockroom-be/internal/core/services"
)

// benchLogger discards everything so logging cost stays out of the numbers.
func benchLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// newBenchService wires a service onto a fresh store and a photo cache
// rooted in a benchmark-scoped temp directory.
func newBenchService(b *testing.B) (*services.InventoryService, *photocache.Cache) {
	b.Helper()

	logger := benchLogger()
	store := memstore.New(logger)

	photos, err := photocache.New(b.TempDir(), logger)
	if err != nil {
		b.Fatalf("failed to create photo cache: %v", err)
	}

	return services.NewInventoryService(store, photos, logger), photos
}

// seedRecords creates count records and returns their ids. Every third
// record references a photo blob that is never written, which is a legal
// state: blobs are only checked when a photo is served.
func seedRecords(b *testing.B, service *services.InventoryService, count int) []int64 {
	b.Helper()

	ctx := context.Background()
	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		photo := ""
		if i%3 == 0 {
			photo = fmt.Sprintf("seed_photo_%d.jpg", i)
		}
		item, err := service.Create(ctx, fmt.Sprintf("Bench Item %d", i), "warehouse shelf stock", photo)
		if err != nil {
			b.Fatalf("failed to seed record: %v", err)
		}
		ids = append(ids, item.ID)
	}
	return ids
}

// photoBytes builds a deterministic payload standing in for an uploaded
// image.
func photoBytes(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}
