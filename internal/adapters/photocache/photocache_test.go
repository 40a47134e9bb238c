// internal/adapters/photocache/photocache_test.go
package photocache_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockroom-be/internal/adapters/photocache"
	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/test/helpers"
)

func TestURLFor(t *testing.T) {
	tests := []struct {
		name     string
		id       int64
		hasPhoto bool
		want     string
	}{
		{
			name:     "with_photo",
			id:       2,
			hasPhoto: true,
			want:     "/inventory/2/photo",
		},
		{
			name:     "without_photo",
			id:       1,
			hasPhoto: false,
			want:     "",
		},
		{
			name:     "large_id",
			id:       1234567,
			hasPhoto: true,
			want:     "/inventory/1234567/photo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, photocache.URLFor(tt.id, tt.hasPhoto))
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("creates_missing_directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "photos")

		cache, err := photocache.New(dir, helpers.TestLogger())
		require.NoError(t, err)
		assert.Equal(t, dir, cache.Dir())

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestCache_Save(t *testing.T) {
	t.Run("writes_blob_under_unique_name", func(t *testing.T) {
		cache, err := photocache.New(t.TempDir(), helpers.TestLogger())
		require.NoError(t, err)

		filename, err := cache.Save(context.Background(), "p1.jpg", strings.NewReader("jpeg-bytes"))
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, "_p1.jpg"))
		assert.NotEqual(t, "p1.jpg", filename)

		data, err := os.ReadFile(filepath.Join(cache.Dir(), filename))
		require.NoError(t, err)
		assert.Equal(t, "jpeg-bytes", string(data))
	})

	t.Run("same_original_name_never_collides", func(t *testing.T) {
		cache, err := photocache.New(t.TempDir(), helpers.TestLogger())
		require.NoError(t, err)
		ctx := context.Background()

		first, err := cache.Save(ctx, "photo.png", strings.NewReader("a"))
		require.NoError(t, err)
		second, err := cache.Save(ctx, "photo.png", strings.NewReader("b"))
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("path_components_in_client_name_are_stripped", func(t *testing.T) {
		cache, err := photocache.New(t.TempDir(), helpers.TestLogger())
		require.NoError(t, err)

		filename, err := cache.Save(context.Background(), "../../etc/passwd", strings.NewReader("x"))
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, "_passwd"))
		assert.NotContains(t, filename, "..")

		_, err = os.Stat(filepath.Join(cache.Dir(), filename))
		assert.NoError(t, err, "blob must land inside the cache directory")
	})
}

func TestCache_Resolve(t *testing.T) {
	t.Run("resolves_existing_blob", func(t *testing.T) {
		cache, err := photocache.New(t.TempDir(), helpers.TestLogger())
		require.NoError(t, err)

		filename, err := cache.Save(context.Background(), "p1.jpg", strings.NewReader("jpeg-bytes"))
		require.NoError(t, err)

		item := &domain.InventoryItem{ID: 2, InventoryName: "Drill", PhotoFilename: filename}

		path, err := cache.Resolve(item)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cache.Dir(), filename), path)
	})

	t.Run("record_without_photo_is_not_found", func(t *testing.T) {
		cache, err := photocache.New(t.TempDir(), helpers.TestLogger())
		require.NoError(t, err)

		item := &domain.InventoryItem{ID: 1, InventoryName: "Hammer"}

		_, err = cache.Resolve(item)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("blob_removed_behind_the_record_is_not_found", func(t *testing.T) {
		cache, err := photocache.New(t.TempDir(), helpers.TestLogger())
		require.NoError(t, err)

		filename, err := cache.Save(context.Background(), "p1.jpg", strings.NewReader("jpeg-bytes"))
		require.NoError(t, err)

		// Simulate an operator deleting the file out from under the record.
		require.NoError(t, os.Remove(filepath.Join(cache.Dir(), filename)))

		item := &domain.InventoryItem{ID: 2, InventoryName: "Drill", PhotoFilename: filename}

		_, err = cache.Resolve(item)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCache_Remove(t *testing.T) {
	t.Run("removes_blob", func(t *testing.T) {
		cache, err := photocache.New(t.TempDir(), helpers.TestLogger())
		require.NoError(t, err)
		ctx := context.Background()

		filename, err := cache.Save(ctx, "p1.jpg", strings.NewReader("jpeg-bytes"))
		require.NoError(t, err)

		require.NoError(t, cache.Remove(ctx, filename))

		_, err = os.Stat(filepath.Join(cache.Dir(), filename))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing_blob_is_not_an_error", func(t *testing.T) {
		cache, err := photocache.New(t.TempDir(), helpers.TestLogger())
		require.NoError(t, err)

		assert.NoError(t, cache.Remove(context.Background(), "never-existed.jpg"))
	})

	t.Run("empty_filename_is_a_no_op", func(t *testing.T) {
		cache, err := photocache.New(t.TempDir(), helpers.TestLogger())
		require.NoError(t, err)

		assert.NoError(t, cache.Remove(context.Background(), ""))
	})
}
