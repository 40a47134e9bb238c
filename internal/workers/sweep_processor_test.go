// internal/workers/sweep_processor_test.go
package workers_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockroom-be/internal/workers"
	"github.com/ammerola/stockroom-be/test/helpers"
)

// writeBlob creates a cache file and backdates its modification time.
func writeBlob(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o644))

	if age > 0 {
		old := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(path, old, old))
	}
	return path
}

func sweepTask(t *testing.T, payload workers.CacheSweepPayload) *asynq.Task {
	t.Helper()

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(workers.TypeCacheSweep, b)
}

func TestSweepProcessor_ProcessCacheSweep(t *testing.T) {
	t.Run("deletes_only_old_unreferenced_blobs", func(t *testing.T) {
		dir := t.TempDir()
		referenced := writeBlob(t, dir, "referenced.jpg", 2*time.Hour)
		orphan := writeBlob(t, dir, "orphan.jpg", 2*time.Hour)
		fresh := writeBlob(t, dir, "fresh-orphan.jpg", 0)

		processor := workers.NewSweepProcessor(helpers.TestLogger())
		task := sweepTask(t, workers.CacheSweepPayload{
			CacheDir:   dir,
			Referenced: []string{"referenced.jpg"},
			MinAge:     time.Hour,
		})

		err := processor.ProcessCacheSweep(context.Background(), task)
		require.NoError(t, err)

		assert.FileExists(t, referenced, "referenced blobs are never touched")
		assert.NoFileExists(t, orphan)
		assert.FileExists(t, fresh, "blobs younger than min_age are left alone")
	})

	t.Run("zero_min_age_deletes_fresh_orphans", func(t *testing.T) {
		dir := t.TempDir()
		orphan := writeBlob(t, dir, "orphan.jpg", 0)

		processor := workers.NewSweepProcessor(helpers.TestLogger())
		task := sweepTask(t, workers.CacheSweepPayload{
			CacheDir:   dir,
			Referenced: nil,
			MinAge:     0,
		})

		err := processor.ProcessCacheSweep(context.Background(), task)
		require.NoError(t, err)

		assert.NoFileExists(t, orphan)
	})

	t.Run("empty_cache_dir_is_a_no_op", func(t *testing.T) {
		processor := workers.NewSweepProcessor(helpers.TestLogger())
		task := sweepTask(t, workers.CacheSweepPayload{
			CacheDir:   t.TempDir(),
			Referenced: []string{"anything.jpg"},
			MinAge:     time.Hour,
		})

		assert.NoError(t, processor.ProcessCacheSweep(context.Background(), task))
	})

	t.Run("malformed_payload_errors", func(t *testing.T) {
		processor := workers.NewSweepProcessor(helpers.TestLogger())
		task := asynq.NewTask(workers.TypeCacheSweep, []byte("not-json"))

		err := processor.ProcessCacheSweep(context.Background(), task)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal payload")
	})

	t.Run("missing_cache_dir_errors", func(t *testing.T) {
		processor := workers.NewSweepProcessor(helpers.TestLogger())
		task := sweepTask(t, workers.CacheSweepPayload{
			CacheDir: filepath.Join(t.TempDir(), "does-not-exist"),
			MinAge:   time.Hour,
		})

		err := processor.ProcessCacheSweep(context.Background(), task)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to walk cache directory")
	})
}
