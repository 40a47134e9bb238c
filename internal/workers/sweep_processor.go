// internal/workers/sweep_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeCacheSweep = "cache:sweep"
)

// CacheSweepPayload represents the payload for cache sweep jobs. The
// referenced list is the full set of blob filenames still attached to an
// inventory item, captured when the sweep was requested.
type CacheSweepPayload struct {
	CacheDir   string        `json:"cache_dir"`
	Referenced []string      `json:"referenced"`
	MinAge     time.Duration `json:"min_age"`
}

// CacheSweepResult represents the result of a cache sweep
type CacheSweepResult struct {
	FilesScanned   int    `json:"files_scanned"`
	FilesDeleted   int    `json:"files_deleted"`
	ProcessingTime string `json:"processing_time"`
}

// SweepProcessor handles cache sweep tasks
type SweepProcessor struct {
	logger *slog.Logger
}

// NewSweepProcessor creates a new sweep processor
func NewSweepProcessor(logger *slog.Logger) *SweepProcessor {
	return &SweepProcessor{
		logger: logger.With(slog.String("processor", "sweep")),
	}
}

// ProcessCacheSweep deletes photo blobs that no inventory item references
// anymore. Blobs younger than the payload's minimum age are left alone so
// a sweep cannot race an upload that has written its blob but not yet
// committed the item.
func (p *SweepProcessor) ProcessCacheSweep(ctx context.Context, t *asynq.Task) error {
	start := time.Now()

	var payload CacheSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "sweeping photo cache",
		slog.String("cache_dir", payload.CacheDir),
		slog.Int("referenced_blobs", len(payload.Referenced)))

	referenced := make(map[string]struct{}, len(payload.Referenced))
	for _, name := range payload.Referenced {
		referenced[name] = struct{}{}
	}

	var scanned, deleted int
	err := filepath.Walk(payload.CacheDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		scanned++
		if _, ok := referenced[info.Name()]; ok {
			return nil
		}
		if time.Since(info.ModTime()) < payload.MinAge {
			return nil
		}

		if err := os.Remove(path); err != nil {
			p.logger.WarnContext(ctx, "failed to delete orphaned blob",
				slog.String("file", path),
				slog.String("error", err.Error()))
			return nil
		}
		deleted++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk cache directory: %w", err)
	}

	result := CacheSweepResult{
		FilesScanned:   scanned,
		FilesDeleted:   deleted,
		ProcessingTime: time.Since(start).String(),
	}

	p.logger.InfoContext(ctx, "photo cache swept",
		slog.Int("files_scanned", result.FilesScanned),
		slog.Int("files_deleted", result.FilesDeleted),
		slog.String("duration", result.ProcessingTime))

	return nil
}
