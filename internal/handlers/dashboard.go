package handlers

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ammerola/stockroom-be/internal/adapters/photocache"
	"github.com/ammerola/stockroom-be/internal/core/ports"
)

// recentItemsLimit caps how many records the dashboard tail returns.
const recentItemsLimit = 10

// DashboardHandler handles dashboard operations
type DashboardHandler struct {
	service ports.InventoryService
	photos  *photocache.Cache
	logger  *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service ports.InventoryService, photos *photocache.Cache, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		photos:  photos,
		logger:  logger.With(slog.String("handler", "dashboard")),
	}
}

// GetDashboard handles GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dashboard, err := h.loadDashboardData(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load dashboard",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	h.respondJSON(w, http.StatusOK, dashboard)
}

func (h *DashboardHandler) loadDashboardData(ctx context.Context) (*DashboardData, error) {
	dashboard := &DashboardData{
		Timestamp: time.Now(),
	}

	items, err := h.service.List(ctx)
	if err != nil {
		return nil, err
	}

	// Summary statistics over the record snapshot
	referenced := make(map[string]bool)
	dashboard.Summary.TotalItems = len(items)
	for _, item := range items {
		if item.HasPhoto() {
			dashboard.Summary.ItemsWithPhoto++
			referenced[item.PhotoFilename] = true
		} else {
			dashboard.Summary.ItemsWithoutPhoto++
		}
	}

	// Cache blob statistics. Orphans are expected after deletes and photo
	// replacements; a missing blob means the file disappeared out of band.
	cache, err := h.loadCacheStats(ctx, referenced)
	if err != nil {
		return nil, err
	}
	dashboard.Cache = cache

	// Most recently created records. The snapshot is in creation order, so
	// the tail is the newest.
	start := len(items) - recentItemsLimit
	if start < 0 {
		start = 0
	}
	for _, item := range items[start:] {
		dashboard.RecentItems = append(dashboard.RecentItems, RecentItem{
			ID:            item.ID,
			InventoryName: item.InventoryName,
			HasPhoto:      item.HasPhoto(),
			PhotoURL:      item.PhotoURL,
		})
	}

	return dashboard, nil
}

// loadCacheStats walks the photo cache directory once and classifies every
// blob against the set of filenames records currently point at.
func (h *DashboardHandler) loadCacheStats(ctx context.Context, referenced map[string]bool) (CacheStats, error) {
	stats := CacheStats{}

	onDisk := make(map[string]bool)
	err := filepath.WalkDir(h.photos.Dir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		name := d.Name()
		onDisk[name] = true
		stats.BlobsTotal++
		stats.TotalSizeBytes += info.Size()
		if !referenced[name] {
			stats.BlobsOrphaned++
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		h.logger.WarnContext(ctx, "photo cache walk failed",
			slog.String("dir", h.photos.Dir()),
			slog.String("error", err.Error()))
		return stats, err
	}

	for name := range referenced {
		if !onDisk[name] {
			stats.RecordsMissingBlob++
		}
	}

	return stats, nil
}

// Type definitions

type DashboardData struct {
	Summary     DashboardSummary `json:"summary"`
	Cache       CacheStats       `json:"cache"`
	RecentItems []RecentItem     `json:"recent_items"`
	Timestamp   time.Time        `json:"timestamp"`
}

type DashboardSummary struct {
	TotalItems        int `json:"total_items"`
	ItemsWithPhoto    int `json:"items_with_photo"`
	ItemsWithoutPhoto int `json:"items_without_photo"`
}

type CacheStats struct {
	BlobsTotal         int   `json:"blobs_total"`
	BlobsOrphaned      int   `json:"blobs_orphaned"`
	RecordsMissingBlob int   `json:"records_missing_blob"`
	TotalSizeBytes     int64 `json:"total_size_bytes"`
}

type RecentItem struct {
	ID            int64  `json:"id"`
	InventoryName string `json:"inventory_name"`
	HasPhoto      bool   `json:"has_photo"`
	PhotoURL      string `json:"photo_url,omitempty"`
}

// Helper methods

func (h *DashboardHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *DashboardHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
