// internal/handlers/maintenance.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockroom-be/internal/core/ports"
	"github.com/ammerola/stockroom-be/internal/workers"
)

// MaintenanceHandler queues background maintenance tasks
type MaintenanceHandler struct {
	service     ports.InventoryService
	asynqClient *asynq.Client
	cacheDir    string
	sweepMinAge time.Duration
	logger      *slog.Logger
}

// NewMaintenanceHandler creates a new maintenance handler. A nil asynq
// client means maintenance is disabled and every request answers 503.
func NewMaintenanceHandler(service ports.InventoryService, asynqClient *asynq.Client, cacheDir string, sweepMinAge time.Duration, logger *slog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		service:     service,
		asynqClient: asynqClient,
		cacheDir:    cacheDir,
		sweepMinAge: sweepMinAge,
		logger:      logger.With(slog.String("handler", "maintenance")),
	}
}

// RequestSweep handles POST /api/v1/admin/maintenance/sweep
func (h *MaintenanceHandler) RequestSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.asynqClient == nil {
		h.respondError(w, http.StatusServiceUnavailable, "Maintenance tasks are disabled")
		return
	}

	referenced, err := h.service.ReferencedPhotos(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to collect referenced photos", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue sweep job")
		return
	}

	payload := workers.CacheSweepPayload{
		CacheDir:   h.cacheDir,
		Referenced: referenced,
		MinAge:     h.sweepMinAge,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal CacheSweepPayload", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue sweep job")
		return
	}

	task := asynq.NewTask(workers.TypeCacheSweep, b)
	info, err := h.asynqClient.Enqueue(task,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to enqueue task", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue sweep job")
		return
	}

	h.logger.InfoContext(ctx, "cache sweep queued",
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
		slog.Int("referenced_blobs", len(referenced)))

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": info.ID,
		"status":  "queued",
		"message": "Cache sweep has been queued for processing",
	})
}

func (h *MaintenanceHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *MaintenanceHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
