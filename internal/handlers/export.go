// internal/handlers/export.go
package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
)

// JSONExportResponse is the envelope for the JSON export.
type JSONExportResponse struct {
	Inventory []domain.InventoryItem `json:"inventory"`
	Metadata  ExportMetadata         `json:"metadata"`
}

// ExportMetadata describes how the export was produced.
type ExportMetadata struct {
	ExportDate time.Time `json:"export_date"`
	TotalItems int       `json:"total_items"`
	Query      string    `json:"query,omitempty"`
}

// ExportHandler handles export operations
type ExportHandler struct {
	service ports.InventoryService
	logger  *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(service ports.InventoryService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "export")),
	}
}

// ExportExcel handles GET /api/v1/export/excel
func (h *ExportHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	h.logger.InfoContext(ctx, "starting Excel export", slog.String("query", query))

	items, err := h.fetchItems(ctx, query)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to retrieve inventory data", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve data")
		return
	}

	excelData, err := h.generateExcelFile(items)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate Excel file", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to generate Excel file")
		return
	}

	filename := fmt.Sprintf("inventory_export_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(excelData)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if _, err := w.Write(excelData); err != nil {
		h.logger.ErrorContext(ctx, "failed to write Excel response", slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "Excel export completed successfully",
		slog.Int("total_rows", len(items)),
		slog.String("filename", filename))
}

// ExportCSV handles GET /api/v1/export/csv
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	h.logger.InfoContext(ctx, "starting CSV export", slog.String("query", query))

	items, err := h.fetchItems(ctx, query)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to retrieve inventory data", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve data")
		return
	}

	csvData, err := h.generateCSV(items)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate CSV", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to generate CSV")
		return
	}

	filename := fmt.Sprintf("inventory_export_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(csvData)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if _, err := w.Write(csvData); err != nil {
		h.logger.ErrorContext(ctx, "failed to write CSV response", slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "CSV export completed successfully", slog.Int("total_rows", len(items)))
}

// ExportJSON handles GET /api/v1/export/json
func (h *ExportHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	h.logger.InfoContext(ctx, "starting JSON export", slog.String("query", query))

	items, err := h.fetchItems(ctx, query)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to retrieve inventory data", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve data")
		return
	}

	response := JSONExportResponse{
		Inventory: items,
		Metadata: ExportMetadata{
			ExportDate: time.Now(),
			TotalItems: len(items),
			Query:      query,
		},
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal JSON response", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to generate JSON")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(responseData)))

	if _, err := w.Write(responseData); err != nil {
		h.logger.ErrorContext(ctx, "failed to write JSON response", slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "JSON export completed successfully", slog.Int("total_rows", len(items)))
}

// fetchItems returns the rows to export, filtered when a query is present.
func (h *ExportHandler) fetchItems(ctx context.Context, query string) ([]domain.InventoryItem, error) {
	if query != "" {
		return h.service.Search(ctx, query)
	}
	return h.service.List(ctx)
}

var excelHeaders = []string{"ID", "Inventory Name", "Description", "Has Photo", "Photo URL"}

// generateExcelFile creates an Excel file in memory from the data
func (h *ExportHandler) generateExcelFile(items []domain.InventoryItem) ([]byte, error) {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Inventory")
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, header := range excelHeaders {
		cell := headerRow.AddCell()
		cell.Value = header
		cell.GetStyle().Font.Bold = true
		cell.GetStyle().Fill.PatternType = "solid"
		cell.GetStyle().Fill.FgColor = "CCCCCC"
	}

	for i := range items {
		dataRow := sheet.AddRow()
		for _, value := range h.itemToRow(&items[i]) {
			cell := dataRow.AddCell()
			cell.Value = value
		}
	}

	for i := 0; i < len(excelHeaders); i++ {
		sheet.SetColWidth(i, i, 20)
	}

	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		return nil, fmt.Errorf("failed to write Excel file to buffer: %w", err)
	}

	return buffer.Bytes(), nil
}

// generateCSV creates a CSV document in memory from the data
func (h *ExportHandler) generateCSV(items []domain.InventoryItem) ([]byte, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)

	if err := writer.Write(excelHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range items {
		if err := writer.Write(h.itemToRow(&items[i])); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV writer: %w", err)
	}

	return buffer.Bytes(), nil
}

// itemToRow converts an item to export row values
func (h *ExportHandler) itemToRow(item *domain.InventoryItem) []string {
	return []string{
		strconv.FormatInt(item.ID, 10),
		item.InventoryName,
		item.Description,
		h.boolValue(item.HasPhoto()),
		item.PhotoURL,
	}
}

func (h *ExportHandler) boolValue(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}

func (h *ExportHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]string{
		"error":   message,
		"status":  "error",
		"message": message,
	}

	json.NewEncoder(w).Encode(response)
}
