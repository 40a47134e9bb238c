// internal/handlers/import.go
package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockroom-be/internal/core/ports"
)

// maxImportErrors caps how many per-row failures the summary reports.
const maxImportErrors = 20

// importRow is one parsed spreadsheet row before it becomes a record.
type importRow struct {
	line        int
	name        string
	description string
}

// ImportSummary is the response body for a completed import.
type ImportSummary struct {
	TotalRows int      `json:"total_rows"`
	Created   int      `json:"created"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// ImportHandler handles import operations. Imports run synchronously: the
// record store lives in this process, so there is no worker that could
// apply the rows later.
type ImportHandler struct {
	service      ports.InventoryService
	logger       *slog.Logger
	maxFileBytes int64
}

// NewImportHandler creates a new import handler
func NewImportHandler(service ports.InventoryService, logger *slog.Logger, maxFileMB int64) *ImportHandler {
	return &ImportHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "import")),
		maxFileBytes: maxFileMB << 20,
	}
}

// ImportExcel handles POST /api/v1/import/excel
func (h *ImportHandler) ImportExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, header, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	// Validate file type
	contentType := header.Header.Get("Content-Type")
	if contentType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" &&
		contentType != "application/vnd.ms-excel" &&
		contentType != "application/octet-stream" {
		h.respondError(w, http.StatusBadRequest, "Only Excel files are allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read upload",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	rows, err := h.parseExcel(data)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary := h.createRows(r, rows)

	h.logger.InfoContext(ctx, "excel import completed",
		slog.String("filename", header.Filename),
		slog.Int("created", summary.Created),
		slog.Int("failed", summary.Failed))

	h.respondJSON(w, http.StatusOK, summary)
}

// ImportCSV handles POST /api/v1/import/csv
func (h *ImportHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, header, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	rows, err := h.parseCSV(file)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary := h.createRows(r, rows)

	h.logger.InfoContext(ctx, "csv import completed",
		slog.String("filename", header.Filename),
		slog.Int("created", summary.Created),
		slog.Int("failed", summary.Failed))

	h.respondJSON(w, http.StatusOK, summary)
}

// formFile parses the multipart form and pulls out the "file" field. It
// writes the error response itself so callers can just return.
func (h *ImportHandler) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileBytes)
	if err := r.ParseMultipartForm(h.maxFileBytes); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required")
		return nil, nil, false
	}

	return file, header, true
}

// parseExcel reads rows from the first sheet. The first row must be a
// header naming at least an inventory name column.
func (h *ImportHandler) parseExcel(data []byte) ([]importRow, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}

	if len(file.Sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	sheet := file.Sheets[0]

	var (
		rows    []importRow
		columns *importColumns
		rowIdx  int
	)

	err = sheet.ForEachRow(func(r *xlsx.Row) error {
		rowIdx++

		get := func(i int) string {
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			return strings.TrimSpace(c.String())
		}

		// First row is the header
		if columns == nil {
			var header []string
			for i := 0; i < 8; i++ {
				header = append(header, get(i))
			}
			cols, err := mapImportColumns(header)
			if err != nil {
				return err
			}
			columns = cols
			return nil
		}

		row := importRow{line: rowIdx, name: get(columns.name)}
		if columns.description >= 0 {
			row.description = get(columns.description)
		}
		if row.name == "" && row.description == "" {
			return nil // skip blank rows
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// parseCSV reads rows from a CSV stream with the same header contract as
// the Excel path.
func (h *ImportHandler) parseCSV(src io.Reader) ([]importRow, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1

	var (
		rows    []importRow
		columns *importColumns
		rowIdx  int
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rowIdx++

		get := func(i int) string {
			if i < 0 || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		if columns == nil {
			cols, err := mapImportColumns(record)
			if err != nil {
				return nil, err
			}
			columns = cols
			continue
		}

		row := importRow{line: rowIdx, name: get(columns.name), description: get(columns.description)}
		if row.name == "" && row.description == "" {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// importColumns holds the resolved header indexes. description is -1 when
// the file has no description column.
type importColumns struct {
	name        int
	description int
}

// mapImportColumns resolves header cells to column indexes. The name column
// is required; everything else is optional.
func mapImportColumns(header []string) (*importColumns, error) {
	cols := &importColumns{name: -1, description: -1}
	for i, cell := range header {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "inventory name", "name", "inventory_name":
			cols.name = i
		case "description":
			cols.description = i
		}
	}
	if cols.name == -1 {
		return nil, errors.New(`header row must contain an "Inventory Name" column`)
	}
	return cols, nil
}

// createRows feeds parsed rows through the service one at a time. A bad row
// fails alone; the rest of the file still imports.
func (h *ImportHandler) createRows(r *http.Request, rows []importRow) ImportSummary {
	ctx := r.Context()
	summary := ImportSummary{TotalRows: len(rows)}

	for _, row := range rows {
		if _, err := h.service.Create(ctx, row.name, row.description, ""); err != nil {
			summary.Failed++
			if len(summary.Errors) < maxImportErrors {
				summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: %s", row.line, err))
			}
			continue
		}
		summary.Created++
	}

	return summary
}

// Helper methods

func (h *ImportHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ImportHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
