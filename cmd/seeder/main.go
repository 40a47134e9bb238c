package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"
)

// SeedItem is one workbook row ready to be posted to the API.
type SeedItem struct {
	InventoryName string
	Description   string
	PhotoPath     string
}

// WorkbookExtractor parses inventory workbooks
type WorkbookExtractor struct {
	logger    *slog.Logger
	photosDir string
}

func NewWorkbookExtractor(photosDir string, logger *slog.Logger) *WorkbookExtractor {
	return &WorkbookExtractor{
		logger:    logger,
		photosDir: photosDir,
	}
}

// ExtractItemsFromWorkbook reads rows from the first sheet of an xlsx
// workbook. The header row names the columns; only the name column is
// required.
func (e *WorkbookExtractor) ExtractItemsFromWorkbook(path string) ([]SeedItem, error) {
	e.logger.Info("Processing workbook", slog.String("file", path))

	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in workbook")
	}
	sheet := file.Sheets[0]

	var (
		items    []SeedItem
		nameCol  = -1
		descCol  = -1
		photoCol = -1
		rowIdx   int
	)

	err = sheet.ForEachRow(func(r *xlsx.Row) error {
		rowIdx++

		// Get cells by index
		get := func(i int) string {
			if i < 0 {
				return ""
			}
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			if s, err := c.FormattedValue(); err == nil {
				return strings.TrimSpace(s)
			}
			return strings.TrimSpace(c.String())
		}

		// Header row maps the columns
		if rowIdx == 1 {
			for i := 0; i < 10; i++ {
				switch strings.ToLower(get(i)) {
				case "inventory name", "name", "inventory_name":
					nameCol = i
				case "description":
					descCol = i
				case "photo", "photo file", "photo_path":
					photoCol = i
				}
			}
			if nameCol == -1 {
				return fmt.Errorf("no inventory name column in header row")
			}
			return nil
		}

		name := get(nameCol)
		description := normalizeText(get(descCol))
		if name == "" && description == "" {
			return nil
		}

		// Rows that only carry a description still get a usable name
		if name == "" {
			name = generateItemName(description)
		}

		item := SeedItem{
			InventoryName: name,
			Description:   description,
		}

		// Resolve the photo cell against the photos directory. A missing
		// file downgrades the row to a photoless create.
		if photo := get(photoCol); photo != "" {
			photoPath := photo
			if e.photosDir != "" && !filepath.IsAbs(photo) {
				photoPath = filepath.Join(e.photosDir, photo)
			}
			if _, err := os.Stat(photoPath); err == nil {
				item.PhotoPath = photoPath
			} else {
				e.logger.Warn("Photo file not found, seeding without it",
					slog.String("item", name),
					slog.String("photo", photoPath))
			}
		}

		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	e.logger.Info("Extracted items from workbook",
		slog.String("file", path),
		slog.Int("count", len(items)))

	return items, nil
}

// APIClient posts seed items to the running inventory API. Records live in
// the API's memory, so seeding has to go through HTTP rather than storage.
type APIClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewAPIClient(baseURL string, logger *slog.Logger) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Ping verifies the API is reachable before the run starts.
func (c *APIClient) Ping() error {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to reach API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("API reported degraded health",
			slog.Int("status", resp.StatusCode))
	}
	return nil
}

// CreateItem posts one item and returns its assigned ID. Items with a
// photo go up as multipart, the rest as JSON.
func (c *APIClient) CreateItem(item SeedItem) (int64, error) {
	var (
		body        io.Reader
		contentType string
	)

	if item.PhotoPath != "" {
		buf, ct, err := c.buildMultipart(item)
		if err != nil {
			return 0, err
		}
		body = buf
		contentType = ct
	} else {
		payload, err := json.Marshal(map[string]string{
			"inventory_name": item.InventoryName,
			"description":    item.Description,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to marshal item: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	resp, err := c.client.Post(c.baseURL+"/api/v1/inventory", contentType, body)
	if err != nil {
		return 0, fmt.Errorf("failed to post item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, fmt.Errorf("failed to decode create response: %w", err)
	}

	return created.ID, nil
}

func (c *APIClient) buildMultipart(item SeedItem) (*bytes.Buffer, string, error) {
	f, err := os.Open(item.PhotoPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open photo: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	mw.WriteField("inventory_name", item.InventoryName)
	mw.WriteField("description", item.Description)

	part, err := mw.CreateFormFile("photo", filepath.Base(item.PhotoPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to copy photo: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return &buf, mw.FormDataContentType(), nil
}

// Helper functions

func normalizeText(s string) string {
	s = regexp.MustCompile(`\s+`).ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func generateItemName(description string) string {
	// Take first 60 characters or first sentence
	name := description
	if len(name) > 60 {
		name = name[:60]
		if idx := strings.Index(description[:60], "."); idx > 0 {
			name = description[:idx]
		}
	}

	name = normalizeText(name)

	if name == "" {
		return "Unknown Item"
	}

	// Title case
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(string(word[0])) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

func main() {
	// Parse flags
	var (
		workbooksDir = flag.String("workbooks", "./workbooks", "Directory containing xlsx workbooks")
		photosDir    = flag.String("photos", "", "Directory holding photo files referenced by workbooks")
		apiURL       = flag.String("api", getEnv("API_URL", "http://localhost:8080"), "Base URL of the inventory API")
		stateFile    = flag.String("state", "./.seed_state.json", "State file for tracking progress")
		logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun       = flag.Bool("dry-run", false, "Preview items without calling the API")
		force        = flag.Bool("force", false, "Reprocess all workbooks")
	)
	flag.Parse()

	// Setup logging
	var slogLevel slog.Level
	switch *logLevel {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(logger)

	// API connection
	client := NewAPIClient(*apiURL, logger)

	if !*dryRun {
		if err := client.Ping(); err != nil {
			logger.Error("Failed to connect to API", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Create extractor
	extractor := NewWorkbookExtractor(*photosDir, logger)

	// Load state
	type SeederState struct {
		ProcessedWorkbooks []string  `json:"processed_workbooks"`
		ProcessedCount     int       `json:"processed_count"`
		LastUpdate         time.Time `json:"last_update"`
	}

	var state SeederState
	if !*force {
		if stateData, err := os.ReadFile(*stateFile); err == nil {
			json.Unmarshal(stateData, &state)
		}
	}

	// Process workbooks
	workbooks, err := filepath.Glob(filepath.Join(*workbooksDir, "*.xlsx"))
	if err != nil {
		logger.Error("Failed to find workbooks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	totalProcessed := 0
	totalItems := 0
	failedWorkbooks := []string{}
	successDetails := map[string]int{}

	for i, workbook := range workbooks {
		name := strings.TrimSuffix(filepath.Base(workbook), ".xlsx")

		// Progress indicator
		fmt.Printf("PROGRESS: Processing %d/%d: %s\n", i+1, len(workbooks), name)

		// Check if already processed
		if !*force {
			processed := false
			for _, pn := range state.ProcessedWorkbooks {
				if pn == name {
					processed = true
					break
				}
			}
			if processed {
				logger.Info("Skipping already processed workbook", slog.String("workbook", name))
				continue
			}
		}

		// Extract items
		items, err := extractor.ExtractItemsFromWorkbook(workbook)
		if err != nil {
			logger.Error("Failed to extract items",
				slog.String("workbook", name),
				slog.String("error", err.Error()))
			failedWorkbooks = append(failedWorkbooks, name)
			fmt.Printf("ERROR: Failed to process workbook:%s - %v\n", name, err)
			continue
		}

		if len(items) == 0 {
			logger.Warn("No items extracted",
				slog.String("workbook", name))
			fmt.Printf("WARNING: No items found in workbook:%s\n", name)
			failedWorkbooks = append(failedWorkbooks, fmt.Sprintf("%s (0 items)", name))
			continue
		}

		// Post to the API
		created := 0
		if !*dryRun {
			for _, item := range items {
				id, err := client.CreateItem(item)
				if err != nil {
					logger.Error("Failed to create item",
						slog.String("workbook", name),
						slog.String("item", item.InventoryName),
						slog.String("error", err.Error()))
					continue
				}
				logger.Debug("Item created",
					slog.Int64("id", id),
					slog.String("item", item.InventoryName))
				created++
			}
			if created == 0 {
				failedWorkbooks = append(failedWorkbooks, name)
				fmt.Printf("ERROR: Failed to seed workbook:%s - no items created\n", name)
				continue
			}
		} else {
			created = len(items)
		}

		fmt.Printf("SUCCESS: Processed workbook:%s - %d items\n", name, created)
		successDetails[name] = created

		totalProcessed++
		totalItems += created

		// Update state
		state.ProcessedWorkbooks = append(state.ProcessedWorkbooks, name)
		state.ProcessedCount = len(state.ProcessedWorkbooks)
		state.LastUpdate = time.Now()

		// Save state periodically
		if !*dryRun && i%10 == 0 {
			stateData, _ := json.MarshalIndent(state, "", "  ")
			os.WriteFile(*stateFile, stateData, 0644)
		}
	}

	// Save final state
	if !*dryRun {
		stateData, _ := json.MarshalIndent(state, "", "  ")
		os.WriteFile(*stateFile, stateData, 0644)
	}

	// Summary
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("📊 SEEDING OPERATION SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total Workbooks Processed: %d\n", totalProcessed)
	fmt.Printf("Total Items Created: %d\n", totalItems)
	if totalProcessed > 0 {
		fmt.Printf("Average Items per Workbook: %.1f\n", float64(totalItems)/float64(totalProcessed))
	}

	// Show successful extractions
	if len(successDetails) > 0 {
		fmt.Printf("\n✅ Successfully Processed (%d workbooks):\n", len(successDetails))
		for wb, count := range successDetails {
			fmt.Printf("  - %s: %d items\n", wb, count)
		}
	}

	if len(failedWorkbooks) > 0 {
		fmt.Printf("\n⚠️  Failed/Empty Workbooks (%d):\n", len(failedWorkbooks))
		for _, wb := range failedWorkbooks {
			fmt.Printf("  - %s\n", wb)
		}
	}

	logger.Info("Seed operation completed",
		slog.Int("workbooks_processed", totalProcessed),
		slog.Int("items_created", totalItems),
		slog.Int("failed_workbooks", len(failedWorkbooks)))

	if *dryRun {
		fmt.Println("\n[DRY RUN] No items were posted to the API")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
