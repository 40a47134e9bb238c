// internal/handlers/inventory_handler_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockroom-be/internal/adapters/photocache"
	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
	"github.com/ammerola/stockroom-be/internal/handlers"
	"github.com/ammerola/stockroom-be/test/helpers"
	"github.com/ammerola/stockroom-be/test/mocks"
)

func newTestHandler(t *testing.T, service ports.InventoryService) (*handlers.InventoryHandler, *photocache.Cache) {
	t.Helper()

	photos, err := photocache.New(t.TempDir(), helpers.TestLogger())
	require.NoError(t, err)

	return handlers.NewInventoryHandler(service, photos, 10, helpers.TestLogger()), photos
}

// multipartBody builds a multipart form with optional text fields and an
// optional photo part.
func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("photo", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func cacheFileCount(t *testing.T, photos *photocache.Cache) int {
	t.Helper()
	entries, err := os.ReadDir(photos.Dir())
	require.NoError(t, err)
	return len(entries)
}

func TestInventoryHandler_GetInventory(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		setupMocks     func(*mocks.MockInventoryService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name: "successfully_retrieves_inventory_item",
			id:   "2",
			setupMocks: func(m *mocks.MockInventoryService) {
				m.EXPECT().
					GetByID(gomock.Any(), int64(2)).
					Return(&domain.InventoryItem{
						ID:            2,
						InventoryName: "Drill",
						Description:   "Cordless",
						PhotoFilename: "p1.jpg",
						PhotoURL:      "/inventory/2/photo",
					}, nil)
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var response domain.InventoryItem
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, int64(2), response.ID)
				assert.Equal(t, "Drill", response.InventoryName)
				assert.Equal(t, "/inventory/2/photo", response.PhotoURL)
			},
		},
		{
			name:           "invalid_id_format",
			id:             "not-a-number",
			setupMocks:     func(m *mocks.MockInventoryService) {},
			expectedStatus: http.StatusBadRequest,
			validateBody: func(t *testing.T, body []byte) {
				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "Invalid inventory ID format", response["error"])
				assert.Equal(t, "validation_error", response["kind"])
			},
		},
		{
			name: "item_not_found",
			id:   "99",
			setupMocks: func(m *mocks.MockInventoryService) {
				m.EXPECT().
					GetByID(gomock.Any(), int64(99)).
					Return(nil, fmt.Errorf("inventory item 99: %w", domain.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			validateBody: func(t *testing.T, body []byte) {
				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "Inventory item not found", response["error"])
				assert.Equal(t, "not_found", response["kind"])
			},
		},
		{
			name: "service_error",
			id:   "2",
			setupMocks: func(m *mocks.MockInventoryService) {
				m.EXPECT().
					GetByID(gomock.Any(), int64(2)).
					Return(nil, errors.New("store exploded"))
			},
			expectedStatus: http.StatusInternalServerError,
			validateBody: func(t *testing.T, body []byte) {
				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "Failed to retrieve inventory item", response["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockInventoryService(ctrl)
			handler, _ := newTestHandler(t, mockService)
			tt.setupMocks(mockService)

			req := httptest.NewRequest("GET", "/api/v1/inventory/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()

			handler.GetInventory(w, req)

			resp := w.Result()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}

func TestInventoryHandler_ListInventory(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMocks     func(*mocks.MockInventoryService)
		expectedStatus int
		expectedCount  int
	}{
		{
			name: "lists_in_insertion_order",
			setupMocks: func(m *mocks.MockInventoryService) {
				m.EXPECT().
					List(gomock.Any()).
					Return([]domain.InventoryItem{
						{ID: 1, InventoryName: "Hammer"},
						{ID: 2, InventoryName: "Drill", PhotoURL: "/inventory/2/photo"},
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedCount:  2,
		},
		{
			name:  "q_parameter_switches_to_search",
			query: "?q=drill",
			setupMocks: func(m *mocks.MockInventoryService) {
				m.EXPECT().
					Search(gomock.Any(), "drill").
					Return([]domain.InventoryItem{
						{ID: 2, InventoryName: "Drill"},
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedCount:  1,
		},
		{
			name: "service_error",
			setupMocks: func(m *mocks.MockInventoryService) {
				m.EXPECT().
					List(gomock.Any()).
					Return(nil, errors.New("store exploded"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockInventoryService(ctrl)
			handler, _ := newTestHandler(t, mockService)
			tt.setupMocks(mockService)

			req := httptest.NewRequest("GET", "/api/v1/inventory"+tt.query, nil)
			w := httptest.NewRecorder()

			handler.ListInventory(w, req)

			resp := w.Result()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var response handlers.ListInventoryResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, tt.expectedCount, response.Count)
				assert.Len(t, response.Items, tt.expectedCount)
			}
		})
	}
}

func TestInventoryHandler_CreateInventory_JSON(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*mocks.MockInventoryService)
		expectedStatus int
	}{
		{
			name: "creates_item_from_json",
			body: `{"inventory_name":"Hammer","description":"Claw"}`,
			setupMocks: func(m *mocks.MockInventoryService) {
				m.EXPECT().
					Create(gomock.Any(), "Hammer", "Claw", "").
					Return(&domain.InventoryItem{
						ID:            1,
						InventoryName: "Hammer",
						Description:   "Claw",
					}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing_name_is_rejected",
			body:           `{"description":"nameless"}`,
			setupMocks:     func(m *mocks.MockInventoryService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed_body_is_rejected",
			body:           `{"inventory_name":`,
			setupMocks:     func(m *mocks.MockInventoryService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockInventoryService(ctrl)
			handler, _ := newTestHandler(t, mockService)
			tt.setupMocks(mockService)

			req := httptest.NewRequest("POST", "/api/v1/inventory", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.CreateInventory(w, req)

			assert.Equal(t, tt.expectedStatus, w.Result().StatusCode)
		})
	}
}

func TestInventoryHandler_CreateInventory_Multipart(t *testing.T) {
	t.Run("creates_item_with_photo", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, photos := newTestHandler(t, mockService)

		mockService.EXPECT().
			Create(gomock.Any(), "Drill", "Cordless", gomock.Any()).
			DoAndReturn(func(_ context.Context, name, description, photoFilename string) (*domain.InventoryItem, error) {
				assert.True(t, strings.HasSuffix(photoFilename, "_p1.jpg"))
				return &domain.InventoryItem{
					ID:            2,
					InventoryName: name,
					Description:   description,
					PhotoFilename: photoFilename,
					PhotoURL:      "/inventory/2/photo",
				}, nil
			})

		body, contentType := multipartBody(t, map[string]string{
			"inventory_name": "Drill",
			"description":    "Cordless",
		}, "p1.jpg", []byte("jpeg-bytes"))

		req := httptest.NewRequest("POST", "/api/v1/inventory", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.CreateInventory(w, req)

		assert.Equal(t, http.StatusCreated, w.Result().StatusCode)
		assert.Equal(t, 1, cacheFileCount(t, photos), "blob should land in the cache")

		var response domain.InventoryItem
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "/inventory/2/photo", response.PhotoURL)
	})

	t.Run("multipart_without_photo_part_creates_plain_item", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, photos := newTestHandler(t, mockService)

		mockService.EXPECT().
			Create(gomock.Any(), "Hammer", "", "").
			Return(&domain.InventoryItem{ID: 1, InventoryName: "Hammer"}, nil)

		body, contentType := multipartBody(t, map[string]string{
			"inventory_name": "Hammer",
		}, "", nil)

		req := httptest.NewRequest("POST", "/api/v1/inventory", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.CreateInventory(w, req)

		assert.Equal(t, http.StatusCreated, w.Result().StatusCode)
		assert.Equal(t, 0, cacheFileCount(t, photos))
	})

	t.Run("rejected_create_removes_the_written_blob", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, photos := newTestHandler(t, mockService)

		mockService.EXPECT().
			Create(gomock.Any(), "", "", gomock.Any()).
			Return(nil, fmt.Errorf("%w: inventory_name is required", domain.ErrValidation))

		body, contentType := multipartBody(t, nil, "p1.jpg", []byte("jpeg-bytes"))

		req := httptest.NewRequest("POST", "/api/v1/inventory", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.CreateInventory(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
		assert.Equal(t, 0, cacheFileCount(t, photos), "rejected create must not leave a blob behind")
	})
}

func TestInventoryHandler_UpdateInventory(t *testing.T) {
	t.Run("absent_name_reaches_service_as_nil", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, _ := newTestHandler(t, mockService)

		mockService.EXPECT().
			UpdateFields(gomock.Any(), int64(1), gomock.Any()).
			DoAndReturn(func(_ context.Context, id int64, update domain.FieldUpdate) (*domain.InventoryItem, error) {
				assert.Nil(t, update.InventoryName)
				require.NotNil(t, update.Description)
				assert.Equal(t, "x", *update.Description)
				return &domain.InventoryItem{ID: 1, InventoryName: "Hammer", Description: "x"}, nil
			})

		req := httptest.NewRequest("PUT", "/api/v1/inventory/1", strings.NewReader(`{"description":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.SetPathValue("id", "1")
		w := httptest.NewRecorder()

		handler.UpdateInventory(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)

		var response domain.InventoryItem
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Hammer", response.InventoryName)
		assert.Equal(t, "x", response.Description)
	})

	t.Run("empty_name_is_rejected_before_the_service", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, _ := newTestHandler(t, mockService)

		req := httptest.NewRequest("PUT", "/api/v1/inventory/1", strings.NewReader(`{"inventory_name":""}`))
		req.Header.Set("Content-Type", "application/json")
		req.SetPathValue("id", "1")
		w := httptest.NewRecorder()

		handler.UpdateInventory(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("unknown_id_is_not_found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, _ := newTestHandler(t, mockService)

		mockService.EXPECT().
			UpdateFields(gomock.Any(), int64(9), gomock.Any()).
			Return(nil, fmt.Errorf("inventory item 9: %w", domain.ErrNotFound))

		req := httptest.NewRequest("PUT", "/api/v1/inventory/9", strings.NewReader(`{"description":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.SetPathValue("id", "9")
		w := httptest.NewRecorder()

		handler.UpdateInventory(w, req)

		assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
	})
}

func TestInventoryHandler_ReplacePhoto(t *testing.T) {
	t.Run("replaces_photo", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, photos := newTestHandler(t, mockService)

		mockService.EXPECT().
			ReplacePhoto(gomock.Any(), int64(2), gomock.Any()).
			DoAndReturn(func(_ context.Context, id int64, filename string) (*domain.InventoryItem, error) {
				assert.True(t, strings.HasSuffix(filename, "_p2.jpg"))
				return &domain.InventoryItem{
					ID:            2,
					InventoryName: "Drill",
					PhotoFilename: filename,
					PhotoURL:      "/inventory/2/photo",
				}, nil
			})

		body, contentType := multipartBody(t, nil, "p2.jpg", []byte("new-jpeg-bytes"))

		req := httptest.NewRequest("PUT", "/api/v1/inventory/2/photo", body)
		req.Header.Set("Content-Type", contentType)
		req.SetPathValue("id", "2")
		w := httptest.NewRecorder()

		handler.ReplacePhoto(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Equal(t, 1, cacheFileCount(t, photos))

		var response domain.InventoryItem
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "/inventory/2/photo", response.PhotoURL)
	})

	t.Run("missing_photo_part_is_rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, _ := newTestHandler(t, mockService)

		body, contentType := multipartBody(t, map[string]string{"unrelated": "field"}, "", nil)

		req := httptest.NewRequest("PUT", "/api/v1/inventory/2/photo", body)
		req.Header.Set("Content-Type", contentType)
		req.SetPathValue("id", "2")
		w := httptest.NewRecorder()

		handler.ReplacePhoto(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("unknown_id_removes_the_written_blob", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, photos := newTestHandler(t, mockService)

		mockService.EXPECT().
			ReplacePhoto(gomock.Any(), int64(9), gomock.Any()).
			Return(nil, fmt.Errorf("inventory item 9: %w", domain.ErrNotFound))

		body, contentType := multipartBody(t, nil, "p.jpg", []byte("jpeg-bytes"))

		req := httptest.NewRequest("PUT", "/api/v1/inventory/9/photo", body)
		req.Header.Set("Content-Type", contentType)
		req.SetPathValue("id", "9")
		w := httptest.NewRecorder()

		handler.ReplacePhoto(w, req)

		assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
		assert.Equal(t, 0, cacheFileCount(t, photos))
	})
}

func TestInventoryHandler_ServePhoto(t *testing.T) {
	t.Run("serves_photo_bytes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, photos := newTestHandler(t, mockService)

		filename, err := photos.Save(context.Background(), "p1.jpg", strings.NewReader("jpeg-bytes"))
		require.NoError(t, err)

		mockService.EXPECT().
			PhotoPath(gomock.Any(), int64(2)).
			Return(filepath.Join(photos.Dir(), filename), nil)

		req := httptest.NewRequest("GET", "/inventory/2/photo", nil)
		req.SetPathValue("id", "2")
		w := httptest.NewRecorder()

		handler.ServePhoto(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Equal(t, "jpeg-bytes", w.Body.String())
		assert.Equal(t, "no-cache", w.Result().Header.Get("Cache-Control"))
	})

	t.Run("missing_blob_is_not_found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, _ := newTestHandler(t, mockService)

		mockService.EXPECT().
			PhotoPath(gomock.Any(), int64(2)).
			Return("", fmt.Errorf("photo blob for inventory item 2: %w", domain.ErrNotFound))

		req := httptest.NewRequest("GET", "/inventory/2/photo", nil)
		req.SetPathValue("id", "2")
		w := httptest.NewRecorder()

		handler.ServePhoto(w, req)

		assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
	})
}

func TestInventoryHandler_DeleteInventory(t *testing.T) {
	t.Run("confirmation_references_the_id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, _ := newTestHandler(t, mockService)

		mockService.EXPECT().
			Delete(gomock.Any(), int64(3)).
			Return(nil)

		req := httptest.NewRequest("DELETE", "/api/v1/inventory/3", nil)
		req.SetPathValue("id", "3")
		w := httptest.NewRecorder()

		handler.DeleteInventory(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "inventory item 3 deleted", response["message"])
		assert.Equal(t, float64(3), response["id"])
	})

	t.Run("unknown_id_is_not_found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockInventoryService(ctrl)
		handler, _ := newTestHandler(t, mockService)

		mockService.EXPECT().
			Delete(gomock.Any(), int64(5)).
			Return(fmt.Errorf("inventory item 5: %w", domain.ErrNotFound))

		req := httptest.NewRequest("DELETE", "/api/v1/inventory/5", nil)
		req.SetPathValue("id", "5")
		w := httptest.NewRecorder()

		handler.DeleteInventory(w, req)

		assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
	})
}
