// internal/handlers/health_test.go
package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockroom-be/internal/adapters/photocache"
	"github.com/ammerola/stockroom-be/internal/handlers"
	"github.com/ammerola/stockroom-be/test/helpers"
	"github.com/ammerola/stockroom-be/test/mocks"
)

func newHealthFixture(t *testing.T) (*mocks.MockInventoryStore, *photocache.Cache) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	photos, err := photocache.New(t.TempDir(), helpers.TestLogger())
	require.NoError(t, err)

	return mocks.NewMockInventoryStore(ctrl), photos
}

func TestHealthHandler_Health(t *testing.T) {
	t.Run("healthy_without_maintenance", func(t *testing.T) {
		store, photos := newHealthFixture(t)
		store.EXPECT().Count(gomock.Any()).Return(3)

		handler := handlers.NewHealthHandler(store, photos, nil, nil, helpers.LoadTestConfig(), helpers.TestLogger())

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		handler.Health(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Equal(t, "no-cache, no-store, must-revalidate", w.Result().Header.Get("Cache-Control"))

		var health handlers.HealthStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
		assert.Equal(t, "healthy", health.Status)
		assert.Contains(t, health.Services, "store")
		assert.Contains(t, health.Services, "photo_cache")
		assert.NotContains(t, health.Services, "redis", "redis check only runs when maintenance wired it in")
		assert.NotContains(t, health.Services, "asynq")

		assert.Equal(t, float64(3), health.Services["store"].Details["records"])
		assert.NotZero(t, health.System.NumCPU)
	})

	t.Run("degraded_when_cache_dir_missing", func(t *testing.T) {
		store, photos := newHealthFixture(t)
		store.EXPECT().Count(gomock.Any()).Return(0)

		require.NoError(t, os.RemoveAll(photos.Dir()))

		handler := handlers.NewHealthHandler(store, photos, nil, nil, helpers.LoadTestConfig(), helpers.TestLogger())

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		handler.Health(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Result().StatusCode)

		var health handlers.HealthStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
		assert.Equal(t, "degraded", health.Status)
		assert.Equal(t, "unhealthy", health.Services["photo_cache"].Status)
	})

	t.Run("includes_redis_and_asynq_when_wired", func(t *testing.T) {
		store, photos := newHealthFixture(t)
		store.EXPECT().Count(gomock.Any()).Return(1)

		testRedis := helpers.SetupTestRedis(t)
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: testRedis.Server.Addr()})
		t.Cleanup(func() { inspector.Close() })

		handler := handlers.NewHealthHandler(store, photos, testRedis.Client, inspector, helpers.LoadTestConfig(), helpers.TestLogger())

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		handler.Health(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)

		var health handlers.HealthStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
		assert.Equal(t, "healthy", health.Status)
		assert.Equal(t, "healthy", health.Services["redis"].Status)
		assert.Equal(t, "PONG", health.Services["redis"].Details["ping"])
		assert.Contains(t, health.Services, "asynq")
	})

	t.Run("unreachable_redis_degrades_health", func(t *testing.T) {
		store, photos := newHealthFixture(t)
		store.EXPECT().Count(gomock.Any()).Return(1)

		testRedis := helpers.SetupTestRedis(t)
		testRedis.Server.Close()

		handler := handlers.NewHealthHandler(store, photos, testRedis.Client, nil, helpers.LoadTestConfig(), helpers.TestLogger())

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		handler.Health(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Result().StatusCode)

		var health handlers.HealthStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
		assert.Equal(t, "degraded", health.Status)
		assert.Equal(t, "unhealthy", health.Services["redis"].Status)
	})
}

func TestHealthHandler_Readiness(t *testing.T) {
	t.Run("ready_when_cache_dir_exists", func(t *testing.T) {
		store, photos := newHealthFixture(t)

		handler := handlers.NewHealthHandler(store, photos, nil, nil, helpers.LoadTestConfig(), helpers.TestLogger())

		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler.Readiness(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)

		var response struct {
			Ready   bool              `json:"ready"`
			Details map[string]string `json:"details"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Ready)
		assert.Equal(t, "ready", response.Details["photo_cache"])
	})

	t.Run("not_ready_when_cache_dir_missing", func(t *testing.T) {
		store, photos := newHealthFixture(t)

		require.NoError(t, os.RemoveAll(photos.Dir()))

		handler := handlers.NewHealthHandler(store, photos, nil, nil, helpers.LoadTestConfig(), helpers.TestLogger())

		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler.Readiness(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Result().StatusCode)

		var response struct {
			Ready   bool              `json:"ready"`
			Details map[string]string `json:"details"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Ready)
		assert.Equal(t, "not ready", response.Details["photo_cache"])
	})
}
