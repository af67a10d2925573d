package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceMonitorRecordsStats(t *testing.T) {
	pm := newPerformanceMonitor(10, 0)
	pm.record("GET", "/api/v1/status", 5*time.Millisecond, 200)
	pm.record("GET", "/api/v1/status", 15*time.Millisecond, 200)

	stats := pm.stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "GET /api/v1/status", stats[0].Path)
	assert.Equal(t, int64(2), stats[0].RequestCount)
	assert.Equal(t, int64(15), stats[0].P95DurationMS)
}

func TestPerformanceMonitorEvictsOldestBeyondWindow(t *testing.T) {
	pm := newPerformanceMonitor(2, 0)
	pm.record("GET", "/a", time.Millisecond, 200)
	pm.record("GET", "/a", time.Millisecond, 200)
	pm.record("GET", "/a", time.Millisecond, 200)

	pm.mu.RLock()
	defer pm.mu.RUnlock()
	assert.Len(t, pm.samples, 2)
}

func TestPerformanceMonitorTrackWrapsHandler(t *testing.T) {
	pm := newPerformanceMonitor(10, 0)
	handler := pm.Track(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	stats := pm.stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "GET /api/v1/stats", stats[0].Path)
}
