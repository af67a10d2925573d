package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwatch/vaultwatch/internal/backup"
	"github.com/vaultwatch/vaultwatch/internal/catalog"
	"github.com/vaultwatch/vaultwatch/internal/crypto"
	"github.com/vaultwatch/vaultwatch/internal/objectstore"
)

func newTestRouter(t *testing.T) (http.Handler, *catalog.Catalog, *backup.Pipeline) {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "c.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	pipeline := &backup.Pipeline{
		Catalog:          cat,
		Store:            objectstore.NewFakeStore(),
		Sealer:           crypto.NewSealer("test-passphrase", 0),
		DeviceID:         "dev1",
		CompressionLevel: 6,
		RetryAttempts:    2,
	}
	queue := backup.NewQueue()

	return NewRouter(cat, pipeline, queue, "dev1", DefaultMiddlewareConfig()), cat, pipeline
}

func TestStatusEndpointReportsEmptyQueue(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestStatsEndpointReportsZeroForEmptyCatalog(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchEndpointRejectsEmptyQuery(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidationError, resp.Error.Code)
}

func TestVersionsEndpointReturnsEmptyListForUnknownFile(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/versions?file_path=/tmp/nope.txt", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartRestoreRejectsMissingBody(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/restore/", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartRestoreThenPollReachesDone(t *testing.T) {
	router, cat, pipeline := newTestRouter(t)

	srcPath := filepath.Join(t.TempDir(), "watched.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("hello vaultwatch"), 0o600))
	require.NoError(t, pipeline.BackupFile(context.Background(), srcPath))

	latest, err := cat.GetLatest(context.Background(), srcPath, "dev1")
	require.NoError(t, err)

	body, err := json.Marshal(RestoreRequest{RecordID: latest.ID, DestPath: filepath.Join(t.TempDir(), "out.txt")})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/restore/", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	jobID, _ := data["job_id"].(string)
	require.NotEmpty(t, jobID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pollReq := httptest.NewRequest(http.MethodGet, "/api/v1/restore/"+jobID, nil)
		pollRec := httptest.NewRecorder()
		router.ServeHTTP(pollRec, pollReq)
		var pollResp APIResponse
		require.NoError(t, json.Unmarshal(pollRec.Body.Bytes(), &pollResp))
		state, _ := pollResp.Data.(map[string]interface{})
		if done, _ := state["done"].(bool); done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("restore job did not complete in time")
}
