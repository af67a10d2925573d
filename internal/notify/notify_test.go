package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupSucceededPostsPayloadWhenEnabled(t *testing.T) {
	var mu sync.Mutex
	var received Payload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := New(Config{WebhookURL: server.URL, OnSuccess: true}, "dev1")
	n.BackupSucceeded(context.Background(), "/tmp/file.txt", 3)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, EventBackupSuccess, received.Event)
	assert.Equal(t, "dev1", received.DeviceID)
}

func TestBackupSucceededSkipsWhenDisabled(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := New(Config{WebhookURL: server.URL, OnSuccess: false}, "dev1")
	n.BackupSucceeded(context.Background(), "/tmp/file.txt", 1)

	assert.False(t, called)
}

func TestSendWithoutWebhookURLIsNoop(t *testing.T) {
	n := New(Config{OnFailure: true}, "dev1")
	assert.NotPanics(t, func() {
		n.BackupFailed(context.Background(), "/tmp/file.txt", errors.New("boom"))
	})
}

func TestCleanupCompletedSkipsWhenDisabled(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	n := New(Config{WebhookURL: server.URL, OnCleanup: false}, "dev1")
	n.CleanupCompleted(context.Background(), 5, 1024)

	assert.False(t, called)
}
