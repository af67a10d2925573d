package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwatch/vaultwatch/internal/backup"
	"github.com/vaultwatch/vaultwatch/internal/catalog"
)

type recordingQueue struct {
	mu       sync.Mutex
	enqueued []string
}

func (r *recordingQueue) Enqueue(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued = append(r.enqueued, path)
}

func (r *recordingQueue) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.enqueued...)
}

func newTestMonitor(t *testing.T, q Enqueuer) *Monitor {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "c.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	return &Monitor{
		Catalog:         cat,
		DeviceID:        "dev1",
		Filter:          backup.Filter{MaxFileSizeBytes: 1 << 20},
		DebounceSeconds: 50 * time.Millisecond,
		Queue:           q,
		pending:         make(map[string]time.Time),
	}
}

func TestDebounceCoalescesRepeatedTouches(t *testing.T) {
	q := &recordingQueue{}
	m := newTestMonitor(t, q)

	path := filepath.Join(t.TempDir(), "a.txt")
	m.debounce(path)
	m.debounce(path)
	m.debounce(path)

	time.Sleep(150 * time.Millisecond)

	got := q.snapshot()
	assert.Equal(t, []string{path}, got)
}

func TestInitialScanEnqueuesEligibleChangedFiles(t *testing.T) {
	q := &recordingQueue{}
	m := newTestMonitor(t, q)

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	result := m.InitialScan(context.Background(), []string{dir})
	assert.Equal(t, 1, result.Enqueued)
	assert.Contains(t, q.snapshot(), path)
}

func TestInitialScanSkipsHiddenDirectories(t *testing.T) {
	q := &recordingQueue{}
	m := newTestMonitor(t, q)

	dir := t.TempDir()
	hidden := filepath.Join(dir, ".git")
	require.NoError(t, os.MkdirAll(hidden, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(hidden, "config"), []byte("x"), 0o600))

	result := m.InitialScan(context.Background(), []string{dir})
	assert.Equal(t, 0, result.Enqueued)
}
