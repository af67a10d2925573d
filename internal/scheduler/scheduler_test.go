package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/suture/v4"

	"github.com/vaultwatch/vaultwatch/internal/backup"
	"github.com/vaultwatch/vaultwatch/internal/catalog"
	"github.com/vaultwatch/vaultwatch/internal/crypto"
	"github.com/vaultwatch/vaultwatch/internal/objectstore"
)

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "c.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	sealer := crypto.NewSealer("test-passphrase", 0)

	pipeline := &backup.Pipeline{
		Catalog:         cat,
		Store:           objectstore.NewFakeStore(),
		Sealer:          sealer,
		DeviceID:        "dev1",
		CompressionLevel: 6,
		RetryAttempts:   2,
	}
	queue := backup.NewQueue()

	return New(pipeline, cat, queue, cfg), cat
}

func TestSchedulerImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*Scheduler)(nil)
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	s, _ := newTestScheduler(t, Config{
		BackupInterval:  10 * time.Millisecond,
		CleanupInterval: time.Hour,
		SnapshotEvery:   time.Hour,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Serve(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSchedulerDrainsQueueOnBackupTick(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	s, _ := newTestScheduler(t, Config{
		BackupInterval:  5 * time.Millisecond,
		CleanupInterval: time.Hour,
		SnapshotEvery:   time.Hour,
	})
	s.Queue.Enqueue(path)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = s.Serve(ctx)

	latest, err := s.Pipeline.Catalog.GetLatest(context.Background(), path, "dev1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 1, latest.Version)
}

func TestSchedulerSnapshotsCatalogFile(t *testing.T) {
	s, cat := newTestScheduler(t, Config{
		BackupInterval:  time.Hour,
		CleanupInterval: time.Hour,
		SnapshotEvery:   5 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = s.Serve(ctx)

	matches, err := filepath.Glob(cat.Path() + ".*.snapshot")
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}
