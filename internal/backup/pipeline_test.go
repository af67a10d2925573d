package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwatch/vaultwatch/internal/catalog"
	"github.com/vaultwatch/vaultwatch/internal/crypto"
	"github.com/vaultwatch/vaultwatch/internal/objectstore"
)

func newTestPipeline(t *testing.T) (*Pipeline, *catalog.Catalog, *objectstore.FakeStore) {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "vaultwatch.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	store := objectstore.NewFakeStore()
	sealer := crypto.NewSealer("test-passphrase", 1000)

	return &Pipeline{
		Catalog:          cat,
		Store:            store,
		Sealer:           sealer,
		DeviceID:         "dev1",
		CompressionLevel: 6,
		RetryAttempts:    1,
	}, cat, store
}

func TestBackupFileThenRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, cat, _ := newTestPipeline(t)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "notes.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("hello vaultwatch"), 0o600))

	require.NoError(t, p.BackupFile(ctx, srcPath))

	latest, err := cat.GetLatest(ctx, srcPath, "dev1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 1, latest.Version)

	destPath := filepath.Join(t.TempDir(), "restored.txt")
	var steps []ProgressStep
	err = p.RestoreByID(ctx, latest.ID, destPath, func(percent int, step ProgressStep, message string) {
		steps = append(steps, step)
	})
	require.NoError(t, err)

	got, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, "hello vaultwatch", string(got))
	assert.Contains(t, steps, StepComplete)
}

func TestRestoreByIDFailsIntegrityOnTamperedObject(t *testing.T) {
	ctx := context.Background()
	p, cat, store := newTestPipeline(t)

	srcPath := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("original content"), 0o600))
	require.NoError(t, p.BackupFile(ctx, srcPath))

	latest, err := cat.GetLatest(ctx, srcPath, "dev1")
	require.NoError(t, err)

	ciphertext, err := store.Get(ctx, latest.BlobName)
	require.NoError(t, err)
	tampered := append([]byte(nil), ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF
	require.NoError(t, store.Put(ctx, latest.BlobName, tampered, objectstore.Metadata{}, true))

	err = p.RestoreByID(ctx, latest.ID, filepath.Join(t.TempDir(), "out.txt"), nil)
	assert.ErrorIs(t, err, crypto.ErrIntegrity)
}

func TestBackupFileRecordsErrorStatusOnMissingFile(t *testing.T) {
	ctx := context.Background()
	p, cat, _ := newTestPipeline(t)

	missing := filepath.Join(t.TempDir(), "nope.txt")
	err := p.BackupFile(ctx, missing)
	assert.Error(t, err)

	paths, err := cat.FilesNeedingBackup(ctx, "dev1")
	require.NoError(t, err)
	assert.Contains(t, paths, missing)
}

func TestSecondBackupIncrementsVersion(t *testing.T) {
	ctx := context.Background()
	p, cat, _ := newTestPipeline(t)

	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))
	require.NoError(t, p.BackupFile(ctx, path))

	require.NoError(t, os.WriteFile(path, []byte("v2 content"), 0o600))
	require.NoError(t, p.BackupFile(ctx, path))

	versions, err := cat.GetVersions(ctx, path, "dev1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
}
