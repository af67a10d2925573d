package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwatch/vaultwatch/internal/catalog"
)

func TestShouldBackupRejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o600))

	filter := Filter{MaxFileSizeBytes: 10}
	assert.False(t, ShouldBackup(path, filter))
}

func TestShouldBackupRejectsExcludedBasename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scratch.tmp")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	filter := Filter{MaxFileSizeBytes: 1 << 20, ExcludePatterns: []string{"*.tmp"}}
	assert.False(t, ShouldBackup(path, filter))
}

func TestShouldBackupAcceptsEligibleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	filter := Filter{MaxFileSizeBytes: 1 << 20, ExcludePatterns: []string{"*.tmp"}}
	assert.True(t, ShouldBackup(path, filter))
}

func TestShouldBackupRejectsUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses file permission bits")
	}
	path := filepath.Join(t.TempDir(), "locked.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o000))

	filter := Filter{MaxFileSizeBytes: 1 << 20}
	assert.False(t, ShouldBackup(path, filter))
}

func TestShouldBackupRejectsMissingFile(t *testing.T) {
	filter := Filter{MaxFileSizeBytes: 1 << 20}
	assert.False(t, ShouldBackup(filepath.Join(t.TempDir(), "missing.txt"), filter))
}

func TestNeedsBackupTrueWhenNoPriorRecord(t *testing.T) {
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "c.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	assert.True(t, NeedsBackup(context.Background(), cat, "/some/path.txt", "dev1"))
}
