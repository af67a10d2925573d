package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupOldBackupsRemovesExcessVersions(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestPipeline(t)

	path := filepath.Join(t.TempDir(), "a.txt")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i), 'x'}, 0o600))
		require.NoError(t, p.BackupFile(ctx, path))
	}

	result, err := p.CleanupOldBackups(ctx, 1, 36500)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.VersionsRemoved)
}
