package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// BackupDirectory walks root depth-first, backing up every eligible
// regular file. Per-file failures are aggregated, never raised, so one
// bad file never aborts the rest of the tree.
func (p *Pipeline) BackupDirectory(ctx context.Context, root string, filter Filter) *DirectoryResult {
	result := newDirectoryResult()

	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.Failed[path] = err
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !ShouldBackup(path, filter) {
			result.Skipped = append(result.Skipped, path)
			return nil
		}
		if !NeedsBackup(ctx, p.Catalog, path, p.DeviceID) {
			result.Skipped = append(result.Skipped, path)
			return nil
		}
		if err := p.BackupFile(ctx, path); err != nil {
			result.Failed[path] = err
			return nil
		}
		result.Succeeded = append(result.Succeeded, path)
		return nil
	})

	return result
}
