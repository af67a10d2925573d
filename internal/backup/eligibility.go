package backup

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vaultwatch/vaultwatch/internal/catalog"
	"github.com/vaultwatch/vaultwatch/internal/crypto"
	"github.com/vaultwatch/vaultwatch/internal/logging"
)

// ShouldBackup reports whether path is a candidate for backup at all: it
// must exist as a regular, readable file within the size cap and must not
// match any exclude pattern on its basename or its path relative to the
// process working directory.
func ShouldBackup(path string, filter Filter) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if info.Size() > filter.MaxFileSizeBytes {
		return false
	}
	if !isReadable(path) {
		return false
	}

	base := filepath.Base(path)
	rel := path
	if cwd, err := os.Getwd(); err == nil {
		if r, err := filepath.Rel(cwd, path); err == nil {
			rel = r
		}
	}

	for _, pattern := range filter.ExcludePatterns {
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return false
		}
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return false
		}
	}
	return true
}

// isReadable probes whether the current process can actually read path,
// rather than just stat it: permission bits, ACLs, and mandatory access
// control can all make a regular file unreadable despite existing. A file
// that fails this check is skipped silently instead of failing later as a
// hard error inside BackupFile's os.ReadFile.
func isReadable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// NeedsBackup reports whether path has changed since its latest
// non-deleted catalog record: no prior record, a newer mtime, or a
// different content hash. Any error checking the file or computing its
// hash defaults to true, favoring durability over a missed backup.
func NeedsBackup(ctx context.Context, cat *catalog.Catalog, path, deviceID string) bool {
	latest, err := cat.GetLatest(ctx, path, deviceID)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("needs_backup: catalog lookup failed, backing up")
		return true
	}
	if latest == nil {
		return true
	}

	info, err := os.Stat(path)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("needs_backup: stat failed, backing up")
		return true
	}
	if info.ModTime().After(latest.BackupDate) {
		return true
	}

	hash, err := crypto.HashFile(path)
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("needs_backup: hash failed, backing up")
		return true
	}
	return hash != latest.Checksum
}
