package backup

import (
	"context"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/metrics"
)

// CleanupOldBackups runs the retention sweep: mark stale catalog versions
// deleted, then prune object-store entries older than retentionDays by
// their own last-modified time, independent of catalog state. This may
// remove objects whose catalog rows are still present but aged out; the
// catalog step in the same sweep tombstones those rows too.
func (p *Pipeline) CleanupOldBackups(ctx context.Context, maxVersions, retentionDays int) (CleanupResult, error) {
	count, bytesFreed, err := p.Catalog.CleanupOldVersions(ctx, maxVersions, retentionDays, p.DeviceID)
	if err != nil {
		metrics.CleanupRunsTotal.WithLabelValues("failed").Inc()
		return CleanupResult{}, err
	}

	olderThan := time.Now().UTC().AddDate(0, 0, -retentionDays)
	pruned, err := p.Store.Prune(ctx, p.DeviceID, olderThan)
	if err != nil {
		metrics.CleanupRunsTotal.WithLabelValues("partial").Inc()
		return CleanupResult{VersionsRemoved: count, BytesFreed: bytesFreed}, err
	}

	metrics.CleanupVersionsRemoved.Add(float64(count))
	metrics.CleanupBytesFreed.Add(float64(bytesFreed))
	metrics.CleanupRunsTotal.WithLabelValues("success").Inc()

	return CleanupResult{
		VersionsRemoved: count,
		BytesFreed:      bytesFreed,
		ObjectsPruned:   pruned,
	}, nil
}
