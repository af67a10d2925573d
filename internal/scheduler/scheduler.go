// Package scheduler drives the periodic work that keeps the backup
// pipeline moving without anyone watching it: draining the queue, sweeping
// old versions, and snapshotting the catalog file.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/backup"
	"github.com/vaultwatch/vaultwatch/internal/catalog"
	"github.com/vaultwatch/vaultwatch/internal/logging"
	"github.com/vaultwatch/vaultwatch/internal/metrics"
	"github.com/vaultwatch/vaultwatch/internal/notify"
)

// Config controls the scheduler's three cadences.
type Config struct {
	BackupInterval  time.Duration
	CleanupInterval time.Duration
	SnapshotEvery   time.Duration
	MaxVersions     int
	RetentionDays   int
	QueueBatchSize  int
}

// DefaultConfig returns the intervals named in vaultwatch's operator docs.
func DefaultConfig() Config {
	return Config{
		BackupInterval:  5 * time.Minute,
		CleanupInterval: 24 * time.Hour,
		SnapshotEvery:   6 * time.Hour,
		MaxVersions:     10,
		RetentionDays:   90,
		QueueBatchSize:  20,
	}
}

// Scheduler is the periodic driver. It implements suture.Service: Serve
// blocks, running three independent tickers, until ctx is cancelled.
type Scheduler struct {
	Pipeline *backup.Pipeline
	Catalog  *catalog.Catalog
	Queue    *backup.Queue
	Config   Config
	Notifier *notify.Notifier
}

// New builds a Scheduler with zero-valued Config fields filled in from
// DefaultConfig.
func New(pipeline *backup.Pipeline, cat *catalog.Catalog, queue *backup.Queue, cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.BackupInterval <= 0 {
		cfg.BackupInterval = def.BackupInterval
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.SnapshotEvery <= 0 {
		cfg.SnapshotEvery = def.SnapshotEvery
	}
	if cfg.MaxVersions <= 0 {
		cfg.MaxVersions = def.MaxVersions
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = def.RetentionDays
	}
	if cfg.QueueBatchSize <= 0 {
		cfg.QueueBatchSize = def.QueueBatchSize
	}

	return &Scheduler{Pipeline: pipeline, Catalog: cat, Queue: queue, Config: cfg}
}

// Serve implements suture.Service. It runs until ctx is cancelled, then
// performs one final queue drain before returning.
func (s *Scheduler) Serve(ctx context.Context) error {
	backupTicker := time.NewTicker(s.Config.BackupInterval)
	defer backupTicker.Stop()
	cleanupTicker := time.NewTicker(s.Config.CleanupInterval)
	defer cleanupTicker.Stop()
	snapshotTicker := time.NewTicker(s.Config.SnapshotEvery)
	defer snapshotTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finalDrain()
			return ctx.Err()
		case <-backupTicker.C:
			s.drainQueue(ctx)
		case <-cleanupTicker.C:
			s.runCleanup(ctx)
		case <-snapshotTicker.C:
			s.snapshotCatalog()
		}
	}
}

// String implements fmt.Stringer so suture can name this service in logs.
func (s *Scheduler) String() string {
	return "scheduler"
}

func (s *Scheduler) drainQueue(ctx context.Context) {
	result := s.Pipeline.ProcessQueue(ctx, s.Queue, s.Config.QueueBatchSize)
	if result.AlreadyRunning {
		return
	}
	logging.Info().
		Int("succeeded", len(result.Succeeded)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Msg("queue drain complete")
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	result, err := s.Pipeline.CleanupOldBackups(ctx, s.Config.MaxVersions, s.Config.RetentionDays)
	if err != nil {
		logging.Warn().Err(err).Msg("retention sweep failed")
		return
	}
	logging.Info().
		Int64("versions_removed", result.VersionsRemoved).
		Int64("bytes_freed", result.BytesFreed).
		Int("objects_pruned", result.ObjectsPruned).
		Msg("retention sweep complete")

	if s.Notifier != nil {
		s.Notifier.CleanupCompleted(ctx, result.VersionsRemoved, result.BytesFreed)
	}
}

func (s *Scheduler) snapshotCatalog() {
	if s.Catalog == nil {
		return
	}
	src := s.Catalog.Path()
	if src == "" {
		return
	}
	dest := fmt.Sprintf("%s.%s.snapshot", src, time.Now().UTC().Format("20060102T150405Z"))
	if err := copyFile(src, dest); err != nil {
		logging.Warn().Err(err).Str("dest", dest).Msg("catalog snapshot failed")
		metrics.CleanupRunsTotal.WithLabelValues("snapshot_failed").Inc()
		return
	}
	logging.Info().Str("dest", dest).Msg("catalog snapshot written")
}

// finalDrain runs one last queue drain on shutdown, per the cooperative
// shutdown sequence: stop accepting new work, drain what remains, then
// return.
func (s *Scheduler) finalDrain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result := s.Pipeline.ProcessQueue(ctx, s.Queue, s.Config.QueueBatchSize)
	logging.Info().
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("final queue drain on shutdown")
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
