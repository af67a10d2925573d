package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaultwatch/vaultwatch/internal/api"
	"github.com/vaultwatch/vaultwatch/internal/backup"
	"github.com/vaultwatch/vaultwatch/internal/lifecycle"
	"github.com/vaultwatch/vaultwatch/internal/logging"
	"github.com/vaultwatch/vaultwatch/internal/monitor"
	"github.com/vaultwatch/vaultwatch/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the backup agent: watch, back up, and serve the dashboard",
	RunE:  runAgent,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	pipeline := buildPipeline(cfg, cat, store)
	queue := backup.NewQueue()

	mon := &monitor.Monitor{
		Catalog:         cat,
		DeviceID:        cfg.Device.ID,
		Filter:          backup.Filter{MaxFileSizeBytes: int64(cfg.Backup.MaxFileSizeMB) << 20, ExcludePatterns: cfg.Monitor.ExcludePatterns},
		DebounceSeconds: cfg.Monitor.DebounceSeconds,
		Queue:           queue,
	}

	scan := mon.InitialScan(context.Background(), cfg.Monitor.WatchedDirectories)
	logging.Info().Int("enqueued", scan.Enqueued).Int("errors", len(scan.Errors)).Msg("initial directory scan complete")

	schedCfg := scheduler.Config{
		BackupInterval:  time.Duration(cfg.Scheduler.BackupIntervalMinutes) * time.Minute,
		CleanupInterval: time.Duration(cfg.Scheduler.CleanupIntervalHours) * time.Hour,
		SnapshotEvery:   time.Duration(cfg.Scheduler.SnapshotIntervalHours) * time.Hour,
		MaxVersions:     cfg.Retention.MaxVersionsPerFile,
		RetentionDays:   cfg.Retention.RetentionDays,
		QueueBatchSize:  cfg.Backup.BatchSize,
	}
	sched := scheduler.New(pipeline, cat, queue, schedCfg)
	sched.Notifier = pipeline.Notifier

	router := api.NewRouter(cat, pipeline, queue, cfg.Device.ID, api.DefaultMiddlewareConfig())
	apiAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	apiServer := api.NewServer(apiAddr, router, 10*time.Second)

	tree := lifecycle.NewTree(lifecycle.DefaultTreeConfig())
	tree.AddWatchService(monitor.NewService(mon, cfg.Monitor.WatchedDirectories))
	tree.AddSchedulerService(sched)
	tree.AddAPIService(apiServer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("device_id", cfg.Device.ID).Str("api_addr", apiAddr).Msg("vaultwatch agent starting")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutdown requested, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
	}

	logging.Info().Msg("vaultwatch agent stopped")
	return nil
}
