// Package config loads vaultwatch's layered configuration: built-in
// defaults, an optional YAML file, then environment variables, with
// environment variables winning. Secrets never live in the YAML file.
package config

import (
	"fmt"
	"time"
)

// Config is the full, validated configuration passed explicitly to every
// constructor in the agent. Nothing in internal/backup, internal/monitor,
// internal/catalog, or internal/objectstore reads a process-global; only
// collaborators (cmd/vaultwatchd, internal/api) may.
type Config struct {
	Device    DeviceConfig    `koanf:"device"`
	Monitor   MonitorConfig   `koanf:"monitor"`
	Backup    BackupConfig    `koanf:"backup"`
	Retention RetentionConfig `koanf:"retention"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Database  DatabaseConfig  `koanf:"database"`
	Azure     AzureConfig     `koanf:"azure"`
	Logging   LoggingConfig   `koanf:"logging"`
	Server    ServerConfig    `koanf:"server"`
	Notify    NotifyConfig    `koanf:"notify"`
}

// DeviceConfig identifies this agent instance within the object store's key
// hierarchy and the catalog's per-device rows.
type DeviceConfig struct {
	ID string `koanf:"id"`
}

// MonitorConfig governs the filesystem watcher in internal/monitor.
type MonitorConfig struct {
	WatchedDirectories []string      `koanf:"watched_directories"`
	ExcludePatterns    []string      `koanf:"exclude_patterns"`
	DebounceSeconds    time.Duration `koanf:"debounce_seconds"`
}

// BackupConfig governs per-file eligibility and the backup pipeline.
type BackupConfig struct {
	MaxFileSizeMB     int    `koanf:"max_file_size_mb"`
	CompressionLevel  int    `koanf:"compression_level"`
	BatchSize         int    `koanf:"batch_size"`
	RetryAttempts     int    `koanf:"retry_attempts"`
	EncryptionKey     string `koanf:"-"` // BACKUP_ENCRYPTION_KEY, env-only
	KeyDerivationIter int    `koanf:"key_derivation_iterations"`
	UploadLimitKBPerS int    `koanf:"upload_limit_kbps"` // 0 disables throttling
}

// RetentionConfig governs the retention sweep in internal/backup.
type RetentionConfig struct {
	MaxVersionsPerFile int `koanf:"max_versions_per_file"`
	RetentionDays      int `koanf:"retention_days"`
}

// SchedulerConfig governs the periodic driver in internal/scheduler.
type SchedulerConfig struct {
	BackupIntervalMinutes int `koanf:"backup_interval_minutes"`
	CleanupIntervalHours  int `koanf:"cleanup_interval_hours"`
	SnapshotIntervalHours int `koanf:"snapshot_interval_hours"`
}

// DatabaseConfig points at the local catalog file.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// AzureConfig holds the object-store collaborator's connection details.
// ConnectionString is an env-bound secret; it is still a struct field so
// the rest of the agent can treat the object store uniformly.
type AzureConfig struct {
	ConnectionString string `koanf:"-"` // AZURE_STORAGE_CONNECTION_STRING, env-only
	ContainerName    string `koanf:"container_name"`
}

// LoggingConfig governs internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ServerConfig governs the thin dashboard/API collaborator surface.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// NotifyConfig governs the optional webhook notification collaborator.
type NotifyConfig struct {
	WebhookURL string `koanf:"webhook_url"`
	OnSuccess  bool   `koanf:"on_success"`
	OnFailure  bool   `koanf:"on_failure"`
	OnCleanup  bool   `koanf:"on_cleanup"`
}

// Validate checks every field needed for a safe startup and returns one
// fatal, descriptive error on the first invalid field it finds. Called
// once, at startup (§6 exit code 1 on failure).
func (c *Config) Validate() error {
	if c.Device.ID == "" {
		return fmt.Errorf("device.id (DEVICE_ID) must not be empty")
	}
	if len(c.Monitor.WatchedDirectories) == 0 {
		return fmt.Errorf("monitor.watched_directories must list at least one directory")
	}
	if c.Monitor.DebounceSeconds <= 0 {
		return fmt.Errorf("monitor.debounce_seconds must be positive, got %s", c.Monitor.DebounceSeconds)
	}
	if c.Backup.MaxFileSizeMB <= 0 {
		return fmt.Errorf("backup.max_file_size_mb must be positive, got %d", c.Backup.MaxFileSizeMB)
	}
	if c.Backup.CompressionLevel < 0 || c.Backup.CompressionLevel > 9 {
		return fmt.Errorf("backup.compression_level must be 0-9, got %d", c.Backup.CompressionLevel)
	}
	if c.Backup.BatchSize <= 0 {
		return fmt.Errorf("backup.batch_size must be positive, got %d", c.Backup.BatchSize)
	}
	if c.Backup.RetryAttempts <= 0 {
		return fmt.Errorf("backup.retry_attempts must be positive, got %d", c.Backup.RetryAttempts)
	}
	if c.Backup.EncryptionKey == "" {
		return fmt.Errorf("backup.encryption_key (BACKUP_ENCRYPTION_KEY) must not be empty")
	}
	if c.Retention.MaxVersionsPerFile <= 0 {
		return fmt.Errorf("retention.max_versions_per_file must be positive, got %d", c.Retention.MaxVersionsPerFile)
	}
	if c.Retention.RetentionDays <= 0 {
		return fmt.Errorf("retention.retention_days must be positive, got %d", c.Retention.RetentionDays)
	}
	if c.Scheduler.BackupIntervalMinutes <= 0 {
		return fmt.Errorf("scheduler.backup_interval_minutes must be positive, got %d", c.Scheduler.BackupIntervalMinutes)
	}
	if c.Scheduler.CleanupIntervalHours <= 0 {
		return fmt.Errorf("scheduler.cleanup_interval_hours must be positive, got %d", c.Scheduler.CleanupIntervalHours)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path (VAULTWATCH_DATABASE_PATH) must not be empty")
	}
	if c.Azure.ConnectionString == "" {
		return fmt.Errorf("azure.connection_string (AZURE_STORAGE_CONNECTION_STRING) must not be empty")
	}
	if c.Azure.ContainerName == "" {
		return fmt.Errorf("azure.container_name (AZURE_CONTAINER_NAME) must not be empty")
	}
	return nil
}
