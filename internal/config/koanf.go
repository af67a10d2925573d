package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order
// of priority. The first one found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vaultwatch/config.yaml",
	"/etc/vaultwatch/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{ID: "default-device"},
		Monitor: MonitorConfig{
			WatchedDirectories: nil,
			ExcludePatterns:    []string{"*.tmp", "*.temp", "*.swp", ".*"},
			DebounceSeconds:    5 * time.Second,
		},
		Backup: BackupConfig{
			MaxFileSizeMB:     100,
			CompressionLevel:  6,
			BatchSize:         10,
			RetryAttempts:     3,
			KeyDerivationIter: 100_000,
			UploadLimitKBPerS: 0,
		},
		Retention: RetentionConfig{
			MaxVersionsPerFile: 5,
			RetentionDays:      30,
		},
		Scheduler: SchedulerConfig{
			BackupIntervalMinutes: 5,
			CleanupIntervalHours:  24,
			SnapshotIntervalHours: 6,
		},
		Database: DatabaseConfig{Path: "/data/vaultwatch.duckdb"},
		Azure:    AzureConfig{ContainerName: "backups"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Server: ServerConfig{Host: "0.0.0.0", Port: 8420},
		Notify: NotifyConfig{},
	}
}

// Load reads configuration using the layered Koanf pipeline:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
//
// Then validates the result. This is the only entry point collaborators
// should use to obtain a *Config.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("VAULTWATCH_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process list fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	loadSecrets(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadSecrets reads the four environment-bound settings directly; they
// have no VAULTWATCH_ prefix. The connection string and passphrase have no
// YAML equivalent; AZURE_CONTAINER_NAME and DEVICE_ID, when set, override
// azure.container_name and device.id from the defaults or YAML file.
func loadSecrets(cfg *Config) {
	cfg.Azure.ConnectionString = os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	cfg.Backup.EncryptionKey = os.Getenv("BACKUP_ENCRYPTION_KEY")
	if v := os.Getenv("AZURE_CONTAINER_NAME"); v != "" {
		cfg.Azure.ContainerName = v
	}
	if v := os.Getenv("DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}
}

// sliceConfigPaths names the koanf paths that arrive as comma-separated
// strings from the environment but must be unmarshaled as string slices.
var sliceConfigPaths = []string{
	"monitor.watched_directories",
	"monitor.exclude_patterns",
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps VAULTWATCH_* environment variables to koanf paths,
// e.g. VAULTWATCH_MONITOR_DEBOUNCE_SECONDS -> monitor.debounce_seconds.
// Unmapped keys are skipped so unrelated environment variables never
// pollute the config tree.
func envTransformFunc(key string) string {
	mapped, ok := envMappings[strings.TrimPrefix(strings.ToLower(key), "vaultwatch_")]
	if !ok {
		return ""
	}
	return mapped
}

var envMappings = map[string]string{
	"monitor_watched_directories": "monitor.watched_directories",
	"monitor_exclude_patterns":    "monitor.exclude_patterns",
	"monitor_debounce_seconds":    "monitor.debounce_seconds",

	"backup_max_file_size_mb": "backup.max_file_size_mb",
	"backup_compression_level": "backup.compression_level",
	"backup_batch_size":        "backup.batch_size",
	"backup_retry_attempts":    "backup.retry_attempts",

	"retention_max_versions_per_file": "retention.max_versions_per_file",
	"retention_days":                  "retention.retention_days",

	"scheduler_backup_interval_minutes": "scheduler.backup_interval_minutes",
	"scheduler_cleanup_interval_hours":  "scheduler.cleanup_interval_hours",
	"scheduler_snapshot_interval_hours": "scheduler.snapshot_interval_hours",

	"database_path": "database.path",

	"server_host": "server.host",
	"server_port": "server.port",

	"logging_level":  "logging.level",
	"logging_format": "logging.format",
	"logging_caller": "logging.caller",

	"notify_webhook_url": "notify.webhook_url",
	"notify_on_success":  "notify.on_success",
	"notify_on_failure":  "notify.on_failure",
	"notify_on_cleanup":  "notify.on_cleanup",
}
