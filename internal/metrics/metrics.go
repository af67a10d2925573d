// Package metrics exposes vaultwatch's Prometheus instrumentation:
// pipeline throughput and latency, the object-store circuit breaker,
// queue depth, and retention sweep outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackupsTotal counts completed backup attempts by outcome
	// ("success", "skipped", "failed").
	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultwatch_backups_total",
		Help: "Total number of file backup attempts by outcome.",
	}, []string{"outcome"})

	// BackupDuration measures wall-clock time for one file's full backup
	// pipeline (hash, compress, encrypt, upload, catalog).
	BackupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaultwatch_backup_duration_seconds",
		Help:    "Duration of a single file backup pipeline run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	// BackupBytesOriginal and BackupBytesCompressed track compression
	// effectiveness across all backups.
	BackupBytesOriginal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vaultwatch_backup_bytes_original_total",
		Help: "Total uncompressed bytes read from watched files.",
	})
	BackupBytesCompressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vaultwatch_backup_bytes_compressed_total",
		Help: "Total bytes uploaded to the object store after compression and encryption.",
	})

	// BackupRetries counts retry attempts made by the upload stage.
	BackupRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vaultwatch_backup_upload_retries_total",
		Help: "Total retry attempts made uploading objects to the object store.",
	})

	// RestoresTotal counts completed restore attempts by outcome
	// ("success", "integrity_failure", "not_found", "failed").
	RestoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultwatch_restores_total",
		Help: "Total number of restore attempts by outcome.",
	}, []string{"outcome"})

	// RestoreDuration measures wall-clock time for one restore pipeline run.
	RestoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaultwatch_restore_duration_seconds",
		Help:    "Duration of a single restore pipeline run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	// QueueDepth reports the number of paths currently pending upload.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vaultwatch_queue_depth",
		Help: "Number of files currently queued for backup.",
	})

	// QueueBatchesProcessed counts drained queue batches.
	QueueBatchesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vaultwatch_queue_batches_processed_total",
		Help: "Total number of queue batches drained by the backup worker.",
	})

	// DebounceEventsCoalesced counts filesystem events absorbed by the
	// monitor's debounce window before they became a single backup trigger.
	DebounceEventsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vaultwatch_debounce_events_coalesced_total",
		Help: "Total filesystem change events coalesced by debouncing.",
	})

	// MonitorEventsTotal counts raw filesystem events observed, by type
	// ("create", "write", "remove", "rename").
	MonitorEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultwatch_monitor_events_total",
		Help: "Total raw filesystem events observed by the watcher.",
	}, []string{"event_type"})

	// CleanupVersionsRemoved and CleanupBytesFreed report the outcome of
	// retention sweeps.
	CleanupVersionsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vaultwatch_cleanup_versions_removed_total",
		Help: "Total backup versions removed by retention sweeps.",
	})
	CleanupBytesFreed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vaultwatch_cleanup_bytes_freed_total",
		Help: "Total object-store bytes freed by retention sweeps.",
	})
	CleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultwatch_cleanup_runs_total",
		Help: "Total retention sweep runs by outcome.",
	}, []string{"outcome"})

	// CatalogQueryDuration measures catalog (DuckDB) query latency by
	// operation name.
	CatalogQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaultwatch_catalog_query_duration_seconds",
		Help:    "Duration of catalog database queries by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// ObjectStoreRequests counts object-store calls by operation and
	// outcome ("success", "failure", "rejected").
	ObjectStoreRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultwatch_objectstore_requests_total",
		Help: "Total object store requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	// CircuitBreakerState reports the object-store circuit breaker state:
	// 0 = closed, 1 = half-open, 2 = open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vaultwatch_circuit_breaker_state",
		Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
	}, []string{"name"})

	// CircuitBreakerTransitions counts every state change.
	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultwatch_circuit_breaker_transitions_total",
		Help: "Total circuit breaker state transitions.",
	}, []string{"name", "from", "to"})

	// CircuitBreakerConsecutiveFailures tracks the current failure streak.
	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vaultwatch_circuit_breaker_consecutive_failures",
		Help: "Current consecutive failure count seen by the circuit breaker.",
	}, []string{"name"})

	// NotifyDeliveries counts webhook notification attempts by event type
	// and outcome.
	NotifyDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultwatch_notify_deliveries_total",
		Help: "Total webhook notification deliveries by event and outcome.",
	}, []string{"event", "outcome"})

	// APIRequestsTotal and APIRequestDuration instrument the local
	// dashboard HTTP API.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultwatch_api_requests_total",
		Help: "Total dashboard API requests by method, path, and status.",
	}, []string{"method", "path", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaultwatch_api_request_duration_seconds",
		Help:    "Duration of dashboard API requests by method and path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// APIActiveRequests reports requests currently being handled.
	APIActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vaultwatch_api_active_requests",
		Help: "Number of dashboard API requests currently being handled.",
	})
)

// RecordAPIRequest records one completed dashboard API request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
