/*
Package metrics provides Prometheus metrics collection and export for
vaultwatch's observability.

Metrics are exposed at /metrics in Prometheus text format and cover the
backup pipeline (duration, bytes, retries), the restore pipeline, the
upload queue, the filesystem monitor's debouncing, the retention sweep,
the catalog database, and the object store's circuit breaker.

Recording happens at the call site of each package (internal/backup,
internal/monitor, internal/catalog, internal/objectstore) rather than
through wrapper functions here, so each metric's label values stay close
to the code that knows them.
*/
package metrics
