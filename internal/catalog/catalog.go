// Package catalog is the agent's durable local record of every backed-up
// file version: an embedded DuckDB database holding backups, sync_status,
// and cleanup_log, accessed through a small set of transactional
// operations rather than ad hoc SQL scattered through the pipeline.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/vaultwatch/vaultwatch/internal/logging"
	"github.com/vaultwatch/vaultwatch/internal/metrics"
)

// Catalog wraps the embedded DuckDB connection backing the agent's
// version history.
type Catalog struct {
	conn *sql.DB
	path string
}

// Open creates the parent directory if needed, opens (or creates) the
// DuckDB file at path, and ensures the schema exists.
func Open(path string) (*Catalog, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("catalog: create directory %s: %w", dir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=4", path)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}

	c := &Catalog{conn: conn, path: path}
	if err := c.createSchema(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("catalog: create schema: %w", err)
	}
	return c, nil
}

// Close checkpoints pending writes and closes the connection.
func (c *Catalog) Close() error {
	if _, err := c.conn.Exec("CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("catalog checkpoint before close failed")
	}
	return c.conn.Close()
}

// Path returns the file path backing this catalog, used by the
// scheduler's periodic snapshot-by-copy.
func (c *Catalog) Path() string {
	return c.path
}

func (c *Catalog) createSchema() error {
	statements := []string{
		`CREATE SEQUENCE IF NOT EXISTS backups_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS backups (
			id BIGINT PRIMARY KEY DEFAULT nextval('backups_id_seq'),
			file_path VARCHAR NOT NULL,
			device_id VARCHAR NOT NULL,
			version INTEGER NOT NULL,
			original_size BIGINT NOT NULL,
			compressed_size BIGINT NOT NULL,
			encrypted_size BIGINT NOT NULL,
			blob_name VARCHAR NOT NULL,
			backup_date VARCHAR NOT NULL,
			checksum VARCHAR NOT NULL,
			salt VARCHAR NOT NULL,
			metadata VARCHAR NOT NULL DEFAULT '{}',
			is_deleted BOOLEAN NOT NULL DEFAULT false,
			UNIQUE (file_path, version, device_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backups_file_path ON backups (file_path)`,
		`CREATE INDEX IF NOT EXISTS idx_backups_backup_date ON backups (backup_date)`,
		`CREATE INDEX IF NOT EXISTS idx_backups_device_id ON backups (device_id)`,
		`CREATE TABLE IF NOT EXISTS sync_status (
			file_path VARCHAR NOT NULL,
			device_id VARCHAR NOT NULL,
			last_modified VARCHAR NOT NULL,
			last_backup VARCHAR,
			status VARCHAR NOT NULL,
			error_message VARCHAR,
			PRIMARY KEY (file_path, device_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_status_file_path ON sync_status (file_path)`,
		`CREATE SEQUENCE IF NOT EXISTS cleanup_log_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS cleanup_log (
			id BIGINT PRIMARY KEY DEFAULT nextval('cleanup_log_id_seq'),
			run_at VARCHAR NOT NULL,
			records_cleaned BIGINT NOT NULL,
			bytes_freed BIGINT NOT NULL,
			error_count BIGINT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := c.conn.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// timed records a CatalogQueryDuration observation for op and returns a
// func to call when the query completes.
func timed(op string) func() {
	start := time.Now()
	return func() {
		metrics.CatalogQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

const isoFormat = time.RFC3339

func nowISO() string {
	return time.Now().UTC().Format(isoFormat)
}

func closeQuietly(c interface{ Close() error }) {
	if c != nil {
		_ = c.Close()
	}
}

// ctxOrBackground lets callers pass a nil context without every query
// site repeating the same nil-check.
func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
