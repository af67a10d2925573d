package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// ErrNotFound is returned by lookups that find no matching, non-deleted row.
var ErrNotFound = errors.New("catalog: not found")

// NextVersion returns max(version) + 1 across all rows (including
// soft-deleted ones) for (filePath, deviceID), or 1 if none exist.
func (c *Catalog) NextVersion(ctx context.Context, filePath, deviceID string) (int, error) {
	defer timed("next_version")()
	ctx = ctxOrBackground(ctx)

	var maxVersion sql.NullInt64
	err := c.conn.QueryRowContext(ctx,
		`SELECT MAX(version) FROM backups WHERE file_path = ? AND device_id = ?`,
		filePath, deviceID,
	).Scan(&maxVersion)
	if err != nil {
		return 0, fmt.Errorf("catalog: next_version query: %w", err)
	}
	if !maxVersion.Valid {
		return 1, nil
	}
	return int(maxVersion.Int64) + 1, nil
}

// AddRecordParams carries the fields needed to insert a BackupRecord.
type AddRecordParams struct {
	FilePath       string
	DeviceID       string
	Version        int
	OriginalSize   int64
	CompressedSize int64
	EncryptedSize  int64
	BlobName       string
	Checksum       string
	Salt           string
	Metadata       map[string]any
}

// AddRecord inserts a BackupRecord and upserts SyncStatus to completed, in
// one transaction.
func (c *Catalog) AddRecord(ctx context.Context, p AddRecordParams) (int64, error) {
	defer timed("add_record")()
	ctx = ctxOrBackground(ctx)

	metaJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return 0, fmt.Errorf("catalog: marshal metadata: %w", err)
	}

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := nowISO()
	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO backups
			(file_path, device_id, version, original_size, compressed_size,
			 encrypted_size, blob_name, backup_date, checksum, salt, metadata, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, false)
		 RETURNING id`,
		p.FilePath, p.DeviceID, p.Version, p.OriginalSize, p.CompressedSize,
		p.EncryptedSize, p.BlobName, now, p.Checksum, p.Salt, string(metaJSON),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("catalog: insert backup record: %w", err)
	}

	if err := upsertSyncStatusTx(ctx, tx, p.FilePath, p.DeviceID, now, StatusCompleted, "", &now); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("catalog: commit add_record: %w", err)
	}
	return id, nil
}

// GetVersions returns every non-deleted record for (filePath, deviceID),
// ordered by version descending.
func (c *Catalog) GetVersions(ctx context.Context, filePath, deviceID string) ([]BackupRecord, error) {
	defer timed("get_versions")()
	ctx = ctxOrBackground(ctx)

	rows, err := c.conn.QueryContext(ctx,
		`SELECT id, file_path, device_id, version, original_size, compressed_size,
		        encrypted_size, blob_name, backup_date, checksum, salt, metadata, is_deleted
		 FROM backups
		 WHERE file_path = ? AND device_id = ? AND is_deleted = false
		 ORDER BY version DESC`,
		filePath, deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: get_versions query: %w", err)
	}
	defer rows.Close()

	var out []BackupRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetLatest returns the newest non-deleted record for (filePath,
// deviceID), or nil if none exists.
func (c *Catalog) GetLatest(ctx context.Context, filePath, deviceID string) (*BackupRecord, error) {
	defer timed("get_latest")()
	ctx = ctxOrBackground(ctx)

	row := c.conn.QueryRowContext(ctx,
		`SELECT id, file_path, device_id, version, original_size, compressed_size,
		        encrypted_size, blob_name, backup_date, checksum, salt, metadata, is_deleted
		 FROM backups
		 WHERE file_path = ? AND device_id = ? AND is_deleted = false
		 ORDER BY version DESC LIMIT 1`,
		filePath, deviceID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByID returns the record with the given id, unless it has been
// soft-deleted, in which case it is treated as not found.
func (c *Catalog) GetByID(ctx context.Context, id int64) (*BackupRecord, error) {
	defer timed("get_by_id")()
	ctx = ctxOrBackground(ctx)

	row := c.conn.QueryRowContext(ctx,
		`SELECT id, file_path, device_id, version, original_size, compressed_size,
		        encrypted_size, blob_name, backup_date, checksum, salt, metadata, is_deleted
		 FROM backups WHERE id = ? AND is_deleted = false`,
		id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FilesNeedingBackup returns paths whose sync status is pending, or
// whose source has been modified more recently than its last successful
// backup, or that have never completed a backup.
func (c *Catalog) FilesNeedingBackup(ctx context.Context, deviceID string) ([]string, error) {
	defer timed("files_needing_backup")()
	ctx = ctxOrBackground(ctx)

	rows, err := c.conn.QueryContext(ctx,
		`SELECT file_path FROM sync_status
		 WHERE device_id = ?
		   AND (status = 'pending' OR last_backup IS NULL OR last_modified > last_backup)`,
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: files_needing_backup query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, rows.Err()
}

// UpdateSyncStatus upserts the latest sync state for (filePath, deviceID).
func (c *Catalog) UpdateSyncStatus(ctx context.Context, filePath, deviceID string, lastModified time.Time, status SyncStatusState, errMsg string) error {
	defer timed("update_sync_status")()
	ctx = ctxOrBackground(ctx)

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback()

	var lastBackup *string
	if status == StatusCompleted {
		now := nowISO()
		lastBackup = &now
	}

	if err := upsertSyncStatusTx(ctx, tx, filePath, deviceID, lastModified.UTC().Format(isoFormat), status, errMsg, lastBackup); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertSyncStatusTx(ctx context.Context, tx *sql.Tx, filePath, deviceID, lastModified string, status SyncStatusState, errMsg string, lastBackup *string) error {
	var existingLastBackup sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT last_backup FROM sync_status WHERE file_path = ? AND device_id = ?`,
		filePath, deviceID,
	).Scan(&existingLastBackup)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("catalog: read sync_status: %w", err)
	}

	effectiveLastBackup := existingLastBackup.String
	if lastBackup != nil {
		effectiveLastBackup = *lastBackup
	}
	var lastBackupArg any
	if effectiveLastBackup != "" {
		lastBackupArg = effectiveLastBackup
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sync_status (file_path, device_id, last_modified, last_backup, status, error_message)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (file_path, device_id) DO UPDATE SET
		   last_modified = excluded.last_modified,
		   last_backup = excluded.last_backup,
		   status = excluded.status,
		   error_message = excluded.error_message`,
		filePath, deviceID, lastModified, lastBackupArg, string(status), errMsg,
	)
	if err != nil {
		return fmt.Errorf("catalog: upsert sync_status: %w", err)
	}
	return nil
}

// Search finds distinct file paths whose path contains query, grouped and
// ordered by their most recent backup timestamp.
func (c *Catalog) Search(ctx context.Context, query, deviceID string, limit int) ([]SearchResult, error) {
	defer timed("search")()
	ctx = ctxOrBackground(ctx)

	rows, err := c.conn.QueryContext(ctx,
		`SELECT file_path, MAX(backup_date) AS latest
		 FROM backups
		 WHERE device_id = ? AND is_deleted = false AND file_path LIKE ?
		 GROUP BY file_path
		 ORDER BY latest DESC
		 LIMIT ?`,
		deviceID, "%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: search query: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var latest string
		if err := rows.Scan(&r.FilePath, &latest); err != nil {
			return nil, err
		}
		r.LatestBackupAt, _ = time.Parse(isoFormat, latest)
		out = append(out, r)
	}
	return out, rows.Err()
}

// dailyBackupCountsLimit bounds how many distinct days StorageStatsFor
// reports, most recent first.
const dailyBackupCountsLimit = 30

// StorageStatsFor summarizes non-deleted rows for deviceID, including the
// average compressed/original size ratio and a per-day backup count for the
// most recent dailyBackupCountsLimit days.
func (c *Catalog) StorageStatsFor(ctx context.Context, deviceID string) (StorageStats, error) {
	defer timed("storage_stats")()
	ctx = ctxOrBackground(ctx)

	var s StorageStats
	var fileCount sql.NullInt64
	var avgRatio sql.NullFloat64
	err := c.conn.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT file_path), COUNT(*),
		        COALESCE(SUM(original_size), 0), COALESCE(SUM(compressed_size), 0), COALESCE(SUM(encrypted_size), 0),
		        AVG(CASE WHEN original_size > 0 THEN compressed_size * 1.0 / original_size ELSE 0 END)
		 FROM backups WHERE device_id = ? AND is_deleted = false`,
		deviceID,
	).Scan(&fileCount, &s.VersionCount, &s.TotalOriginal, &s.TotalCompressed, &s.TotalEncrypted, &avgRatio)
	if err != nil {
		return StorageStats{}, fmt.Errorf("catalog: storage_stats query: %w", err)
	}
	s.FileCount = fileCount.Int64
	s.AvgCompressionRatio = avgRatio.Float64

	daily, err := c.dailyBackupCounts(ctx, deviceID)
	if err != nil {
		return StorageStats{}, err
	}
	s.DailyBackupCounts = daily
	return s, nil
}

// dailyBackupCounts returns the number of backups recorded per calendar day
// (UTC, YYYY-MM-DD), most recent day first, capped at dailyBackupCountsLimit
// days.
func (c *Catalog) dailyBackupCounts(ctx context.Context, deviceID string) (map[string]int64, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT SUBSTR(backup_date, 1, 10) AS day, COUNT(*)
		 FROM backups WHERE device_id = ? AND is_deleted = false
		 GROUP BY day ORDER BY day DESC LIMIT ?`,
		deviceID, dailyBackupCountsLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: daily_backup_counts query: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var day string
		var count int64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("catalog: daily_backup_counts scan: %w", err)
		}
		counts[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: daily_backup_counts rows: %w", err)
	}
	return counts, nil
}

// CleanupOldVersions marks stale versions deleted in one transaction:
// first any version beyond maxVersions per (file_path, device_id),
// keeping only the newest maxVersions; then any remaining row older than
// retentionDays. Appends a CleanupLog row recording the outcome.
func (c *Catalog) CleanupOldVersions(ctx context.Context, maxVersions int, retentionDays int, deviceID string) (count int64, bytesFreed int64, err error) {
	defer timed("cleanup_old_versions")()
	ctx = ctxOrBackground(ctx)

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback()

	errCount := int64(0)

	excessRows, err := tx.QueryContext(ctx,
		`SELECT id, compressed_size FROM backups b
		 WHERE device_id = ? AND is_deleted = false
		   AND (
		     SELECT COUNT(*) FROM backups b2
		     WHERE b2.file_path = b.file_path AND b2.device_id = b.device_id
		       AND b2.is_deleted = false AND b2.version >= b.version
		   ) > ?`,
		deviceID, maxVersions,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("catalog: find excess versions: %w", err)
	}
	var excessIDs []int64
	var excessBytes int64
	for excessRows.Next() {
		var id int64
		var size int64
		if err := excessRows.Scan(&id, &size); err != nil {
			excessRows.Close()
			return 0, 0, fmt.Errorf("catalog: scan excess versions: %w", err)
		}
		excessIDs = append(excessIDs, id)
		excessBytes += size
	}
	excessRows.Close()
	if err := excessRows.Err(); err != nil {
		return 0, 0, err
	}

	for _, id := range excessIDs {
		if _, err := tx.ExecContext(ctx, `UPDATE backups SET is_deleted = true WHERE id = ?`, id); err != nil {
			return 0, 0, fmt.Errorf("catalog: mark excess version deleted: %w", err)
		}
	}
	count += int64(len(excessIDs))
	bytesFreed += excessBytes

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(isoFormat)
	ageRows, err := tx.QueryContext(ctx,
		`SELECT id, compressed_size FROM backups
		 WHERE device_id = ? AND is_deleted = false AND backup_date < ?`,
		deviceID, cutoff,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("catalog: find aged versions: %w", err)
	}
	var ageIDs []int64
	var ageBytes int64
	for ageRows.Next() {
		var id int64
		var size int64
		if err := ageRows.Scan(&id, &size); err != nil {
			ageRows.Close()
			return 0, 0, fmt.Errorf("catalog: scan aged versions: %w", err)
		}
		ageIDs = append(ageIDs, id)
		ageBytes += size
	}
	ageRows.Close()
	if err := ageRows.Err(); err != nil {
		return 0, 0, err
	}

	for _, id := range ageIDs {
		if _, err := tx.ExecContext(ctx, `UPDATE backups SET is_deleted = true WHERE id = ?`, id); err != nil {
			return 0, 0, fmt.Errorf("catalog: mark aged version deleted: %w", err)
		}
	}
	count += int64(len(ageIDs))
	bytesFreed += ageBytes

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cleanup_log (run_at, records_cleaned, bytes_freed, error_count) VALUES (?, ?, ?, ?)`,
		nowISO(), count, bytesFreed, errCount,
	); err != nil {
		return 0, 0, fmt.Errorf("catalog: insert cleanup_log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("catalog: commit cleanup_old_versions: %w", err)
	}
	return count, bytesFreed, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (BackupRecord, error) {
	var rec BackupRecord
	var backupDate string
	var metaJSON string
	err := row.Scan(
		&rec.ID, &rec.FilePath, &rec.DeviceID, &rec.Version,
		&rec.OriginalSize, &rec.CompressedSize, &rec.EncryptedSize,
		&rec.BlobName, &backupDate, &rec.Checksum, &rec.Salt, &metaJSON, &rec.IsDeleted,
	)
	if err != nil {
		return BackupRecord{}, err
	}
	rec.BackupDate, _ = time.Parse(isoFormat, backupDate)
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return BackupRecord{}, fmt.Errorf("catalog: unmarshal metadata: %w", err)
		}
	}
	return rec, nil
}
