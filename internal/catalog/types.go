package catalog

import "time"

// BackupRecord is an immutable row describing one stored file version.
// Rows are never physically deleted by the catalog; retention marks them
// IsDeleted instead.
type BackupRecord struct {
	ID             int64
	FilePath       string
	DeviceID       string
	Version        int
	OriginalSize   int64
	CompressedSize int64
	EncryptedSize  int64
	BlobName       string
	BackupDate     time.Time
	Checksum       string
	Salt           string
	Metadata       map[string]any
	IsDeleted      bool
}

// SyncStatusState is the lifecycle state of the latest attempt to back up
// a file.
type SyncStatusState string

const (
	StatusPending   SyncStatusState = "pending"
	StatusCompleted SyncStatusState = "completed"
	StatusError     SyncStatusState = "error"
)

// SyncStatus is the latest per-file state, keyed by (file_path, device_id).
type SyncStatus struct {
	FilePath     string
	DeviceID     string
	LastModified time.Time
	LastBackup   *time.Time
	Status       SyncStatusState
	ErrorMessage string
}

// CleanupLogEntry is one row recording the outcome of a retention sweep.
type CleanupLogEntry struct {
	ID             int64
	RunAt          time.Time
	RecordsCleaned int64
	BytesFreed     int64
	ErrorCount     int64
}

// StorageStats summarizes non-deleted rows for one device.
type StorageStats struct {
	FileCount           int64
	VersionCount        int64
	TotalOriginal       int64
	TotalCompressed     int64
	TotalEncrypted      int64
	AvgCompressionRatio float64
	DailyBackupCounts   map[string]int64
}

// SearchResult is one row of a path search: the path and its most recent
// backup timestamp.
type SearchResult struct {
	FilePath       string
	LatestBackupAt time.Time
}
