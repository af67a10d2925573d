// Package objectstore models the remote object store the agent uploads
// encrypted backups to: a flat namespace of opaque keys carrying small
// string metadata, with atomic put, retrying upload, prefix listing, and
// age-based prune.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get/Head when the key does not exist.
// Never retried.
var ErrNotFound = errors.New("objectstore: not found")

// ErrTransient wraps network/timeout/5xx failures that RetryPut will
// retry up to the configured budget.
var ErrTransient = errors.New("objectstore: transient failure")

// blockSize is the staged-block size used by putChunked.
const blockSize = 1 << 20 // 1 MiB

// chunkThreshold is the payload size at or above which Put switches to
// staged-block upload.
const chunkThreshold = 5 << 20 // 5 MiB

// Metadata is the fixed set of string properties stored alongside every
// object (§6 "Object payload format").
type Metadata struct {
	OriginalFilename string
	OriginalSize     string
	CompressedSize   string
	DeviceID         string
	BackupVersion    string
	Checksum         string
	CompressionLevel string
}

// ToMap renders Metadata as the string map the underlying SDK's blob
// metadata setter expects.
func (m Metadata) ToMap() map[string]string {
	return map[string]string{
		"original_filename": m.OriginalFilename,
		"original_size":     m.OriginalSize,
		"compressed_size":   m.CompressedSize,
		"device_id":         m.DeviceID,
		"backup_version":    m.BackupVersion,
		"checksum":          m.Checksum,
		"compression_level": m.CompressionLevel,
	}
}

// ObjectInfo describes one object returned by List.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Properties is the result of Head: cheap metadata without downloading
// the payload.
type Properties struct {
	Size         int64
	LastModified time.Time
	Metadata     map[string]string
}

// Store is the contract the backup pipeline depends on. Implementations
// must make Put atomic: either the full object becomes visible or
// nothing does.
type Store interface {
	// Put uploads bytes under key, choosing single-shot or chunked upload
	// by payload size, with the retry policy in RetryPut applied by the
	// caller (internal/backup) rather than baked in here, so tests can
	// exercise retry behavior against a fake that fails on demand.
	Put(ctx context.Context, key string, data []byte, meta Metadata, overwrite bool) error

	// Get downloads the full object.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists is a cheap existence check.
	Exists(ctx context.Context, key string) (bool, error)

	// Head returns object properties without downloading the payload.
	Head(ctx context.Context, key string) (Properties, error)

	// Delete removes key. Idempotent: returns (false, nil) if key was
	// already absent.
	Delete(ctx context.Context, key string) (bool, error)

	// List streams objects under prefix to yield. Returning an error from
	// yield stops the scan and is propagated.
	List(ctx context.Context, prefix string, yield func(ObjectInfo) error) error

	// Prune deletes every object under prefix whose LastModified is older
	// than olderThan, returning the count removed.
	Prune(ctx context.Context, prefix string, olderThan time.Time) (int, error)

	// Test performs a cheap liveness check (e.g. HEAD the container).
	Test(ctx context.Context) error
}

// MintKey builds the deterministic, hierarchical object key described in
// §4.B: {device_id}/{YYYY}/{MM}/{sanitized_path}/v{version}_{YYYYMMDD_HHMMSS}.backup
func MintKey(deviceID, filePath string, version int, now time.Time) string {
	sanitized := sanitizePath(filePath)
	return fmt.Sprintf("%s/%04d/%02d/%s/v%d_%s.backup",
		deviceID, now.Year(), now.Month(), sanitized, version, now.Format("20060102_150405"))
}

// sanitizePath replaces path separators and Windows drive-letter colons
// so a filesystem path becomes a safe, prefix-scannable key segment.
func sanitizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.ReplaceAll(p, ":", "_")
	return strings.TrimPrefix(p, "/")
}
