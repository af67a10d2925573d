package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/catalog"
	"github.com/vaultwatch/vaultwatch/internal/crypto"
	"github.com/vaultwatch/vaultwatch/internal/logging"
	"github.com/vaultwatch/vaultwatch/internal/metrics"
	"github.com/vaultwatch/vaultwatch/internal/notify"
	"github.com/vaultwatch/vaultwatch/internal/objectstore"
)

// Pipeline wires together the catalog, the object store, and the sealer
// to back up and restore individual files. Notifier is optional; when nil,
// backup outcomes are not reported to any webhook.
type Pipeline struct {
	Catalog          *catalog.Catalog
	Store            objectstore.Store
	Sealer           *crypto.Sealer
	DeviceID         string
	CompressionLevel int
	RetryAttempts    int
	Notifier         *notify.Notifier
}

// Status reports a live snapshot of q's queue depth and drain state for
// this pipeline's device.
func (p *Pipeline) Status(q *Queue) StatusSnapshot {
	return StatusSnapshot{
		DeviceID:   p.DeviceID,
		QueueDepth: q.Len(),
		InProgress: q.Running(),
	}
}

// BackupFile runs the single-file pipeline described for the agent: hash,
// compress, encrypt, upload, and record — in that order, with the catalog
// record committed only after the object is durable in the store.
func (p *Pipeline) BackupFile(ctx context.Context, path string) error {
	start := time.Now()
	outcome := "failed"
	defer func() {
		metrics.BackupDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		metrics.BackupsTotal.WithLabelValues(outcome).Inc()
	}()

	plaintext, err := os.ReadFile(path)
	if err != nil {
		p.recordFailure(ctx, path, fmt.Errorf("read file: %w", err))
		return err
	}

	checksum := crypto.HashBytes(plaintext)

	compressed, err := gzipBytes(plaintext, p.CompressionLevel)
	if err != nil {
		p.recordFailure(ctx, path, fmt.Errorf("compress: %w", err))
		return err
	}

	ciphertext, salt, err := p.Sealer.Encrypt(compressed)
	if err != nil {
		p.recordFailure(ctx, path, fmt.Errorf("encrypt: %w", err))
		return err
	}

	version, err := p.Catalog.NextVersion(ctx, path, p.DeviceID)
	if err != nil {
		p.recordFailure(ctx, path, fmt.Errorf("next_version: %w", err))
		return err
	}

	key := objectstore.MintKey(p.DeviceID, path, version, time.Now().UTC())

	meta := objectstore.Metadata{
		OriginalFilename: filepath.Base(path),
		OriginalSize:     fmt.Sprintf("%d", len(plaintext)),
		CompressedSize:   fmt.Sprintf("%d", len(compressed)),
		DeviceID:         p.DeviceID,
		BackupVersion:    fmt.Sprintf("%d", version),
		Checksum:         checksum,
		CompressionLevel: fmt.Sprintf("%d", p.CompressionLevel),
	}

	if err := objectstore.RetryPut(ctx, p.Store, key, ciphertext, meta, true, p.RetryAttempts); err != nil {
		p.recordFailure(ctx, path, fmt.Errorf("upload: %w", err))
		return err
	}

	_, err = p.Catalog.AddRecord(ctx, catalog.AddRecordParams{
		FilePath:       path,
		DeviceID:       p.DeviceID,
		Version:        version,
		OriginalSize:   int64(len(plaintext)),
		CompressedSize: int64(len(compressed)),
		EncryptedSize:  int64(len(ciphertext)),
		BlobName:       key,
		Checksum:       checksum,
		Salt:           hex.EncodeToString(salt),
		Metadata: map[string]any{
			"original_filename": filepath.Base(path),
		},
	})
	if err != nil {
		// The object is already durable; a future sweep will reconcile this
		// orphan by age. Surface the error but do not attempt to undo the upload.
		logging.Error().Err(err).Str("path", path).Str("key", key).Msg("uploaded object but failed to record catalog entry")
		outcome = "failed"
		return err
	}

	metrics.BackupBytesOriginal.Add(float64(len(plaintext)))
	metrics.BackupBytesCompressed.Add(float64(len(ciphertext)))
	outcome = "success"
	if p.Notifier != nil {
		p.Notifier.BackupSucceeded(ctx, path, version)
	}
	return nil
}

func (p *Pipeline) recordFailure(ctx context.Context, path string, err error) {
	info, statErr := os.Stat(path)
	mtime := time.Now()
	if statErr == nil {
		mtime = info.ModTime()
	}
	if updateErr := p.Catalog.UpdateSyncStatus(ctx, path, p.DeviceID, mtime, catalog.StatusError, err.Error()); updateErr != nil {
		logging.Error().Err(updateErr).Str("path", path).Msg("failed to record sync error status")
	}
	if p.Notifier != nil {
		p.Notifier.BackupFailed(ctx, path, err)
	}
}

// RestoreByID downloads, decrypts, decompresses, and verifies the object
// for record id, then writes it to destPath. progress, if non-nil, is
// invoked at each milestone; a panicking callback is recovered so it can
// never abort the restore.
func (p *Pipeline) RestoreByID(ctx context.Context, id int64, destPath string, progress ProgressCallback) error {
	start := time.Now()
	outcome := "failed"
	defer func() {
		metrics.RestoreDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		metrics.RestoresTotal.WithLabelValues(outcome).Inc()
	}()

	report(progress, 0, StepDownloadStart, "looking up record")

	rec, err := p.Catalog.GetByID(ctx, id)
	if err != nil {
		outcome = "not_found"
		return err
	}

	report(progress, 10, StepDownload, "downloading object")
	ciphertext, err := p.Store.Get(ctx, rec.BlobName)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	report(progress, 50, StepDecrypt, "decrypting")
	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return fmt.Errorf("decode salt: %w", err)
	}
	compressed, err := p.Sealer.Decrypt(ciphertext, salt)
	if err != nil {
		outcome = "integrity_failure"
		return err
	}

	plaintext, err := gunzipBytes(compressed)
	if err != nil {
		outcome = "integrity_failure"
		return fmt.Errorf("decompress: %w", err)
	}

	report(progress, 75, StepVerify, "verifying checksum")
	if crypto.HashBytes(plaintext) != rec.Checksum {
		outcome = "integrity_failure"
		return crypto.ErrIntegrity
	}

	report(progress, 90, StepWrite, "writing file")
	if dir := filepath.Dir(destPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create parent directory: %w", err)
		}
	}
	if err := writeAtomic(destPath, plaintext); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	report(progress, 100, StepComplete, "restore complete")
	outcome = "success"
	return nil
}

func report(cb ProgressCallback, percent int, step ProgressStep, message string) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Warn().Interface("panic", r).Msg("restore progress callback panicked, ignoring")
		}
	}()
	cb(percent, step, message)
}

// writeAtomic writes data to a temp file in the destination directory,
// then renames it into place, so a crash mid-write never leaves a
// truncated file at destPath.
func writeAtomic(destPath string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".vaultwatch-restore-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, destPath)
}

func gzipBytes(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
