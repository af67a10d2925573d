package objectstore

import (
	"context"
	"errors"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/logging"
	"github.com/vaultwatch/vaultwatch/internal/metrics"
)

// RetryPut calls store.Put up to attempts times, sleeping 2*(n+1) seconds
// between the n-th and (n+1)-th attempt. It gives up immediately on a
// non-transient error (e.g. a validation failure) since retrying those
// can never succeed.
func RetryPut(ctx context.Context, store Store, key string, data []byte, meta Metadata, overwrite bool, attempts int) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = store.Put(ctx, key, data, meta, overwrite)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrTransient) {
			return lastErr
		}

		if attempt == attempts-1 {
			break
		}
		metrics.BackupRetries.Inc()

		backoff := time.Duration(2*(attempt+1)) * time.Second
		logging.Warn().Str("key", key).Int("attempt", attempt+1).Dur("backoff", backoff).Err(lastErr).Msg("retrying object store upload")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
