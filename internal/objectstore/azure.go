package objectstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vaultwatch/vaultwatch/internal/logging"
	"github.com/vaultwatch/vaultwatch/internal/metrics"
)

// AzureStore is the Store implementation backed by an Azure Blob Storage
// container. Every call is routed through a circuit breaker so a failing
// or slow storage account degrades the agent's uploads instead of
// hanging its backup queue indefinitely.
type AzureStore struct {
	client    *azblob.Client
	container string
	cb        *gobreaker.CircuitBreaker[any]
}

const cbName = "azure-blob"

// NewAzureStore builds an AzureStore from a connection string, the same
// shape the agent reads from AZURE_STORAGE_CONNECTION_STRING.
func NewAzureStore(connectionString, containerName string) (*AzureStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("objectstore: build azure client: %w", err)
	}

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("circuit breaker opening for azure-blob")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &AzureStore{client: client, container: containerName, cb: cb}, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// execute runs fn through the circuit breaker and records request
// outcome metrics, mirroring the wrapping pattern used elsewhere in this
// codebase for external dependencies.
func (a *AzureStore) execute(op string, fn func() (any, error)) (any, error) {
	result, err := a.cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.ObjectStoreRequests.WithLabelValues(op, "rejected").Inc()
		} else {
			metrics.ObjectStoreRequests.WithLabelValues(op, "failure").Inc()
			counts := a.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}
	metrics.ObjectStoreRequests.WithLabelValues(op, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)
	return result, nil
}

// Put uploads data as a single blob below chunkThreshold, or via
// putChunked's explicit staged-block upload at or above it.
func (a *AzureStore) Put(ctx context.Context, key string, data []byte, meta Metadata, overwrite bool) error {
	_, err := a.execute("put", func() (any, error) {
		if !overwrite {
			exists, existsErr := a.exists(ctx, key)
			if existsErr != nil {
				return nil, existsErr
			}
			if exists {
				return nil, fmt.Errorf("objectstore: key %q already exists", key)
			}
		}

		if len(data) >= chunkThreshold {
			return nil, a.putChunked(ctx, key, data, meta)
		}

		opts := &azblob.UploadBufferOptions{Metadata: metaToPtrMap(meta.ToMap())}
		_, uploadErr := a.client.UploadBuffer(ctx, a.container, key, data, opts)
		return nil, uploadErr
	})
	return err
}

// blockStageAttempts and blockStageBackoff implement §4.B's staged-block
// retry policy: up to 3 attempts per block, 1 second added per retry.
const (
	blockStageAttempts = 3
	blockStageBackoff  = time.Second
)

// putChunked stages data as blockSize blocks with a bounded per-block
// retry, then commits the block list atomically: either every staged
// block becomes one visible blob, or none of it does.
func (a *AzureStore) putChunked(ctx context.Context, key string, data []byte, meta Metadata) error {
	blockBlobClient := a.client.ServiceClient().NewContainerClient(a.container).NewBlockBlobClient(key)

	numBlocks := blockCount(len(data))
	blockIDs := make([]string, 0, numBlocks)

	for i := 0; i < numBlocks; i++ {
		start := i * blockSize
		end := start + blockSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]

		blockID := blockIDFor(i)
		blockIDs = append(blockIDs, blockID)

		if err := stageBlockWithRetry(ctx, blockBlobClient, blockID, chunk); err != nil {
			return fmt.Errorf("objectstore: stage block %d of %q: %w", i, key, err)
		}
	}

	if _, err := blockBlobClient.CommitBlockList(ctx, blockIDs, &blockblob.CommitBlockListOptions{
		Metadata: metaToPtrMap(meta.ToMap()),
	}); err != nil {
		return fmt.Errorf("objectstore: commit block list for %q: %w", key, err)
	}
	return nil
}

// blockCount returns how many blockSize blocks dataLen splits into.
func blockCount(dataLen int) int {
	return (dataLen + blockSize - 1) / blockSize
}

// blockIDFor returns the base64 block ID for block index i. All block
// IDs for one blob must be the same length, hence the fixed-width
// zero-padded index.
func blockIDFor(i int) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("block-%010d", i)))
}

// stageBlockWithRetry stages one block, retrying up to blockStageAttempts
// times with linear backoff (1s, 2s, ...) between attempts.
func stageBlockWithRetry(ctx context.Context, client *blockblob.Client, blockID string, chunk []byte) error {
	var lastErr error
	for attempt := 0; attempt < blockStageAttempts; attempt++ {
		reader := &readSeekCloser{Reader: bytes.NewReader(chunk)}
		_, err := client.StageBlock(ctx, blockID, reader, nil)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == blockStageAttempts-1 {
			break
		}
		backoff := time.Duration(attempt+1) * blockStageBackoff
		logging.Warn().Str("block_id", blockID).Int("attempt", attempt+1).Dur("backoff", backoff).Err(err).Msg("retrying block stage")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// readSeekCloser adapts a bytes.Reader to io.ReadSeekCloser, the type
// StageBlock requires for a body it may need to retry internally.
type readSeekCloser struct {
	*bytes.Reader
}

func (readSeekCloser) Close() error { return nil }

func (a *AzureStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.execute("get", func() (any, error) {
		resp, getErr := a.client.DownloadStream(ctx, a.container, key, nil)
		if getErr != nil {
			if isNotFound(getErr) {
				return nil, ErrNotFound
			}
			return nil, getErr
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, translateErr(err)
	}
	return result.([]byte), nil
}

func (a *AzureStore) exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.ServiceClient().NewContainerClient(a.container).NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	result, err := a.execute("exists", func() (any, error) {
		return a.exists(ctx, key)
	})
	if err != nil {
		return false, translateErr(err)
	}
	return result.(bool), nil
}

func (a *AzureStore) Head(ctx context.Context, key string) (Properties, error) {
	result, err := a.execute("head", func() (any, error) {
		resp, getErr := a.client.ServiceClient().NewContainerClient(a.container).NewBlobClient(key).GetProperties(ctx, nil)
		if getErr != nil {
			if isNotFound(getErr) {
				return nil, ErrNotFound
			}
			return nil, getErr
		}
		props := Properties{Metadata: map[string]string{}}
		if resp.ContentLength != nil {
			props.Size = *resp.ContentLength
		}
		if resp.LastModified != nil {
			props.LastModified = *resp.LastModified
		}
		for k, v := range resp.Metadata {
			if v != nil {
				props.Metadata[k] = *v
			}
		}
		return props, nil
	})
	if err != nil {
		return Properties{}, translateErr(err)
	}
	return result.(Properties), nil
}

func (a *AzureStore) Delete(ctx context.Context, key string) (bool, error) {
	result, err := a.execute("delete", func() (any, error) {
		_, delErr := a.client.DeleteBlob(ctx, a.container, key, nil)
		if delErr != nil {
			if isNotFound(delErr) {
				return false, nil
			}
			return false, delErr
		}
		return true, nil
	})
	if err != nil {
		return false, translateErr(err)
	}
	return result.(bool), nil
}

func (a *AzureStore) List(ctx context.Context, prefix string, yield func(ObjectInfo) error) error {
	pager := a.client.NewListBlobsFlatPager(a.container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return translateErr(err)
		}
		for _, item := range page.Segment.BlobItems {
			info := ObjectInfo{Key: *item.Name}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					info.Size = *item.Properties.ContentLength
				}
				if item.Properties.LastModified != nil {
					info.LastModified = *item.Properties.LastModified
				}
			}
			if err := yield(info); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *AzureStore) Prune(ctx context.Context, prefix string, olderThan time.Time) (int, error) {
	removed := 0
	err := a.List(ctx, prefix, func(info ObjectInfo) error {
		if info.LastModified.Before(olderThan) {
			if _, delErr := a.Delete(ctx, info.Key); delErr != nil {
				return delErr
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func (a *AzureStore) Test(ctx context.Context) error {
	_, err := a.execute("test", func() (any, error) {
		_, getErr := a.client.ServiceClient().NewContainerClient(a.container).GetProperties(ctx, nil)
		return nil, getErr
	})
	return translateErr(err)
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == 404
	}
	return false
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if isNotFound(err) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

func metaToPtrMap(m map[string]string) map[string]*string {
	out := make(map[string]*string, len(m))
	for k, v := range m {
		v := v
		out[k] = &v
	}
	return out
}
