package backup

import (
	"context"
	"sync"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/logging"
	"github.com/vaultwatch/vaultwatch/internal/metrics"
)

// Queue is an in-memory ordered set of paths awaiting backup. It is never
// persisted; on restart the monitor's initial scan rebuilds it.
type Queue struct {
	mu      sync.Mutex
	order   []string
	present map[string]struct{}
	running bool
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{present: make(map[string]struct{})}
}

// Enqueue adds path if it is not already queued. Re-enqueueing an already
// queued path is a no-op.
func (q *Queue) Enqueue(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.present[path]; ok {
		return
	}
	q.present[path] = struct{}{}
	q.order = append(q.order, path)
	metrics.QueueDepth.Set(float64(len(q.order)))
}

// swap atomically takes ownership of the current queue contents and
// clears the queue, or reports already-running if a drain is in
// progress.
func (q *Queue) swap() (paths []string, alreadyRunning bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return nil, true
	}
	q.running = true
	paths = q.order
	q.order = nil
	q.present = make(map[string]struct{})
	metrics.QueueDepth.Set(0)
	return paths, false
}

func (q *Queue) finish() {
	q.mu.Lock()
	q.running = false
	q.mu.Unlock()
}

// Len reports the number of paths currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Running reports whether a drain is currently in progress.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// ProcessQueue drains the queue in batches of batchSize, sleeping 1
// second between batches to throttle the object store and yield CPU. A
// concurrent call while a drain is already in progress returns
// AlreadyRunning without waiting. No retries happen within one drain;
// retries live in the object-store layer, and a failed file is left in
// error status to be re-enqueued on its next modification.
func (p *Pipeline) ProcessQueue(ctx context.Context, q *Queue, batchSize int) QueueDrainResult {
	paths, alreadyRunning := q.swap()
	if alreadyRunning {
		return QueueDrainResult{AlreadyRunning: true}
	}
	defer q.finish()

	result := QueueDrainResult{Failed: make(map[string]error)}
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(paths); start += batchSize {
		end := start + batchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]

		for _, path := range batch {
			if err := p.BackupFile(ctx, path); err != nil {
				result.Failed[path] = err
				logging.Warn().Err(err).Str("path", path).Msg("queue drain: backup failed")
				continue
			}
			result.Succeeded = append(result.Succeeded, path)
		}
		metrics.QueueBatchesProcessed.Inc()

		if end < len(paths) {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return result
			}
		}
	}

	return result
}
