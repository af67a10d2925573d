package api

import (
	"sync"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/backup"
)

// RestoreJobState is a point-in-time snapshot of one restore's progress,
// safe to serialize directly as JSON.
type RestoreJobState struct {
	JobID     string              `json:"job_id"`
	RecordID  int64               `json:"record_id"`
	DestPath  string              `json:"dest_path"`
	Percent   int                 `json:"percent"`
	Step      backup.ProgressStep `json:"step"`
	Message   string              `json:"message"`
	Done      bool                `json:"done"`
	Err       string              `json:"error,omitempty"`
	StartedAt time.Time           `json:"started_at"`
}

// progressTrackerTTL is how long a completed or stalled restore job's state
// is kept before it is aged out of the tracker.
const progressTrackerTTL = 5 * time.Minute

// progressTracker hands out restore job IDs and stores their latest
// reported state, so the HTTP handler that started a restore (on one
// goroutine) and the handler polling its status (on another) can meet
// without either blocking on the pipeline itself. A background sweep ages
// out entries older than progressTrackerTTL so the map doesn't grow
// unboundedly over the life of the daemon.
type progressTracker struct {
	mu       sync.RWMutex
	jobs     map[string]*RestoreJobState
	stopChan chan struct{}
	stopOnce sync.Once
}

func newProgressTracker() *progressTracker {
	t := &progressTracker{
		jobs:     make(map[string]*RestoreJobState),
		stopChan: make(chan struct{}),
	}
	go t.sweep()
	return t
}

// sweep periodically removes jobs whose StartedAt is older than
// progressTrackerTTL.
func (t *progressTracker) sweep() {
	ticker := time.NewTicker(progressTrackerTTL)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			t.evictOlderThan(time.Now().Add(-progressTrackerTTL))
		}
	}
}

func (t *progressTracker) evictOlderThan(cutoff time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for jobID, job := range t.jobs {
		if job.StartedAt.Before(cutoff) {
			delete(t.jobs, jobID)
		}
	}
}

// stop stops the background sweep goroutine. Safe to call multiple times.
func (t *progressTracker) stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
}

func (t *progressTracker) start(jobID string, recordID int64, destPath string) *RestoreJobState {
	state := &RestoreJobState{
		JobID:     jobID,
		RecordID:  recordID,
		DestPath:  destPath,
		Step:      backup.StepDownloadStart,
		StartedAt: time.Now(),
	}
	t.mu.Lock()
	t.jobs[jobID] = state
	t.mu.Unlock()
	return state
}

// callback returns a backup.ProgressCallback that updates jobID's state.
// It never blocks and never panics, so it is safe to pass directly to
// Pipeline.RestoreByID.
func (t *progressTracker) callback(jobID string) backup.ProgressCallback {
	return func(percent int, step backup.ProgressStep, message string) {
		t.mu.Lock()
		defer t.mu.Unlock()
		job, ok := t.jobs[jobID]
		if !ok {
			return
		}
		job.Percent = percent
		job.Step = step
		job.Message = message
	}
}

func (t *progressTracker) finish(jobID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[jobID]
	if !ok {
		return
	}
	job.Done = true
	if err != nil {
		job.Err = err.Error()
	} else {
		job.Percent = 100
		job.Step = backup.StepComplete
	}
}

func (t *progressTracker) get(jobID string) (RestoreJobState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[jobID]
	if !ok {
		return RestoreJobState{}, false
	}
	return *job, true
}
