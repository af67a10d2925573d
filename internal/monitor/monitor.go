// Package monitor watches a configured set of directories for filesystem
// changes, debounces bursts of events per path, and hands eligible,
// changed paths to the backup pipeline's queue without holding a
// reference to the pipeline itself.
package monitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vaultwatch/vaultwatch/internal/backup"
	"github.com/vaultwatch/vaultwatch/internal/catalog"
	"github.com/vaultwatch/vaultwatch/internal/logging"
	"github.com/vaultwatch/vaultwatch/internal/metrics"
)

// Enqueuer is the only capability the monitor needs from the backup
// pipeline: the ability to append a path to its queue. Depending on this
// narrow interface instead of *backup.Pipeline avoids a cyclic ownership
// relationship between the two packages.
type Enqueuer interface {
	Enqueue(path string)
}

// Monitor watches WatchedDirectories for changes and debounces bursts of
// events per path before enqueuing them for backup.
type Monitor struct {
	Catalog         *catalog.Catalog
	DeviceID        string
	Filter          backup.Filter
	DebounceSeconds time.Duration
	Queue           Enqueuer

	watcher *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   map[string]time.Time
	timer     *time.Timer
}

// Start opens the underlying watcher, recursively adds every directory
// under each root in dirs, and begins the event loop. It returns once the
// watcher is ready; the event loop runs until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context, dirs []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = w
	m.pending = make(map[string]time.Time)

	for _, root := range dirs {
		if err := m.addRecursive(root); err != nil {
			logging.Warn().Err(err).Str("root", root).Msg("failed to watch directory")
		}
	}

	go m.loop(ctx)
	return nil
}

// AddWatch adds a new directory tree to the live watcher. Removing a
// watched directory is not supported; it requires a monitor restart.
func (m *Monitor) AddWatch(root string) error {
	return m.addRecursive(root)
}

func (m *Monitor) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return m.watcher.Add(path)
	})
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			m.pendingMu.Lock()
			if m.timer != nil {
				m.timer.Stop()
			}
			m.pendingMu.Unlock()
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().Err(err).Msg("filesystem watcher error")
		}
	}
}

func (m *Monitor) handleEvent(event fsnotify.Event) {
	path := event.Name
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return
	}
	if strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, ".temp") || strings.HasSuffix(base, ".swp") {
		return
	}

	eventType := classifyEvent(event)
	metrics.MonitorEventsTotal.WithLabelValues(eventType).Inc()
	if eventType == "remove" {
		return
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if event.Has(fsnotify.Create) {
			_ = m.addRecursive(path)
		}
		return
	}

	if !backup.ShouldBackup(path, m.Filter) {
		return
	}

	m.debounce(path)
}

func classifyEvent(event fsnotify.Event) string {
	switch {
	case event.Has(fsnotify.Create):
		return "create"
	case event.Has(fsnotify.Write):
		return "write"
	case event.Has(fsnotify.Remove):
		return "remove"
	case event.Has(fsnotify.Rename):
		return "rename"
	default:
		return "other"
	}
}

// debounce records path's arrival time and (re)arms the single debounce
// timer. When the timer fires, every pending path whose age has reached
// DebounceSeconds is enqueued and dropped from the pending set.
func (m *Monitor) debounce(path string) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	if _, already := m.pending[path]; already {
		metrics.DebounceEventsCoalesced.Inc()
	}
	m.pending[path] = time.Now()

	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounceWindow(), m.flushPending)
}

func (m *Monitor) debounceWindow() time.Duration {
	if m.DebounceSeconds <= 0 {
		return 5 * time.Second
	}
	return m.DebounceSeconds
}

func (m *Monitor) flushPending() {
	m.pendingMu.Lock()
	window := m.debounceWindow()
	now := time.Now()
	ready := make([]string, 0, len(m.pending))
	for path, seenAt := range m.pending {
		if now.Sub(seenAt) >= window {
			ready = append(ready, path)
			delete(m.pending, path)
		}
	}
	stillPending := len(m.pending) > 0
	m.pendingMu.Unlock()

	for _, path := range ready {
		if m.Catalog != nil {
			if err := m.Catalog.UpdateSyncStatus(context.Background(), path, m.DeviceID, now, catalog.StatusPending, ""); err != nil {
				logging.Warn().Err(err).Str("path", path).Msg("failed to mark pending sync status")
			}
		}
		m.Queue.Enqueue(path)
	}

	if stillPending {
		m.pendingMu.Lock()
		m.timer = time.AfterFunc(window, m.flushPending)
		m.pendingMu.Unlock()
	}
}

// ScanResult summarizes the initial reconciling scan.
type ScanResult struct {
	Enqueued int
	Errors   map[string]error
}

// InitialScan walks every watched directory once at startup, skipping
// hidden directories, and enqueues every file that is both eligible and
// changed since its last backup. It emits no filesystem events; it only
// seeds the queue and marks sync status.
func (m *Monitor) InitialScan(ctx context.Context, dirs []string) ScanResult {
	result := ScanResult{Errors: make(map[string]error)}

	for _, root := range dirs {
		_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				result.Errors[path] = err
				return nil
			}
			if info.IsDir() {
				if strings.HasPrefix(info.Name(), ".") && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if !backup.ShouldBackup(path, m.Filter) {
				return nil
			}
			if !backup.NeedsBackup(ctx, m.Catalog, path, m.DeviceID) {
				return nil
			}
			if err := m.Catalog.UpdateSyncStatus(ctx, path, m.DeviceID, info.ModTime(), catalog.StatusPending, ""); err != nil {
				result.Errors[path] = err
				return nil
			}
			m.Queue.Enqueue(path)
			result.Enqueued++
			return nil
		})
	}

	return result
}
