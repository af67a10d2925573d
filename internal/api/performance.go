package api

import (
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/logging"
)

// requestSample is one completed dashboard API call.
type requestSample struct {
	path       string
	method     string
	durationMS int64
	statusCode int
	timestamp  time.Time
}

// EndpointStats summarizes latency for one method+path pair.
type EndpointStats struct {
	Path          string  `json:"path"`
	RequestCount  int64   `json:"request_count"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	P50DurationMS int64   `json:"p50_duration_ms"`
	P95DurationMS int64   `json:"p95_duration_ms"`
	P99DurationMS int64   `json:"p99_duration_ms"`
}

// performanceMonitor keeps a bounded sliding window of recent dashboard API
// request latencies, used to surface p50/p95/p99 per endpoint without
// needing a Prometheus query engine on a personal backup agent.
type performanceMonitor struct {
	mu         sync.RWMutex
	samples    []requestSample
	maxSamples int

	slowThreshold time.Duration
}

func newPerformanceMonitor(maxSamples int, slowThreshold time.Duration) *performanceMonitor {
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	return &performanceMonitor{
		samples:       make([]requestSample, 0, maxSamples),
		maxSamples:    maxSamples,
		slowThreshold: slowThreshold,
	}
}

func (pm *performanceMonitor) record(method, path string, duration time.Duration, statusCode int) {
	pm.mu.Lock()
	pm.samples = append(pm.samples, requestSample{
		path:       path,
		method:     method,
		durationMS: duration.Milliseconds(),
		statusCode: statusCode,
		timestamp:  time.Now(),
	})
	if len(pm.samples) > pm.maxSamples {
		pm.samples = pm.samples[1:]
	}
	pm.mu.Unlock()

	if pm.slowThreshold > 0 && duration > pm.slowThreshold {
		logging.Warn().Str("method", method).Str("path", path).Dur("duration", duration).Msg("slow dashboard API request")
	}
}

func (pm *performanceMonitor) stats() []EndpointStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	byEndpoint := make(map[string][]int64)
	for _, s := range pm.samples {
		key := s.method + " " + s.path
		byEndpoint[key] = append(byEndpoint[key], s.durationMS)
	}

	out := make([]EndpointStats, 0, len(byEndpoint))
	for endpoint, durations := range byEndpoint {
		sorted := append([]int64(nil), durations...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, d := range sorted {
			sum += d
		}

		out = append(out, EndpointStats{
			Path:          endpoint,
			RequestCount:  int64(len(sorted)),
			AvgDurationMS: float64(sum) / float64(len(sorted)),
			P50DurationMS: percentile(sorted, 0.50),
			P95DurationMS: percentile(sorted, 0.95),
			P99DurationMS: percentile(sorted, 0.99),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RequestCount > out[j].RequestCount })
	return out
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	// Nearest-rank: the smallest sample with at least p of all samples at
	// or below it.
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Track wraps next so every request's latency and status are recorded
// into the monitor.
func (pm *performanceMonitor) Track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		pm.record(r.Method, r.URL.Path, time.Since(start), wrapper.statusCode)
	})
}
