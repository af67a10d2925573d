package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/metrics"
)

// metricsResponseWriter wraps http.ResponseWriter to capture the status
// code written, since net/http gives no way to read it back afterward.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// PrometheusInstrumentation records request counts, durations, and
// in-flight concurrency for every dashboard API call.
func PrometheusInstrumentation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		wrapper := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		metrics.RecordAPIRequest(r.Method, r.URL.Path, strconv.Itoa(wrapper.statusCode), time.Since(start))
	})
}
