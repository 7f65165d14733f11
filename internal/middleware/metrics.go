package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application counters
type Metrics struct {
	RequestsTotal      uint64
	RequestsFailed     uint64
	ScansTriggered     uint64
	ScansCancelled     uint64
	SummariesTriggered uint64
	AbnormalityUpdates uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementScansTriggered counts manual and scheduled scan starts
func IncrementScansTriggered() { atomic.AddUint64(&globalMetrics.ScansTriggered, 1) }

// IncrementScansCancelled counts cancellation requests
func IncrementScansCancelled() { atomic.AddUint64(&globalMetrics.ScansCancelled, 1) }

// IncrementSummariesTriggered counts manual summary runs
func IncrementSummariesTriggered() { atomic.AddUint64(&globalMetrics.SummariesTriggered, 1) }

// IncrementAbnormalityUpdates counts operator status changes
func IncrementAbnormalityUpdates() { atomic.AddUint64(&globalMetrics.AbnormalityUpdates, 1) }

// MetricsMiddleware counts requests and failures
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint64(&globalMetrics.RequestsTotal, 1)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 500 {
			atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
		}
	})
}

// MetricsHandler serves the counters plus basic runtime stats as JSON.
func MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		out := map[string]any{
			"requests_total":      atomic.LoadUint64(&globalMetrics.RequestsTotal),
			"requests_failed":     atomic.LoadUint64(&globalMetrics.RequestsFailed),
			"scans_triggered":     atomic.LoadUint64(&globalMetrics.ScansTriggered),
			"scans_cancelled":     atomic.LoadUint64(&globalMetrics.ScansCancelled),
			"summaries_triggered": atomic.LoadUint64(&globalMetrics.SummariesTriggered),
			"abnormality_updates": atomic.LoadUint64(&globalMetrics.AbnormalityUpdates),
			"uptime_seconds":      time.Since(globalMetrics.StartTime).Seconds(),
			"goroutines":          runtime.NumGoroutine(),
			"heap_alloc_bytes":    m.HeapAlloc,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}
