package handler

import (
	"net/http"
	"runtime"

	"github.com/cloddsbot/core/internal/server/metrics"
)

// MetricsHandler serves the /metrics endpoint: request counters plus basic
// process memory stats, in the shape an operator dashboard can poll without
// a dedicated metrics backend.
type MetricsHandler struct {
	recorder *metrics.Recorder
}

// NewMetricsHandler creates a MetricsHandler backed by recorder.
func NewMetricsHandler(recorder *metrics.Recorder) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

// Metrics reports request counts, error counts, memory usage, and goroutine
// count.
// GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	snap := h.recorder.Snapshot()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeJSON(w, http.StatusOK, map[string]any{
		"requests_total": snap.TotalRequests,
		"errors_total":   snap.ErrorCount,
		"goroutines":     runtime.NumGoroutine(),
		"memory": map[string]uint64{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            uint64(m.NumGC),
		},
	})
}
