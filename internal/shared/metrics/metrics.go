package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	uploadsStoredTotal   atomic.Uint64
	uploadsRejectedTotal atomic.Uint64
	uploadsFailedTotal   atomic.Uint64
	cleanupFailedTotal   atomic.Uint64
	resolveFallbackTotal atomic.Uint64
	loginFailedTotal     atomic.Uint64

	uploadDuration = newHistogram([]float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000})
)

// IncUploadStored counts uploads that reached Done.
func IncUploadStored() {
	uploadsStoredTotal.Add(1)
}

// IncUploadRejected counts uploads refused by validation or policy.
func IncUploadRejected() {
	uploadsRejectedTotal.Add(1)
}

// IncUploadFailed counts uploads that failed at storage or record time.
func IncUploadFailed() {
	uploadsFailedTotal.Add(1)
}

// IncCleanupFailed counts best-effort deletions that did not succeed.
func IncCleanupFailed() {
	cleanupFailedTotal.Add(1)
}

// IncResolveFallback counts resolutions that could not read the record store.
func IncResolveFallback() {
	resolveFallbackTotal.Add(1)
}

// IncLoginFailed counts rejected admin logins.
func IncLoginFailed() {
	loginFailedTotal.Add(1)
}

// ObserveUploadDurationMs records an upload duration in milliseconds.
func ObserveUploadDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	uploadDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "menu_uploads_stored_total", "Menu uploads stored and recorded", uploadsStoredTotal.Load())
	writeCounter(&buf, "menu_uploads_rejected_total", "Menu uploads rejected before storage", uploadsRejectedTotal.Load())
	writeCounter(&buf, "menu_uploads_failed_total", "Menu uploads failed at storage or record time", uploadsFailedTotal.Load())
	writeCounter(&buf, "menu_cleanup_failed_total", "Best-effort file deletions that failed", cleanupFailedTotal.Load())
	writeCounter(&buf, "menu_resolve_fallback_total", "Menu resolutions served from defaults after a store error", resolveFallbackTotal.Load())
	writeCounter(&buf, "admin_login_failed_total", "Rejected admin logins", loginFailedTotal.Load())
	writeHistogram(&buf, "menu_upload_duration_ms", "Menu upload duration in milliseconds", uploadDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	// counts are per bucket; writeHistogram accumulates them
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
