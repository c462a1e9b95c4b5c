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
	casesCreatedTotal     atomic.Uint64
	uploadsConsumedTotal  atomic.Uint64
	validationPassedTotal atomic.Uint64
	validationFailedTotal atomic.Uint64

	validationDuration = newHistogram([]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000})
)

// IncCaseCreated increments the created-cases counter.
func IncCaseCreated() {
	casesCreatedTotal.Add(1)
}

// IncUploadConsumed increments the consumed-grants counter.
func IncUploadConsumed() {
	uploadsConsumedTotal.Add(1)
}

// IncValidationPassed increments the passed-validations counter.
func IncValidationPassed() {
	validationPassedTotal.Add(1)
}

// IncValidationFailed increments the failed-validations counter.
func IncValidationFailed() {
	validationFailedTotal.Add(1)
}

// ObserveValidationDurationMs records a content-validation duration in milliseconds.
func ObserveValidationDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	validationDuration.Observe(value)
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
	writeCounter(&buf, "cases_created_total", "Total case folders created", casesCreatedTotal.Load())
	writeCounter(&buf, "uploads_consumed_total", "Total upload grants consumed", uploadsConsumedTotal.Load())
	writeCounter(&buf, "validation_passed_total", "Total documents that passed content validation", validationPassedTotal.Load())
	writeCounter(&buf, "validation_failed_total", "Total documents that failed content validation", validationFailedTotal.Load())
	writeHistogram(&buf, "validation_duration_ms", "Content validation duration in milliseconds", validationDuration.Snapshot())
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
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
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
