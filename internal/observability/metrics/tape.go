// Package metrics provides Prometheus collectors for tapedeck.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TapeMetrics contains Prometheus metrics for the tape transport and its disk worker.
// It satisfies tape.Recorder.
type TapeMetrics struct {
	registry *prometheus.Registry

	// Transport metrics
	seeksTotal         *prometheus.CounterVec
	framesReadTotal    *prometheus.CounterVec
	framesWrittenTotal *prometheus.CounterVec
	shortReadsTotal    *prometheus.CounterVec

	// Worker metrics
	refillsTotal       *prometheus.CounterVec
	framesLoadedTotal  *prometheus.CounterVec
	refillDuration     *prometheus.HistogramVec
	framesEvictedTotal *prometheus.CounterVec
	framesFlushedTotal prometheus.Counter
	flushDuration      prometheus.Histogram
	diskErrorsTotal    *prometheus.CounterVec

	// Window fill
	windowFrames *prometheus.GaugeVec
}

// NewTapeMetrics creates and registers new tape metrics
func NewTapeMetrics(registry *prometheus.Registry) (*TapeMetrics, error) {
	m := &TapeMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *TapeMetrics) initMetrics() {
	m.seeksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tape_seeks_total",
			Help: "Total number of seeks by path",
		},
		[]string{"path"}, // cached, discarded
	)

	m.framesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tape_frames_read_total",
			Help: "Frames returned to consumers",
		},
		[]string{"direction"},
	)

	m.framesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tape_frames_written_total",
			Help: "Frames overdubbed by consumers",
		},
		[]string{"direction"},
	)

	m.shortReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tape_short_reads_total",
			Help: "Consumer reads that returned fewer frames than requested",
		},
		[]string{"direction"},
	)

	m.refillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tape_refills_total",
			Help: "Committed worker refills",
		},
		[]string{"direction"},
	)

	m.framesLoadedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tape_frames_loaded_total",
			Help: "Frames loaded from disk into the ring",
		},
		[]string{"direction"},
	)

	m.refillDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tape_refill_duration_seconds",
			Help:    "Time from refill read to commit",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
		},
		[]string{"direction"},
	)

	m.framesEvictedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tape_frames_evicted_total",
			Help: "Frames evicted from the opposite window by a refill",
		},
		[]string{"direction"}, // direction of the refill that evicted
	)

	m.framesFlushedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tape_frames_flushed_total",
			Help: "Overdubbed frames written back to disk",
		},
	)

	m.flushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tape_flush_duration_seconds",
			Help:    "Time taken to write back pending frames",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)

	m.diskErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tape_disk_errors_total",
			Help: "Failed disk operations in the worker",
		},
		[]string{"operation"}, // read, write, sync
	)

	m.windowFrames = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tape_window_frames",
			Help: "Frames cached on each side of the play position",
		},
		[]string{"direction"},
	)
}

// RecordSeek counts a seek by the path it took.
func (m *TapeMetrics) RecordSeek(path string) {
	m.seeksTotal.WithLabelValues(path).Inc()
}

// RecordFramesRead counts frames handed to a consumer.
func (m *TapeMetrics) RecordFramesRead(direction string, frames int) {
	m.framesReadTotal.WithLabelValues(direction).Add(float64(frames))
}

// RecordFramesWritten counts frames overdubbed by a consumer.
func (m *TapeMetrics) RecordFramesWritten(direction string, frames int) {
	m.framesWrittenTotal.WithLabelValues(direction).Add(float64(frames))
}

// RecordShortRead counts a read that ran out of cached frames.
func (m *TapeMetrics) RecordShortRead(direction string) {
	m.shortReadsTotal.WithLabelValues(direction).Inc()
}

// RecordRefill records a committed refill.
func (m *TapeMetrics) RecordRefill(direction string, frames int, seconds float64) {
	m.refillsTotal.WithLabelValues(direction).Inc()
	m.framesLoadedTotal.WithLabelValues(direction).Add(float64(frames))
	m.refillDuration.WithLabelValues(direction).Observe(seconds)
}

// RecordEviction counts frames pushed out of the opposite window.
func (m *TapeMetrics) RecordEviction(direction string, frames int) {
	m.framesEvictedTotal.WithLabelValues(direction).Add(float64(frames))
}

// RecordFlush records a write-back pass.
func (m *TapeMetrics) RecordFlush(frames int, seconds float64) {
	m.framesFlushedTotal.Add(float64(frames))
	m.flushDuration.Observe(seconds)
}

// RecordDiskError counts a failed disk operation.
func (m *TapeMetrics) RecordDiskError(operation string) {
	m.diskErrorsTotal.WithLabelValues(operation).Inc()
}

// SetWindow publishes the current window fill.
func (m *TapeMetrics) SetWindow(ahead, behind int) {
	m.windowFrames.WithLabelValues(DirectionForward).Set(float64(ahead))
	m.windowFrames.WithLabelValues(DirectionBackward).Set(float64(behind))
}

// Describe implements the prometheus.Collector interface
func (m *TapeMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.seeksTotal.Describe(ch)
	m.framesReadTotal.Describe(ch)
	m.framesWrittenTotal.Describe(ch)
	m.shortReadsTotal.Describe(ch)
	m.refillsTotal.Describe(ch)
	m.framesLoadedTotal.Describe(ch)
	m.refillDuration.Describe(ch)
	m.framesEvictedTotal.Describe(ch)
	m.framesFlushedTotal.Describe(ch)
	m.flushDuration.Describe(ch)
	m.diskErrorsTotal.Describe(ch)
	m.windowFrames.Describe(ch)
}

// Collect implements the prometheus.Collector interface
func (m *TapeMetrics) Collect(ch chan<- prometheus.Metric) {
	m.seeksTotal.Collect(ch)
	m.framesReadTotal.Collect(ch)
	m.framesWrittenTotal.Collect(ch)
	m.shortReadsTotal.Collect(ch)
	m.refillsTotal.Collect(ch)
	m.framesLoadedTotal.Collect(ch)
	m.refillDuration.Collect(ch)
	m.framesEvictedTotal.Collect(ch)
	m.framesFlushedTotal.Collect(ch)
	m.flushDuration.Collect(ch)
	m.diskErrorsTotal.Collect(ch)
	m.windowFrames.Collect(ch)
}
