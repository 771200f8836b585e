package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *TapeMetrics {
	t.Helper()
	m, err := NewTapeMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestTapeMetricsRegisterOnce(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewTapeMetrics(registry)
	require.NoError(t, err)

	_, err = NewTapeMetrics(registry)
	assert.Error(t, err, "duplicate registration must fail")
}

func TestTransportCounters(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	m.RecordSeek(SeekCached)
	m.RecordSeek(SeekCached)
	m.RecordSeek(SeekDiscarded)
	m.RecordFramesRead(DirectionForward, 128)
	m.RecordFramesRead(DirectionBackward, 64)
	m.RecordFramesWritten(DirectionForward, 10)
	m.RecordShortRead(DirectionBackward)

	assert.InDelta(t, 2, testutil.ToFloat64(m.seeksTotal.WithLabelValues(SeekCached)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.seeksTotal.WithLabelValues(SeekDiscarded)), 0)
	assert.InDelta(t, 128, testutil.ToFloat64(m.framesReadTotal.WithLabelValues(DirectionForward)), 0)
	assert.InDelta(t, 64, testutil.ToFloat64(m.framesReadTotal.WithLabelValues(DirectionBackward)), 0)
	assert.InDelta(t, 10, testutil.ToFloat64(m.framesWrittenTotal.WithLabelValues(DirectionForward)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.shortReadsTotal.WithLabelValues(DirectionBackward)), 0)
}

func TestWorkerMetrics(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	m.RecordRefill(DirectionForward, 468, 0.002)
	m.RecordRefill(DirectionForward, 100, 0.001)
	m.RecordEviction(DirectionForward, 36)
	m.RecordFlush(12, 0.0005)
	m.RecordDiskError(OpRead)
	m.SetWindow(468, 200)

	assert.InDelta(t, 2, testutil.ToFloat64(m.refillsTotal.WithLabelValues(DirectionForward)), 0)
	assert.InDelta(t, 568, testutil.ToFloat64(m.framesLoadedTotal.WithLabelValues(DirectionForward)), 0)
	assert.InDelta(t, 36, testutil.ToFloat64(m.framesEvictedTotal.WithLabelValues(DirectionForward)), 0)
	assert.InDelta(t, 12, testutil.ToFloat64(m.framesFlushedTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.diskErrorsTotal.WithLabelValues(OpRead)), 0)
	assert.InDelta(t, 468, testutil.ToFloat64(m.windowFrames.WithLabelValues(DirectionForward)), 0)
	assert.InDelta(t, 200, testutil.ToFloat64(m.windowFrames.WithLabelValues(DirectionBackward)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.refillDuration))
}
