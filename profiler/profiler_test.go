package profiler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type constantCollector struct{}

func (constantCollector) CollectMetrics() map[string]float64 {
	return map[string]float64{"queue_depth": 4}
}

func TestRecordMetric(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{MaxSamples: 3})

	for _, v := range []float64{1, 2, 3, 10} {
		rp.RecordMetric("shapes_per_frame", v)
	}

	m, ok := rp.Snapshot().Metric("shapes_per_frame")
	require.True(t, ok)

	// The window keeps the last three values; min and max cover the whole run.
	assert.Equal(t, 3, m.Samples)
	assert.Equal(t, int64(4), m.Count)
	assert.InDelta(t, 5, m.Avg, 1e-9)
	assert.Equal(t, 1.0, m.Min)
	assert.Equal(t, 10.0, m.Max)

	_, ok = rp.Snapshot().Metric("missing")
	assert.False(t, ok)
}

func TestRecordOperation(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{})

	rp.RecordOperation("detect_frame", 2*time.Millisecond)
	rp.RecordOperation("detect_frame", 4*time.Millisecond)
	stop := rp.StartOperation("encode")
	stop()

	report := rp.Snapshot()
	require.Len(t, report.Operations, 2)
	assert.Equal(t, "detect_frame", report.Operations[0].Name)
	assert.Equal(t, "encode", report.Operations[1].Name)

	op, ok := report.Operation("detect_frame")
	require.True(t, ok)
	assert.Equal(t, 3*time.Millisecond, op.Avg)
	assert.Equal(t, 2*time.Millisecond, op.Min)
	assert.Equal(t, 4*time.Millisecond, op.Max)
	assert.Equal(t, int64(2), op.Count)
}

func TestConcurrentRecording(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rp.RecordMetric("m", 1)
				rp.RecordOperation("op", time.Microsecond)
			}
		}()
	}
	wg.Wait()

	report := rp.Snapshot()
	m, _ := report.Metric("m")
	op, _ := report.Operation("op")
	assert.Equal(t, int64(800), m.Count)
	assert.Equal(t, int64(800), op.Count)
}

func TestStartStopReportsThroughLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rp := NewRuntimeProfiler(ProfilingOptions{
		ReportInterval: 10 * time.Millisecond,
		SampleInterval: 5 * time.Millisecond,
		Logger:         zap.New(core),
	})
	rp.AddMetricsCollector(constantCollector{})
	rp.RecordOperation("detect_frame", time.Millisecond)

	rp.Start()
	rp.Start()
	require.Eventually(t, func() bool {
		return logs.FilterMessage("runtime profiler status").Len() > 0
	}, 2*time.Second, 5*time.Millisecond)
	rp.Stop()
	rp.Stop()

	m, ok := rp.Snapshot().Metric("queue_depth")
	require.True(t, ok)
	assert.Equal(t, 4.0, m.Avg)

	assert.Greater(t, logs.FilterMessage("operation timing").Len(), 0)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "1.5 MB", formatBytes(1536*1024))
}
