package pipeline

import (
	"context"
	"image"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvr-ai/go-keyframes/frames"
	"github.com/nvr-ai/go-keyframes/profiler"
	"github.com/nvr-ai/go-keyframes/shapes"
	"github.com/nvr-ai/go-keyframes/test"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func newDetector(t *testing.T) *shapes.Detector {
	t.Helper()
	det, err := shapes.NewDetector(shapes.DefaultConfig())
	require.NoError(t, err)
	return det
}

// threeFrameSource is a blank frame, a frame with a rectangle and a frame with a
// rectangle and a triangle, at 0, 33 and 67 ms.
func threeFrameSource() *frames.Slice {
	gen := test.NewMockFrameGenerator(320, 240)
	rect := test.Rectangle(image.Rect(30, 40, 110, 100), test.Red)
	triangle := test.Triangle(image.Pt(220, 150), 100, test.Green)

	return frames.NewSlice(
		frames.Frame{Index: 0, TimestampMs: 0, Mat: gen.Blank()},
		frames.Frame{Index: 1, TimestampMs: 33, Mat: gen.Frame(rect)},
		frames.Frame{Index: 2, TimestampMs: 67, Mat: gen.Frame(rect, triangle)},
	)
}

func TestExtractEndToEnd(t *testing.T) {
	for _, workers := range []int{1, 3} {
		src := threeFrameSource()
		defer src.Close()

		results, stats, err := Extract(context.Background(), src, newDetector(t), Options{Workers: workers})
		require.NoError(t, err)
		require.Len(t, results, 3)

		timestamps := make([]float64, 0, len(results))
		counts := make([]int, 0, len(results))
		for _, r := range results {
			timestamps = append(timestamps, r.TimestampMs)
			counts = append(counts, len(r.Shapes))
		}
		assert.Equal(t, []float64{0, 33, 67}, timestamps, "workers=%d", workers)
		assert.Equal(t, []int{0, 1, 2}, counts, "workers=%d", workers)

		kinds := []shapes.Kind{results[2].Shapes[0].Kind, results[2].Shapes[1].Kind}
		assert.ElementsMatch(t, []shapes.Kind{shapes.Rectangle, shapes.Triangle}, kinds)

		assert.Equal(t, 3, stats.Frames)
		assert.Equal(t, 3, stats.Shapes)
		assert.Equal(t, 2, stats.Kinds[shapes.Rectangle])
		assert.Equal(t, 1, stats.Kinds[shapes.Triangle])
		assert.Positive(t, stats.Elapsed)
	}
}

func TestExtractMatchesSequentialDetection(t *testing.T) {
	det := newDetector(t)

	src := threeFrameSource()
	defer src.Close()
	results, _, err := Extract(context.Background(), src, det, Options{Workers: 4})
	require.NoError(t, err)

	reference := threeFrameSource()
	defer reference.Close()
	for i := 0; i < 3; i++ {
		frame, err := reference.Next(context.Background())
		require.NoError(t, err)
		records, err := det.Detect(frame.Mat)
		frame.Close()
		require.NoError(t, err)

		if diff := cmp.Diff(records, results[i].Shapes); diff != "" {
			t.Errorf("frame %d differs from sequential detection (-want +got):\n%s", i, diff)
		}
	}
}

func TestExtractOrdersByIndex(t *testing.T) {
	gen := test.NewMockFrameGenerator(64, 64)
	src := frames.NewSlice(
		frames.Frame{Index: 2, TimestampMs: 67, Mat: gen.Blank()},
		frames.Frame{Index: 0, TimestampMs: 0, Mat: gen.Blank()},
		frames.Frame{Index: 1, TimestampMs: 33, Mat: gen.Blank()},
	)
	defer src.Close()

	results, _, err := Extract(context.Background(), src, newDetector(t), Options{Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
}

func TestExtractEmptySource(t *testing.T) {
	src := frames.NewSlice()
	defer src.Close()

	results, stats, err := Extract(context.Background(), src, newDetector(t), Options{})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, 0, stats.Frames)
	assert.Zero(t, stats.MeanDetect)
}

func TestExtractCancelled(t *testing.T) {
	src := threeFrameSource()
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Extract(ctx, src, newDetector(t), Options{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractInvalidFrame(t *testing.T) {
	gen := test.NewMockFrameGenerator(64, 64)
	src := frames.NewSlice(
		frames.Frame{Index: 0, TimestampMs: 0, Mat: gen.Blank()},
		frames.Frame{Index: 1, TimestampMs: 33, Mat: gocv.Zeros(64, 64, gocv.MatTypeCV8UC1)},
		frames.Frame{Index: 2, TimestampMs: 67, Mat: gen.Blank()},
	)
	defer src.Close()

	_, _, err := Extract(context.Background(), src, newDetector(t), Options{Workers: 1})
	assert.ErrorIs(t, err, shapes.ErrInvalidFrame)
	assert.Contains(t, err.Error(), "frame 1")
}

func TestExtractHookAndProfiler(t *testing.T) {
	src := threeFrameSource()
	defer src.Close()

	rp := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{})
	var calls, records int64

	_, _, err := Extract(context.Background(), src, newDetector(t), Options{
		Workers:  2,
		Profiler: rp,
		OnFrame: func(frame frames.Frame, recs []shapes.Record) error {
			assert.False(t, frame.Mat.Empty())
			atomic.AddInt64(&calls, 1)
			atomic.AddInt64(&records, int64(len(recs)))
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls)
	assert.Equal(t, int64(3), records)

	report := rp.Snapshot()
	op, ok := report.Operation(OperationDetect)
	require.True(t, ok)
	assert.Equal(t, int64(3), op.Count)

	m, ok := report.Metric(MetricShapesPerFrame)
	require.True(t, ok)
	assert.InDelta(t, 1, m.Avg, 1e-9)
	assert.Equal(t, 2.0, m.Max)
}

func TestExtractHookError(t *testing.T) {
	src := threeFrameSource()
	defer src.Close()

	boom := errors.New("disk full")
	_, _, err := Extract(context.Background(), src, newDetector(t), Options{
		Workers: 2,
		OnFrame: func(frames.Frame, []shapes.Record) error { return boom },
	})
	assert.ErrorIs(t, err, boom)
}
