// Package pipeline - Drives a frame source through the shape detector and
// collects the per-frame results in presentation order.
//
// Pipeline Overview:
//
// ┌──────────────┐     ┌──────────────────────┐     ┌───────────────────┐
// │ frames.Source│ ──▶ │ N detection workers  │ ──▶ │ sort by frame     │
// │ (sequential) │     │ (shapes.Detector)    │     │ index, timestamp  │
// └──────────────┘     └──────────────────────┘     └───────────────────┘
package pipeline

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/nvr-ai/go-keyframes/frames"
	"github.com/nvr-ai/go-keyframes/keyframes"
	"github.com/nvr-ai/go-keyframes/profiler"
	"github.com/nvr-ai/go-keyframes/shapes"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// OperationDetect is the profiler operation timing one Detect call.
	OperationDetect = "detect_frame"
	// MetricShapesPerFrame is the profiler metric counting records per frame.
	MetricShapesPerFrame = "shapes_per_frame"
)

// FrameHook observes a frame and its records before the frame is released.
// The hook must not retain frame.Mat.
type FrameHook func(frame frames.Frame, records []shapes.Record) error

// Options configures an extraction run.
type Options struct {
	// Workers is the number of concurrent detection goroutines. Values below one mean one.
	Workers int
	// Logger receives progress diagnostics. Nil disables logging.
	Logger *zap.Logger
	// Profiler, when set, records detection timings and shape counts.
	Profiler *profiler.RuntimeProfiler
	// OnFrame, when set, is called for every frame from the worker that processed it.
	OnFrame FrameHook
}

// Stats summarizes an extraction run.
type Stats struct {
	// Frames is the number of frames processed.
	Frames int
	// Shapes is the number of records across all frames.
	Shapes int
	// Kinds counts records per shape kind.
	Kinds map[shapes.Kind]int
	// Elapsed is the wall time of the run.
	Elapsed time.Duration
	// MeanDetect is the mean time spent in Detect per frame.
	MeanDetect time.Duration
}

// Extract runs det over every frame of src.
//
// Frames are read sequentially and detected concurrently; each frame's Mat is
// closed once it has been processed. The results are ordered by frame index, then
// timestamp, regardless of which worker finished first.
//
// Arguments:
//   - ctx: Cancels the run.
//   - src: The frame source. Extract reads it to the end but does not Close it.
//   - det: The detector, shared by all workers.
//   - opts: Worker count, logging, profiling and the optional frame hook.
//
// Returns:
//   - []keyframes.FrameResult: One result per frame, in presentation order.
//   - Stats: Totals for the run.
//   - error: The first source, detection or hook error, or ctx.Err().
//
// @example
// results, stats, err := pipeline.Extract(ctx, src, detector, pipeline.Options{Workers: 4})
//
//	if err != nil {
//	    return err
//	}
//
// doc := keyframes.FromResults(results)
func Extract(ctx context.Context, src frames.Source, det *shapes.Detector, opts Options) ([]keyframes.FrameResult, Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan frames.Frame)

	// Producer: decoding is sequential per source.
	g.Go(func() error {
		defer close(jobs)
		for {
			frame, err := src.Next(gctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return errors.Wrap(err, "read frame")
			}

			select {
			case jobs <- frame:
			case <-gctx.Done():
				frame.Close()
				return gctx.Err()
			}
		}
	})

	var (
		mu          sync.Mutex
		results     []keyframes.FrameResult
		detectTotal time.Duration
	)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for frame := range jobs {
				// Release whatever is still queued once the run has failed.
				if gctx.Err() != nil {
					frame.Close()
					continue
				}

				result, took, err := process(frame, det, opts)
				if err != nil {
					return err
				}

				mu.Lock()
				results = append(results, result)
				detectTotal += took
				mu.Unlock()

				logger.Debug("processed frame",
					zap.Int("index", result.Index),
					zap.Float64("timestamp_ms", result.TimestampMs),
					zap.Int("shapes", len(result.Shapes)),
					zap.Duration("detect", took),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Index != results[j].Index {
			return results[i].Index < results[j].Index
		}
		return results[i].TimestampMs < results[j].TimestampMs
	})
	if results == nil {
		results = []keyframes.FrameResult{}
	}

	stats := summarize(results)
	stats.Elapsed = time.Since(start)
	if stats.Frames > 0 {
		stats.MeanDetect = detectTotal / time.Duration(stats.Frames)
	}

	logger.Info("extraction finished",
		zap.Int("frames", stats.Frames),
		zap.Int("shapes", stats.Shapes),
		zap.Duration("elapsed", stats.Elapsed),
		zap.Duration("mean_detect", stats.MeanDetect),
		zap.Int("workers", workers),
	)

	return results, stats, nil
}

// process detects the shapes of one frame and releases it.
func process(frame frames.Frame, det *shapes.Detector, opts Options) (keyframes.FrameResult, time.Duration, error) {
	defer frame.Close()

	start := time.Now()
	records, err := det.Detect(frame.Mat)
	took := time.Since(start)
	if err != nil {
		return keyframes.FrameResult{}, took, errors.Wrapf(err, "frame %d", frame.Index)
	}

	if opts.Profiler != nil {
		opts.Profiler.RecordOperation(OperationDetect, took)
		opts.Profiler.RecordMetric(MetricShapesPerFrame, float64(len(records)))
	}

	if opts.OnFrame != nil {
		if err := opts.OnFrame(frame, records); err != nil {
			return keyframes.FrameResult{}, took, errors.Wrapf(err, "frame %d hook", frame.Index)
		}
	}

	return keyframes.FrameResult{
		Index:       frame.Index,
		TimestampMs: frame.TimestampMs,
		Shapes:      records,
	}, took, nil
}

func summarize(results []keyframes.FrameResult) Stats {
	stats := Stats{
		Frames: len(results),
		Kinds:  make(map[shapes.Kind]int, len(shapes.Kinds)),
	}
	for _, r := range results {
		stats.Shapes += len(r.Shapes)
		for _, rec := range r.Shapes {
			stats.Kinds[rec.Kind]++
		}
	}
	return stats
}
