package main

import (
	"fmt"
	"time"

	"github.com/nvr-ai/go-keyframes/config"
	"github.com/nvr-ai/go-keyframes/frames"
	"github.com/nvr-ai/go-keyframes/images"
	"github.com/nvr-ai/go-keyframes/keyframes"
	"github.com/nvr-ai/go-keyframes/logging"
	"github.com/nvr-ai/go-keyframes/overlay"
	"github.com/nvr-ai/go-keyframes/pipeline"
	"github.com/nvr-ai/go-keyframes/profiler"
	"github.com/nvr-ai/go-keyframes/shapes"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// runConfig merges the optional config file with the flags that were set
// explicitly, on the command line or through the environment.
func runConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	if c.IsSet(flagVideo) {
		cfg.Video = c.String(flagVideo)
	}
	if c.IsSet(flagOutput) {
		cfg.Output = c.String(flagOutput)
	}
	if c.IsSet(flagFormat) {
		cfg.Format = c.String(flagFormat)
	}
	if c.IsSet(flagSource) {
		cfg.Source = c.String(flagSource)
	}
	if c.IsSet(flagFPS) {
		cfg.FPS = c.Float64(flagFPS)
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	if c.IsSet(flagOverlayDir) {
		cfg.Overlay.Dir = c.String(flagOverlayDir)
	}
	if c.IsSet(flagOverlayWidth) {
		cfg.Overlay.Width = c.Int(flagOverlayWidth)
	}
	if c.IsSet(flagOverlayFormat) {
		cfg.Overlay.Format = c.String(flagOverlayFormat)
	}
	if c.IsSet(flagProfile) {
		cfg.Profile = c.Bool(flagProfile)
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}
	cfg.Detection = detectionConfig(c, cfg.Detection)

	return cfg, nil
}

// detectionConfig applies the detection flags that were set on top of base.
func detectionConfig(c *cli.Context, base shapes.Config) shapes.Config {
	if c.IsSet(flagThreshold) {
		base.Threshold = c.Int(flagThreshold)
	}
	if c.IsSet(flagMinArea) {
		base.MinArea = c.Int(flagMinArea)
	}
	if c.IsSet(flagApproxTolerance) {
		base.ApproxTolerance = c.Float64(flagApproxTolerance)
	}
	return base
}

func extractAction(c *cli.Context) (err error) {
	cfg, err := runConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, c.Bool(flagDebug))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	detector, err := shapes.NewDetector(cfg.Detection)
	if err != nil {
		return err
	}

	kind, err := frames.ParseKind(cfg.Source)
	if err != nil {
		return err
	}
	src, err := frames.Open(kind, cfg.Video, frames.Options{FPS: cfg.FPS, Logger: logger})
	if err != nil {
		logger.Error("cannot open video", zap.String("video", cfg.Video), zap.Error(err))
		return err
	}
	defer func() {
		err = multierr.Append(err, src.Close())
	}()

	opts := pipeline.Options{
		Workers: cfg.Workers,
		Logger:  logger,
	}

	var rp *profiler.RuntimeProfiler
	if cfg.Profile {
		rp = profiler.NewRuntimeProfiler(profiler.ProfilingOptions{
			ReportInterval: 2 * time.Second,
			SampleInterval: 100 * time.Millisecond,
			MaxSamples:     600,
			Logger:         logger.Named("profiler"),
		})
		rp.Start()
		defer rp.Stop()
		opts.Profiler = rp
	}

	if cfg.Overlay.Dir != "" {
		format, err := images.ParseFormat(cfg.Overlay.Format)
		if err != nil {
			return err
		}
		renderer, err := overlay.NewRenderer(overlay.Options{
			Dir:    cfg.Overlay.Dir,
			Width:  cfg.Overlay.Width,
			Format: format,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		opts.OnFrame = renderer.Render
	}

	logger.Info("extracting keyframes",
		zap.String("video", cfg.Video),
		zap.String("source", cfg.Source),
		zap.Int("workers", cfg.Workers),
		zap.Int("threshold", cfg.Detection.Threshold),
		zap.Int("min_area", cfg.Detection.MinArea),
		zap.Float64("approx_tolerance", cfg.Detection.ApproxTolerance),
	)

	results, stats, err := pipeline.Extract(c.Context, src, detector, opts)
	if err != nil {
		return errors.Wrapf(err, "extract %s", cfg.Video)
	}
	if rp != nil {
		rp.Log(rp.Snapshot())
	}

	doc := keyframes.FromResults(results)
	if doc.ShapeCount() == 0 {
		logger.Warn("no shapes detected", zap.String("video", cfg.Video), zap.Int("frames", stats.Frames))
	}

	format, err := keyframes.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	output := cfg.OutputPath()
	if err := keyframes.WriteFile(output, doc, format); err != nil {
		return err
	}

	logger.Info("wrote keyframes",
		zap.String("path", output),
		zap.Int("frames", stats.Frames),
		zap.Int("shapes", stats.Shapes),
		zap.Duration("elapsed", stats.Elapsed),
	)
	fmt.Fprintf(c.App.Writer, "Saved %d frames with %d shapes to %s\n", stats.Frames, stats.Shapes, output)
	return nil
}
