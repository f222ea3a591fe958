package main

import (
	"io"

	"github.com/nvr-ai/go-keyframes/config"
	"github.com/nvr-ai/go-keyframes/shapes"
	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	flagConfig          = "config"
	flagVideo           = "video"
	flagOutput          = "output"
	flagFormat          = "format"
	flagSource          = "source"
	flagFPS             = "fps"
	flagWorkers         = "workers"
	flagThreshold       = "threshold"
	flagMinArea         = "min-area"
	flagApproxTolerance = "approx-tolerance"
	flagOverlayDir      = "overlay-dir"
	flagOverlayWidth    = "overlay-width"
	flagOverlayFormat   = "overlay-format"
	flagProfile         = "profile"
	flagLogLevel        = "log-level"
	flagDebug           = "debug"

	envPrefix = "KEYFRAMES_"
)

func env(name string) []string {
	return []string{envPrefix + name}
}

// detectionFlags are shared by extract and detect.
func detectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    flagThreshold,
			Value:   shapes.DefaultThreshold,
			Usage:   "grayscale brightness above which a pixel is foreground (0-254)",
			EnvVars: env("THRESHOLD"),
		},
		&cli.IntFlag{
			Name:    flagMinArea,
			Value:   shapes.DefaultMinArea,
			Usage:   "minimum contour area in pixels",
			EnvVars: env("MIN_AREA"),
		},
		&cli.Float64Flag{
			Name:    flagApproxTolerance,
			Value:   shapes.DefaultApproxTolerance,
			Usage:   "polygon approximation tolerance as a fraction of the perimeter",
			EnvVars: env("APPROX_TOLERANCE"),
		},
	}
}

// newApp builds the command line application writing its results to stdout.
func newApp(stdout io.Writer) *cli.App {
	defaults := config.Default()

	return &cli.App{
		Name:                 "keyframes",
		Usage:                "extract flat-colored shapes from video frames",
		Version:              version,
		Writer:               stdout,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   defaults.LogLevel,
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: env("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "human readable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "extract",
				Usage:     "detect shapes in every frame of a video and write the keyframe document",
				UsageText: "keyframes extract --video PATH [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load configuration from `FILE`",
						EnvVars: env("CONFIG"),
					},
					&cli.StringFlag{
						Name:    flagVideo,
						Aliases: []string{"i"},
						Usage:   "input video `PATH`, or a directory of frame-<n> images for --source images",
						EnvVars: env("VIDEO"),
					},
					&cli.StringFlag{
						Name:    flagOutput,
						Aliases: []string{"o"},
						Usage:   "output `FILE` (default: keyframes.json next to the video)",
						EnvVars: env("OUTPUT"),
					},
					&cli.StringFlag{
						Name:    flagFormat,
						Value:   defaults.Format,
						Usage:   "output format (json, yaml)",
						EnvVars: env("FORMAT"),
					},
					&cli.StringFlag{
						Name:    flagSource,
						Value:   defaults.Source,
						Usage:   "frame decoder (capture, ffmpeg, images)",
						EnvVars: env("SOURCE"),
					},
					&cli.Float64Flag{
						Name:    flagFPS,
						Value:   defaults.FPS,
						Usage:   "frame rate of an image sequence",
						EnvVars: env("FPS"),
					},
					&cli.IntFlag{
						Name:    flagWorkers,
						Value:   defaults.Workers,
						Usage:   "concurrent detection workers",
						EnvVars: env("WORKERS"),
					},
					&cli.StringFlag{
						Name:    flagOverlayDir,
						Usage:   "write annotated frames to `DIR`",
						EnvVars: env("OVERLAY_DIR"),
					},
					&cli.IntFlag{
						Name:    flagOverlayWidth,
						Value:   defaults.Overlay.Width,
						Usage:   "annotated frame width in pixels, -1 keeps the frame size",
						EnvVars: env("OVERLAY_WIDTH"),
					},
					&cli.StringFlag{
						Name:    flagOverlayFormat,
						Value:   defaults.Overlay.Format,
						Usage:   "annotated frame format (png, jpeg, webp)",
						EnvVars: env("OVERLAY_FORMAT"),
					},
					&cli.BoolFlag{
						Name:    flagProfile,
						Usage:   "log runtime statistics periodically",
						EnvVars: env("PROFILE"),
					},
				}, detectionFlags()...),
				Action: extractAction,
			},
			{
				Name:      "detect",
				Usage:     "detect shapes in still images and print them as JSON",
				UsageText: "keyframes detect [options] IMAGE...",
				Flags:     detectionFlags(),
				Action:    detectAction,
			},
			{
				Name:      "inspect",
				Usage:     "summarize a keyframe document",
				UsageText: "keyframes inspect FILE",
				Action:    inspectAction,
			},
		},
	}
}
