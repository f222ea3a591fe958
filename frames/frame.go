// Package frames - Frame sources that decode a video, or something that looks like
// one, into a finite sequence of timestamped BGR frames.
//
// Every source is lazy and non-restartable: Next yields frames in presentation
// order and returns io.EOF once the input is exhausted.
package frames

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// DefaultFPS is the frame rate assumed for image sequences when none is configured.
const DefaultFPS = 30.0

// ErrOpen is returned when a source cannot be opened.
var ErrOpen = errors.New("frames: cannot open source")

// ErrUnknownKind is returned by ParseKind and Open for an unsupported source kind.
var ErrUnknownKind = errors.New("frames: unknown source kind")

// Frame is one decoded picture and its presentation time.
type Frame struct {
	// Index is the zero-based position of the frame in its source.
	Index int
	// TimestampMs is the presentation time in milliseconds. Non-decreasing per source.
	TimestampMs float64
	// Mat holds the BGR pixels. The receiver of a Frame owns it and must Close it.
	Mat gocv.Mat
}

// Close releases the frame pixels.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// Source yields frames one at a time.
type Source interface {
	// Next decodes the next frame. It returns io.EOF after the last frame.
	Next(ctx context.Context) (Frame, error)
	// Close releases the decoder.
	Close() error
}

// Kind selects a Source implementation.
type Kind string

const (
	// KindCapture decodes with OpenCV VideoCapture.
	KindCapture Kind = "capture"
	// KindFFmpeg decodes by piping raw frames out of an ffmpeg process.
	KindFFmpeg Kind = "ffmpeg"
	// KindImages reads a directory of numbered still images.
	KindImages Kind = "images"
)

// Kinds lists the supported source kinds.
var Kinds = []Kind{KindCapture, KindFFmpeg, KindImages}

// ParseKind validates a user supplied source kind.
func ParseKind(name string) (Kind, error) {
	kind := Kind(strings.ToLower(name))
	for _, k := range Kinds {
		if k == kind {
			return k, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownKind, "%q", name)
}

// Options are the settings shared by the source constructors.
type Options struct {
	// FPS is the frame rate used to derive timestamps for image sequences.
	FPS float64
	// Logger receives diagnostics. Nil means no logging.
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Open creates the Source of the given kind for path.
//
// Arguments:
//   - kind: One of KindCapture, KindFFmpeg or KindImages.
//   - path: A video file, or a directory for KindImages.
//   - opts: Shared source options.
//
// Returns:
//   - Source: The opened source; the caller must Close it.
//   - error: ErrOpen if the input cannot be opened, ErrUnknownKind for a bad kind.
//
// @example
// src, err := frames.Open(frames.KindCapture, "clip.mp4", frames.Options{Logger: logger})
//
//	if err != nil {
//	    return err
//	}
//
// defer src.Close()
func Open(kind Kind, path string, opts Options) (Source, error) {
	switch kind {
	case KindCapture:
		return OpenCapture(path, opts.logger())
	case KindFFmpeg:
		return OpenFFmpeg(context.Background(), path, opts.logger())
	case KindImages:
		return OpenSequence(path, opts.FPS, opts.logger())
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
}

// timestamp converts a frame index to milliseconds at the given frame rate.
func timestamp(index int, fps float64) float64 {
	return float64(index) * 1000 / fps
}
