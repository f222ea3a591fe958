package frames

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Capture decodes a video file with OpenCV VideoCapture.
//
// A failed read is treated as the end of the stream, the way OpenCV reports it.
// When that happens before the container's declared frame count is reached, a
// "truncated stream" warning is logged so a corrupt file is distinguishable from
// a clean end in the logs.
type Capture struct {
	path    string
	capture *gocv.VideoCapture
	logger  *zap.Logger

	index    int
	declared float64
	done     bool
}

// OpenCapture opens a video file for decoding.
//
// Arguments:
//   - path: Path to the video file (.mp4, .avi, .mov, ...).
//   - logger: Diagnostics sink; nil disables logging.
//
// Returns:
//   - *Capture: The opened source.
//   - error: ErrOpen, wrapped with the path, if the file is missing or not decodable.
func OpenCapture(path string, logger *zap.Logger) (*Capture, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(ErrOpen, "%s: %v", path, err)
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrOpen, "%s: %v", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Wrapf(ErrOpen, "%s: video capture did not open", path)
	}

	c := &Capture{
		path:     path,
		capture:  capture,
		logger:   logger.With(zap.String("source", "capture"), zap.String("path", path)),
		declared: capture.Get(gocv.VideoCaptureFrameCount),
	}
	c.logger.Debug("opened video",
		zap.Float64("fps", capture.Get(gocv.VideoCaptureFPS)),
		zap.Float64("frame_count", c.declared),
		zap.Float64("width", capture.Get(gocv.VideoCaptureFrameWidth)),
		zap.Float64("height", capture.Get(gocv.VideoCaptureFrameHeight)),
	)

	return c, nil
}

// Next decodes the next non-empty frame.
func (c *Capture) Next(ctx context.Context) (Frame, error) {
	if c.done {
		return Frame{}, io.EOF
	}

	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}

		mat := gocv.NewMat()
		if ok := c.capture.Read(&mat); !ok {
			mat.Close()
			c.finish()
			return Frame{}, io.EOF
		}
		if mat.Empty() {
			mat.Close()
			continue
		}

		frame := Frame{
			Index:       c.index,
			TimestampMs: c.capture.Get(gocv.VideoCapturePosMsec),
			Mat:         mat,
		}
		c.index++
		return frame, nil
	}
}

// finish marks the end of the stream and reports early termination.
func (c *Capture) finish() {
	c.done = true

	position := c.capture.Get(gocv.VideoCapturePosFrames)
	if c.declared > 0 && position < c.declared {
		c.logger.Warn("truncated stream",
			zap.Int("frames_read", c.index),
			zap.Float64("position", position),
			zap.Float64("declared_frames", c.declared),
		)
		return
	}
	c.logger.Debug("end of video", zap.Int("frames_read", c.index))
}

// Close releases the decoder.
func (c *Capture) Close() error {
	return errors.Wrap(c.capture.Close(), "close video capture")
}
