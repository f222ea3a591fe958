package frames

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-keyframes/images"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

// FFmpeg decodes a video by running ffmpeg and reading raw bgr24 frames from its
// standard output.
//
// Timestamps are derived from the probed frame rate as index * 1000 / fps.
type FFmpeg struct {
	path   string
	logger *zap.Logger

	width  int
	height int
	fps    float64

	reader *io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}
	stderr bytes.Buffer
	buf    []byte
	index  int
}

// probeResult is the subset of `ffprobe -show_streams -of json` we need.
type probeResult struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
	} `json:"streams"`
}

// OpenFFmpeg probes path and starts an ffmpeg decoder for it.
//
// Arguments:
//   - ctx: Bounds the lifetime of the ffmpeg process.
//   - path: Path to the video file.
//   - logger: Diagnostics sink; nil disables logging.
//
// Returns:
//   - *FFmpeg: The running source.
//   - error: ErrOpen if ffmpeg is not installed or the file cannot be probed.
func OpenFFmpeg(ctx context.Context, path string, logger *zap.Logger) (*FFmpeg, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// make sure ffmpeg is in the path before doing anything else
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, errors.Wrapf(ErrOpen, "%s: %v", path, err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(ErrOpen, "%s: %v", path, err)
	}

	width, height, fps, err := probe(path)
	if err != nil {
		return nil, errors.Wrapf(ErrOpen, "%s: %v", path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	reader, writer := io.Pipe()

	f := &FFmpeg{
		path:   path,
		logger: logger.With(zap.String("source", "ffmpeg"), zap.String("path", path)),
		width:  width,
		height: height,
		fps:    fps,
		reader: reader,
		cancel: cancel,
		done:   make(chan struct{}),
		buf:    make([]byte, width*height*3),
	}

	stream := ffmpeg.Input(path).
		Output("pipe:", ffmpeg.KwArgs{"format": "rawvideo", "pix_fmt": "bgr24"}).
		WithOutput(writer).
		WithErrorOutput(&f.stderr)
	stream.Context = ctx

	go func() {
		defer close(f.done)
		err := stream.Run()
		if err != nil && ctx.Err() == nil {
			err = errors.Wrapf(err, "ffmpeg: %s", strings.TrimSpace(f.stderr.String()))
		}
		// A nil error closes the pipe with io.EOF.
		writer.CloseWithError(err)
	}()

	f.logger.Debug("started ffmpeg decoder",
		zap.Int("width", width), zap.Int("height", height), zap.Float64("fps", fps))

	return f, nil
}

// Next reads the next raw frame from the decoder.
func (f *FFmpeg) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	if _, err := io.ReadFull(f.reader, f.buf); err != nil {
		if errors.Is(err, io.EOF) {
			f.logger.Debug("end of video", zap.Int("frames_read", f.index))
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			f.logger.Warn("truncated stream", zap.Int("frames_read", f.index))
			return Frame{}, io.EOF
		}
		return Frame{}, errors.Wrap(err, "read ffmpeg frame")
	}

	mat, err := images.FromBGRBytes(f.buf, f.width, f.height)
	if err != nil {
		return Frame{}, err
	}

	frame := Frame{
		Index:       f.index,
		TimestampMs: timestamp(f.index, f.fps),
		Mat:         mat,
	}
	f.index++
	return frame, nil
}

// Close stops ffmpeg and waits for it to exit.
func (f *FFmpeg) Close() error {
	f.cancel()
	err := f.reader.Close()
	<-f.done
	return errors.Wrap(err, "close ffmpeg pipe")
}

// probe reads the first video stream's geometry and frame rate.
func probe(path string) (int, int, float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "ffprobe")
	}
	return parseProbe(out)
}

func parseProbe(out string) (int, int, float64, error) {
	var result probeResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return 0, 0, 0, errors.Wrap(err, "parse ffprobe output")
	}

	for _, s := range result.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return 0, 0, 0, errors.Errorf("invalid video size %dx%d", s.Width, s.Height)
		}
		fps, err := parseRate(s.AvgFrameRate)
		if err != nil {
			fps, err = parseRate(s.RFrameRate)
		}
		if err != nil {
			return 0, 0, 0, err
		}
		return s.Width, s.Height, fps, nil
	}
	return 0, 0, 0, errors.New("no video stream")
}

// parseRate parses an ffprobe rational such as "30000/1001".
func parseRate(rate string) (float64, error) {
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "frame rate %q", rate)
	}
	d := 1.0
	if found {
		if d, err = strconv.ParseFloat(den, 64); err != nil {
			return 0, errors.Wrapf(err, "frame rate %q", rate)
		}
	}
	if n <= 0 || d <= 0 {
		return 0, errors.Errorf("frame rate %q is not positive", rate)
	}
	return n / d, nil
}
