package frames

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-keyframes/images"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ImageFile is one numbered still image of a sequence.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the frame number parsed from the file name.
	Frame int
}

// Sequence reads a directory of still images named frame-<n>.<ext> as a video.
//
// Files are ordered by n and decoded lazily. The timestamp of a file is
// n * 1000 / fps, so gaps in the numbering are preserved as gaps in time.
type Sequence struct {
	dir    string
	fps    float64
	files  []ImageFile
	next   int
	logger *zap.Logger
}

// LoadDirectoryImageFiles lists the numbered image files of a directory.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: The frame files, sorted by frame number.
//   - error: Error if the directory cannot be read.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() || !images.IsImageFile(entry.Name()) {
			continue
		}

		frame, ok := frameNumber(entry.Name())
		if !ok {
			continue
		}
		files = append(files, ImageFile{
			Path:  filepath.Join(dir, entry.Name()),
			Frame: frame,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Frame < files[j].Frame
	})

	return files, nil
}

// frameNumber extracts n from "frame-<n>.<ext>".
func frameNumber(name string) (int, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	digits, found := strings.CutPrefix(stem, "frame-")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// OpenSequence lists the frames of dir.
//
// Arguments:
//   - dir: Directory holding frame-<n>.<ext> images.
//   - fps: Frame rate used for timestamps; zero or negative means DefaultFPS.
//   - logger: Diagnostics sink; nil disables logging.
//
// Returns:
//   - *Sequence: The source.
//   - error: ErrOpen if dir cannot be read or holds no frame images.
func OpenSequence(dir string, fps float64, logger *zap.Logger) (*Sequence, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fps <= 0 {
		fps = DefaultFPS
	}

	files, err := LoadDirectoryImageFiles(dir)
	if err != nil {
		return nil, errors.Wrapf(ErrOpen, "%s: %v", dir, err)
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrOpen, "%s: no frame-<n> images", dir)
	}

	logger = logger.With(zap.String("source", "images"), zap.String("path", dir))
	logger.Debug("listed image sequence", zap.Int("frames", len(files)), zap.Float64("fps", fps))

	return &Sequence{
		dir:    dir,
		fps:    fps,
		files:  files,
		logger: logger,
	}, nil
}

// Next decodes the next image. A file that fails to decode is an error, not the
// end of the sequence.
func (s *Sequence) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.next >= len(s.files) {
		return Frame{}, io.EOF
	}

	file := s.files[s.next]
	img, err := imaging.Open(file.Path, imaging.AutoOrientation(true))
	if err != nil {
		return Frame{}, errors.Wrapf(err, "decode %s", file.Path)
	}

	mat, err := images.ToBGR(img)
	if err != nil {
		return Frame{}, errors.Wrapf(err, "convert %s", file.Path)
	}

	frame := Frame{
		Index:       s.next,
		TimestampMs: timestamp(file.Frame, s.fps),
		Mat:         mat,
	}
	s.next++
	return frame, nil
}

// Close is a no-op; images are opened and closed per frame.
func (s *Sequence) Close() error {
	return nil
}
