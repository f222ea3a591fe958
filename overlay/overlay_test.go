package overlay

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-keyframes/frames"
	"github.com/nvr-ai/go-keyframes/images"
	"github.com/nvr-ai/go-keyframes/shapes"
	"github.com/nvr-ai/go-keyframes/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorners(t *testing.T) {
	// 40x20 rectangle centered at (100, 50) in a 200x100 frame.
	rec := shapes.Record{CenterX: 0.5, CenterY: 0.5, Width: 0.2, Height: 0.2}

	assert.Equal(t, [4]image.Point{
		{80, 60},
		{80, 40},
		{120, 40},
		{120, 60},
	}, Corners(rec, 200, 100))

	// A quarter turn swaps the extents.
	rec.Angle = 90
	pts := Corners(rec, 200, 100)
	minX, maxX, minY, maxY := pts[0].X, pts[0].X, pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	assert.Equal(t, 20, maxX-minX)
	assert.Equal(t, 40, maxY-minY)
}

func TestOrientation(t *testing.T) {
	rec := shapes.Record{CenterX: 0.5, CenterY: 0.5, Width: 0.2, Height: 0.1}

	center, tip := Orientation(rec, 200, 200)
	assert.Equal(t, image.Pt(100, 100), center)
	assert.Equal(t, image.Pt(120, 100), tip)

	rec.Angle = 90
	_, tip = Orientation(rec, 200, 200)
	assert.Equal(t, image.Pt(100, 120), tip)
}

func TestDrawDoesNotMutateFrame(t *testing.T) {
	frame := test.NewMockFrameGenerator(200, 200).Frame(
		test.Rectangle(image.Rect(60, 80, 140, 120), test.Red),
	)
	defer frame.Close()

	det, err := shapes.NewDetector(shapes.DefaultConfig())
	require.NoError(t, err)
	records, err := det.Detect(frame)
	require.NoError(t, err)
	require.Len(t, records, 1)

	before := images.ComputeMatChecksum(frame)
	out := Draw(frame, records)
	defer out.Close()

	assert.Equal(t, before, images.ComputeMatChecksum(frame))
	assert.NotEqual(t, before, images.ComputeMatChecksum(out))
	assert.Equal(t, frame.Cols(), out.Cols())
	assert.Equal(t, frame.Rows(), out.Rows())
}

func TestRender(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "overlays")
	r, err := NewRenderer(Options{Dir: dir})
	require.NoError(t, err)

	mat := test.NewMockFrameGenerator(640, 480).Frame(test.Circle(image.Pt(320, 240), 60, test.Blue))
	frame := frames.Frame{Index: 7, TimestampMs: 233, Mat: mat}
	defer frame.Close()

	records := []shapes.Record{{Kind: shapes.Circle, CenterX: 0.5, CenterY: 0.5, Width: 0.19, Height: 0.25, Color: [3]uint8{255, 0, 0}}}
	require.NoError(t, r.Render(frame, records))

	path := filepath.Join(dir, "frame-7.png")
	assert.Equal(t, path, r.Path(7))

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestRenderFormatsAndSize(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRenderer(Options{Dir: dir, Width: -1, Format: images.FormatJPEG})
	require.NoError(t, err)

	frame := frames.Frame{Index: 0, Mat: test.NewMockFrameGenerator(100, 50).Blank()}
	defer frame.Close()

	require.NoError(t, r.Render(frame, nil))

	img, err := imaging.Open(filepath.Join(dir, "frame-0.jpg"))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestNewRendererRequiresDir(t *testing.T) {
	_, err := NewRenderer(Options{})
	assert.Error(t, err)

	// A file in the way of the directory.
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	_, err = NewRenderer(Options{Dir: filepath.Join(blocker, "sub")})
	assert.Error(t, err)
}
