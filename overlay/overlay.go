// Package overlay - Debug renderings of detection results: each record's rotated
// rectangle, orientation and label drawn over a copy of its frame.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
	"github.com/nvr-ai/go-keyframes/frames"
	"github.com/nvr-ai/go-keyframes/images"
	"github.com/nvr-ai/go-keyframes/shapes"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// DefaultWidth is the overlay image width when none is configured.
const DefaultWidth = 320

// Options configures a Renderer.
type Options struct {
	// Dir receives one image per frame. It is created if missing.
	Dir string
	// Width is the output width in pixels; height follows the frame aspect ratio.
	// Zero means DefaultWidth, negative keeps the frame size.
	Width int
	// Format is the output image format (default PNG).
	Format images.ImageFormat
	// Logger receives diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// Renderer writes annotated copies of frames to a directory.
//
// It holds no mutable state, so Render may be called from several goroutines.
type Renderer struct {
	dir    string
	width  int
	format images.ImageFormat
	logger *zap.Logger
}

// NewRenderer validates opts and creates the output directory.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Dir == "" {
		return nil, errors.New("overlay: output directory is required")
	}
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}
	if opts.Format == "" {
		opts.Format = images.FormatPNG
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "overlay: create %s", opts.Dir)
	}

	return &Renderer{
		dir:    opts.Dir,
		width:  opts.Width,
		format: opts.Format,
		logger: opts.Logger,
	}, nil
}

// Path returns the file an overlay for the frame index is written to.
func (r *Renderer) Path(index int) string {
	return filepath.Join(r.dir, fmt.Sprintf("frame-%d%s", index, r.format.Extension()))
}

// Render draws records over a copy of frame and writes it to Path(frame.Index).
// Its signature matches pipeline.FrameHook.
func (r *Renderer) Render(frame frames.Frame, records []shapes.Record) error {
	annotated := Draw(frame.Mat, records)
	defer annotated.Close()

	img, err := annotated.ToImage()
	if err != nil {
		return errors.Wrap(err, "overlay: mat to image")
	}
	if r.width > 0 && r.width != img.Bounds().Dx() {
		img = resize.Resize(uint(r.width), 0, img, resize.Bilinear)
	}

	path := r.Path(frame.Index)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "overlay: create %s", path)
	}
	if err := images.Encode(f, img, r.format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "overlay: close %s", path)
	}

	r.logger.Debug("wrote overlay", zap.String("path", path), zap.Int("shapes", len(records)))
	return nil
}

// Draw returns a copy of frame with every record annotated. The caller must Close it.
func Draw(frame gocv.Mat, records []shapes.Record) gocv.Mat {
	out := frame.Clone()
	width, height := frame.Cols(), frame.Rows()

	for _, rec := range records {
		r, g, b := rec.Contrast()
		ink := color.RGBA{R: r, G: g, B: b, A: 255}

		corners := Corners(rec, width, height)
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{corners[:]})
		gocv.Polylines(&out, pv, true, ink, 2)
		pv.Close()

		center, tip := Orientation(rec, width, height)
		gocv.Line(&out, center, tip, ink, 1)
		gocv.Circle(&out, center, 2, ink, -1)

		label := fmt.Sprintf("%s %s", rec.Kind, rec.Hex())
		gocv.PutText(&out, label, labelOrigin(corners), gocv.FontHersheySimplex, 0.4, ink, 1)
	}

	return out
}

// Corners returns the four pixel corners of a record's rotated rectangle in a
// width x height frame, in the same order as OpenCV boxPoints.
//
// @example
// pts := Corners(shapes.Record{CenterX: 0.5, CenterY: 0.5, Width: 0.2, Height: 0.1}, 200, 200)
func Corners(rec shapes.Record, width, height int) [4]image.Point {
	cx, cy := float32(rec.CenterX)*float32(width), float32(rec.CenterY)*float32(height)
	w, h := float32(rec.Width)*float32(width), float32(rec.Height)*float32(height)

	sin, cos := math32.Sincos(float32(rec.Angle) * math32.Pi / 180)
	a, b := sin*0.5, cos*0.5

	x0, y0 := cx-a*h-b*w, cy+b*h-a*w
	x1, y1 := cx+a*h-b*w, cy-b*h-a*w

	return [4]image.Point{
		pt(x0, y0),
		pt(x1, y1),
		pt(2*cx-x0, 2*cy-y0),
		pt(2*cx-x1, 2*cy-y1),
	}
}

// Orientation returns the rectangle center and the midpoint of the side the angle
// points at, in pixels.
func Orientation(rec shapes.Record, width, height int) (image.Point, image.Point) {
	cx, cy := float32(rec.CenterX)*float32(width), float32(rec.CenterY)*float32(height)
	half := float32(rec.Width) * float32(width) / 2

	sin, cos := math32.Sincos(float32(rec.Angle) * math32.Pi / 180)
	return pt(cx, cy), pt(cx+cos*half, cy+sin*half)
}

// labelOrigin places text just above the top-most corner.
func labelOrigin(corners [4]image.Point) image.Point {
	top := corners[0]
	for _, c := range corners[1:] {
		if c.Y < top.Y {
			top = c
		}
	}
	if top.Y < 12 {
		top.Y = 12
	}
	return image.Pt(top.X, top.Y-4)
}

func pt(x, y float32) image.Point {
	return image.Pt(int(math32.Floor(x+0.5)), int(math32.Floor(y+0.5)))
}
