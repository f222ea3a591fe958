package shapes

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/nvr-ai/go-keyframes/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrInvalidFrame is returned by Detect when the frame is empty or is not an
// 8-bit, 3-channel image.
var ErrInvalidFrame = errors.New("shapes: invalid frame")

// fill is the mask value used to rasterize a contour interior.
var fill = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Detector finds flat-colored shapes rendered on a near-black background.
//
// A Detector only holds its immutable configuration, so a single instance can be
// used from many goroutines on independent frames.
type Detector struct {
	config Config
}

// NewDetector creates a detector with the given configuration.
//
// Arguments:
//   - config: Detection tunables, usually derived from DefaultConfig().
//
// Returns:
//   - *Detector: The detector.
//   - error: ErrInvalidConfig if the configuration is out of range.
//
// @example
// detector, err := NewDetector(DefaultConfig())
//
//	if err != nil {
//	    return err
//	}
//
// records, err := detector.Detect(frame)
func NewDetector(config Config) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Detector{config: config}, nil
}

// Config returns the configuration the detector was built with.
func (d *Detector) Config() Config {
	return d.config
}

// Detect runs shape detection on a single BGR frame.
//
// The frame is only read. Records are ordered top-to-bottom, then left-to-right,
// by their normalized center.
//
// Arguments:
//   - frame: A non-empty gocv.Mat of type MatTypeCV8UC3 in BGR order.
//
// Returns:
//   - []Record: The detected shapes; empty for a blank frame.
//   - error: ErrInvalidFrame if the precondition on frame does not hold.
func (d *Detector) Detect(frame gocv.Mat) ([]Record, error) {
	if err := checkFrame(frame); err != nil {
		return nil, err
	}

	width := float64(frame.Cols())
	height := float64(frame.Rows())

	seg := newSegmenter()
	defer seg.Close()

	seg.ApplyThreshold(frame, d.config.Threshold)

	contours := seg.DetectContours()
	defer contours.Close()

	records := make([]Record, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		// Filter codec and sensor noise.
		if gocv.ContourArea(contour) < float64(d.config.MinArea) {
			continue
		}

		rect := gocv.MinAreaRect2(contour)

		records = append(records, Record{
			Kind:    d.classify(contour),
			CenterX: float64(rect.Center.X) / width,
			CenterY: float64(rect.Center.Y) / height,
			Width:   float64(rect.Width) / width,
			Height:  float64(rect.Height) / height,
			Angle:   float64(rect.Angle),
			Color:   meanColor(frame, contours, i),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CenterY != records[j].CenterY {
			return records[i].CenterY < records[j].CenterY
		}
		return records[i].CenterX < records[j].CenterX
	})

	return records, nil
}

// DetectImage converts a Go image to a BGR matrix and runs Detect on it.
func (d *Detector) DetectImage(img image.Image) ([]Record, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.Wrap(ErrInvalidFrame, "empty image")
	}
	mat, err := images.ToBGR(img)
	if err != nil {
		return nil, errors.Wrap(err, "convert image to mat")
	}
	defer mat.Close()

	return d.Detect(mat)
}

// classify simplifies the contour with a tolerance proportional to its perimeter
// and maps the vertex count to a Kind.
func (d *Detector) classify(contour gocv.PointVector) Kind {
	epsilon := d.config.ApproxTolerance * gocv.ArcLength(contour, true)

	approx := gocv.ApproxPolyDP(contour, epsilon, true)
	defer approx.Close()

	return Classify(approx.Size())
}

// meanColor averages the frame pixels inside contour index of contours.
//
// The contour is rasterized, filled, into a zeroed single-channel mask so that
// background pixels inside the bounding rectangle do not contribute.
func meanColor(frame gocv.Mat, contours gocv.PointsVector, index int) [3]uint8 {
	mask := gocv.Zeros(frame.Rows(), frame.Cols(), gocv.MatTypeCV8UC1)
	defer mask.Close()

	gocv.DrawContours(&mask, contours, index, fill, -1)

	mean := frame.MeanWithMask(mask)
	return [3]uint8{channel(mean.Val1), channel(mean.Val2), channel(mean.Val3)}
}

// channel rounds a mean channel value to the nearest 8-bit integer.
func channel(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// checkFrame enforces the Detect precondition.
func checkFrame(frame gocv.Mat) error {
	if frame.Empty() || frame.Cols() == 0 || frame.Rows() == 0 {
		return errors.Wrap(ErrInvalidFrame, "empty frame")
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return errors.Wrapf(ErrInvalidFrame, "want 8-bit 3-channel frame, got type %v", frame.Type())
	}
	return nil
}
