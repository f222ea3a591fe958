// Package test provides deterministic synthetic frames for exercising the shape
// detector, the frame sources and the extraction pipeline.
package test

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// Shape draws itself, filled, onto a BGR frame.
type Shape func(frame *gocv.Mat)

// MockFrameGenerator creates deterministic test frames of flat-colored shapes on a
// dark background.
//
// @example
// gen := NewMockFrameGenerator(320, 240)
// frame := gen.Frame(Circle(image.Pt(100, 100), 40, Red))
// defer frame.Close()
type MockFrameGenerator struct {
	width      int
	height     int
	background color.RGBA
}

// Common fill colors. gocv converts color.RGBA to BGR when drawing.
var (
	Black = color.RGBA{0, 0, 0, 255}
	Red   = color.RGBA{255, 0, 0, 255}
	Green = color.RGBA{0, 255, 0, 255}
	Blue  = color.RGBA{0, 0, 255, 255}
	White = color.RGBA{255, 255, 255, 255}
)

// NewMockFrameGenerator creates a new frame generator with specified dimensions
// and a black background.
//
// Arguments:
// - width: Frame width in pixels.
// - height: Frame height in pixels.
//
// Returns:
// - A configured MockFrameGenerator instance.
func NewMockFrameGenerator(width, height int) *MockFrameGenerator {
	return &MockFrameGenerator{
		width:      width,
		height:     height,
		background: Black,
	}
}

// WithBackground sets the background color. It must stay below the detector
// threshold to read as background.
func (g *MockFrameGenerator) WithBackground(c color.RGBA) *MockFrameGenerator {
	g.background = c
	return g
}

// Blank creates a frame containing only the background.
//
// Returns:
// - A BGR Mat the caller must Close.
func (g *MockFrameGenerator) Blank() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(g.background.B), float64(g.background.G), float64(g.background.R), 0),
		g.height, g.width, gocv.MatTypeCV8UC3,
	)
}

// Frame creates a frame with every shape drawn in order.
//
// Returns:
// - A BGR Mat the caller must Close.
func (g *MockFrameGenerator) Frame(shapes ...Shape) gocv.Mat {
	frame := g.Blank()
	for _, draw := range shapes {
		draw(&frame)
	}
	return frame
}

// Image creates the same content as Frame but as an *image.RGBA.
func (g *MockFrameGenerator) Image(shapes ...Shape) (*image.RGBA, error) {
	frame := g.Frame(shapes...)
	defer frame.Close()

	img, err := frame.ToImage()
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(img.Bounds())
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out, nil
}

// Polygon fills the polygon through pts.
func Polygon(c color.RGBA, pts ...image.Point) Shape {
	return func(frame *gocv.Mat) {
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
		defer pv.Close()
		gocv.FillPoly(frame, pv, c)
	}
}

// Rectangle fills the axis-aligned rectangle whose corners are r.Min and r.Max,
// both inclusive.
func Rectangle(r image.Rectangle, c color.RGBA) Shape {
	return Polygon(c,
		r.Min,
		image.Pt(r.Max.X, r.Min.Y),
		r.Max,
		image.Pt(r.Min.X, r.Max.Y),
	)
}

// RotatedRectangle fills a width x height rectangle centered on center and rotated
// by degrees.
func RotatedRectangle(center image.Point, width, height int, degrees float64, c color.RGBA) Shape {
	theta := degrees * math.Pi / 180
	sin, cos := math.Sincos(theta)
	hw, hh := float64(width)/2, float64(height)/2

	corners := [][2]float64{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	pts := make([]image.Point, 0, len(corners))
	for _, p := range corners {
		x := float64(center.X) + p[0]*cos - p[1]*sin
		y := float64(center.Y) + p[0]*sin + p[1]*cos
		pts = append(pts, image.Pt(int(math.Round(x)), int(math.Round(y))))
	}
	return Polygon(c, pts...)
}

// Triangle fills an equilateral triangle with the given side length, pointing up
// and centered on its centroid.
func Triangle(centroid image.Point, side int, c color.RGBA) Shape {
	h := float64(side) * math.Sqrt(3) / 2
	cx, cy := float64(centroid.X), float64(centroid.Y)
	pts := []image.Point{
		image.Pt(int(math.Round(cx)), int(math.Round(cy-2*h/3))),
		image.Pt(int(math.Round(cx+float64(side)/2)), int(math.Round(cy+h/3))),
		image.Pt(int(math.Round(cx-float64(side)/2)), int(math.Round(cy+h/3))),
	}
	return Polygon(c, pts...)
}

// Circle fills a circle.
func Circle(center image.Point, radius int, c color.RGBA) Shape {
	return func(frame *gocv.Mat) {
		gocv.Circle(frame, center, radius, c, -1)
	}
}
