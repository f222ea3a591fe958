package shapes

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Kind is the coarse polygonal class assigned to a detected region.
type Kind int

const (
	// Rectangle is the catch-all class for anything that is neither a triangle nor a circle.
	Rectangle Kind = iota
	// Triangle is a region whose simplified outline has exactly three vertices.
	Triangle
	// Circle is a region whose simplified outline has eight or more vertices.
	Circle
)

// Kinds lists every Kind in a fixed order.
var Kinds = []Kind{Triangle, Circle, Rectangle}

// String returns the wire name of the kind: "triangle", "circle" or "rect".
func (k Kind) String() string {
	switch k {
	case Triangle:
		return "triangle"
	case Circle:
		return "circle"
	default:
		return "rect"
	}
}

// ParseKind maps a wire name back to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "triangle":
		return Triangle, nil
	case "circle":
		return Circle, nil
	case "rect":
		return Rectangle, nil
	}
	return Rectangle, errors.Errorf("shapes: unknown kind %q", name)
}

// Classify maps the vertex count of a simplified contour to a Kind.
//
// Three vertices is a triangle, eight or more is a circle (a fine approximation of
// a smooth curve), and everything else, including degenerate counts below three,
// is a rectangle.
//
// Arguments:
//   - vertices: Number of vertices in the approximated polygon.
//
// Returns:
//   - Kind: The assigned class, never unclassified.
func Classify(vertices int) Kind {
	switch {
	case vertices == 3:
		return Triangle
	case vertices >= 8:
		return Circle
	default:
		return Rectangle
	}
}

// Record is one detected shape in one frame.
//
// Position and size are normalized by the frame width (X, Width) and height
// (Y, Height). They are plain divisions, so a contour touching the frame edge can
// produce values at the bounds but never clamps.
type Record struct {
	Kind Kind

	// CenterX and CenterY locate the minimum-area rectangle center.
	CenterX float64
	CenterY float64

	// Width and Height are the sides of the minimum-area rectangle, which may be
	// rotated relative to the frame axes.
	Width  float64
	Height float64

	// Angle is the rectangle rotation in degrees as reported by OpenCV minAreaRect.
	Angle float64

	// Color is the mean color inside the contour in the frame's channel order (B, G, R).
	Color [3]uint8
}

// Hex returns the mean color as "#RRGGBB".
func (r Record) Hex() string {
	return r.colorful().Hex()
}

// colorful converts the BGR mean color into a go-colorful color.
func (r Record) colorful() colorful.Color {
	return colorful.Color{
		R: float64(r.Color[2]) / 255,
		G: float64(r.Color[1]) / 255,
		B: float64(r.Color[0]) / 255,
	}
}

// Contrast returns a color, as 8-bit R, G, B, that stands out against the record's
// mean color. It is the hue-complement at mid lightness.
func (r Record) Contrast() (uint8, uint8, uint8) {
	h, s, _ := r.colorful().Hsl()
	h += 180
	if h >= 360 {
		h -= 360
	}
	if s < 0.6 {
		s = 0.6
	}
	return colorful.Hsl(h, s, 0.5).Clamped().RGB255()
}

// String formats the record for logs.
func (r Record) String() string {
	return fmt.Sprintf("%s at (%.3f, %.3f) size %.3fx%.3f angle %.1f color %s",
		r.Kind, r.CenterX, r.CenterY, r.Width, r.Height, r.Angle, r.Hex())
}
