// Package shapes - Configuration for the frame shape detector.
package shapes

import "github.com/pkg/errors"

const (
	// DefaultThreshold is the brightness (0-255) above which a pixel is foreground.
	DefaultThreshold = 10
	// DefaultMinArea is the minimum contour area, in source pixels, kept as a shape.
	DefaultMinArea = 30
	// DefaultApproxTolerance is the polygon approximation tolerance as a fraction of
	// the contour perimeter.
	DefaultApproxTolerance = 0.04
)

// ErrInvalidConfig is returned by Config.Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("shapes: invalid config")

// Config holds the tunables of the detector.
//
// The zero value is not usable; start from DefaultConfig and override fields.
type Config struct {
	// Threshold is the fixed binary threshold applied to the grayscale frame.
	// Pixels strictly brighter than Threshold are foreground.
	Threshold int `json:"threshold" yaml:"threshold"`

	// MinArea discards contours whose enclosed area is below this many square pixels.
	MinArea int `json:"min_area" yaml:"min_area"`

	// ApproxTolerance is the fraction of a contour's arc length used as the
	// Douglas-Peucker epsilon when simplifying it for classification.
	ApproxTolerance float64 `json:"approx_tolerance_fraction" yaml:"approx_tolerance_fraction"`
}

// DefaultConfig returns the reference configuration: threshold 10, minimum area 30
// and a 4% approximation tolerance.
//
// Returns:
//   - Config: The default detector configuration.
//
// @example
// config := DefaultConfig()
// config.MinArea = 100
// detector, err := NewDetector(config)
func DefaultConfig() Config {
	return Config{
		Threshold:       DefaultThreshold,
		MinArea:         DefaultMinArea,
		ApproxTolerance: DefaultApproxTolerance,
	}
}

// Validate reports whether the configuration can drive a detector.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 254 {
		return errors.Wrapf(ErrInvalidConfig, "threshold %d outside 0..254", c.Threshold)
	}
	if c.MinArea < 0 {
		return errors.Wrapf(ErrInvalidConfig, "min_area %d is negative", c.MinArea)
	}
	if c.ApproxTolerance <= 0 || c.ApproxTolerance >= 1 {
		return errors.Wrapf(ErrInvalidConfig, "approx_tolerance_fraction %g outside (0,1)", c.ApproxTolerance)
	}
	return nil
}
