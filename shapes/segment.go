// Package shapes - This file contains the foreground segmentation stage of the
// detector using OpenCV (via gocv).
//
// Pipeline Overview:
//
// ┌──────────────┐
// │ BGR Frame    │
// └──────┬───────┘
// ┌────────────────────────────┐
// │ Grayscale conversion       │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Thresholding (binary mask) │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ External contour detection │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Per-contour measurement    │
// └────────────────────────────┘
package shapes

import "gocv.io/x/gocv"

// segmenter owns the transient matrices of a single detection call.
//
// It is never shared between calls, which keeps Detector free of mutable state.
// Always call Close() when done to release native resources.
type segmenter struct {
	gray gocv.Mat // Single-channel brightness image
	mask gocv.Mat // Binary foreground mask after thresholding
}

// newSegmenter allocates empty working matrices.
func newSegmenter() *segmenter {
	return &segmenter{
		gray: gocv.NewMat(),
		mask: gocv.NewMat(),
	}
}

// ApplyThreshold converts the BGR frame to grayscale and marks every pixel
// strictly brighter than threshold as foreground (255).
//
// Arguments:
//   - frame: The BGR input frame. It is only read.
//   - threshold: Brightness cut-off in 0..255.
//
// Side Effect: Updates the gray and mask fields.
func (s *segmenter) ApplyThreshold(frame gocv.Mat, threshold int) {
	gocv.CvtColor(frame, &s.gray, gocv.ColorBGRToGray)
	gocv.Threshold(s.gray, &s.mask, float32(threshold), 255, gocv.ThresholdBinary)
}

// DetectContours extracts the outer boundaries of the connected foreground regions.
//
// Uses RetrievalExternal so holes and nested regions produce no contours, and
// ChainApproxSimple to compress straight runs into their end points.
//
// Returns:
//   - gocv.PointsVector: The contours; the caller must Close it.
func (s *segmenter) DetectContours() gocv.PointsVector {
	return gocv.FindContours(s.mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
}

// Close releases the OpenCV resources held by the segmenter.
func (s *segmenter) Close() {
	s.gray.Close()
	s.mask.Close()
}
