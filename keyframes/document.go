// Package keyframes - The per-video result document: one entry per decoded frame
// with the shapes detected in it, and its JSON and YAML encodings.
package keyframes

import (
	"github.com/nvr-ai/go-keyframes/shapes"
)

// FrameResult pairs a frame's presentation time with the shapes detected in it.
type FrameResult struct {
	// Index is the zero-based position of the frame in its source.
	Index int
	// TimestampMs is the presentation time in milliseconds.
	TimestampMs float64
	// Shapes is the detector output for the frame, possibly empty.
	Shapes []shapes.Record
}

// Document is the persisted result of a run, ordered by timestamp.
type Document []FrameEntry

// FrameEntry is the wire form of a FrameResult.
type FrameEntry struct {
	TimestampMs float64 `json:"timestamp_ms" yaml:"timestamp_ms"`
	Shapes      []Shape `json:"shapes" yaml:"shapes"`
}

// Shape is the wire form of a shapes.Record.
type Shape struct {
	Type     string  `json:"type" yaml:"type"`
	CX       float64 `json:"cx" yaml:"cx"`
	CY       float64 `json:"cy" yaml:"cy"`
	W        float64 `json:"w" yaml:"w"`
	H        float64 `json:"h" yaml:"h"`
	Angle    float64 `json:"angle" yaml:"angle"`
	ColorBGR [3]int  `json:"color_bgr" yaml:"color_bgr,flow"`
}

// FromResults converts ordered frame results to their wire form.
//
// Every frame yields an entry, including frames without shapes, whose Shapes is an
// empty (not nil) slice so it encodes as [].
func FromResults(results []FrameResult) Document {
	doc := make(Document, 0, len(results))
	for _, r := range results {
		entry := FrameEntry{
			TimestampMs: r.TimestampMs,
			Shapes:      make([]Shape, 0, len(r.Shapes)),
		}
		for _, rec := range r.Shapes {
			entry.Shapes = append(entry.Shapes, FromRecord(rec))
		}
		doc = append(doc, entry)
	}
	return doc
}

// FromRecord converts one detector record.
func FromRecord(rec shapes.Record) Shape {
	return Shape{
		Type:     rec.Kind.String(),
		CX:       rec.CenterX,
		CY:       rec.CenterY,
		W:        rec.Width,
		H:        rec.Height,
		Angle:    rec.Angle,
		ColorBGR: [3]int{int(rec.Color[0]), int(rec.Color[1]), int(rec.Color[2])},
	}
}

// ShapeCount returns the number of shapes across all frames.
func (d Document) ShapeCount() int {
	n := 0
	for _, e := range d {
		n += len(e.Shapes)
	}
	return n
}

// KindCounts returns the number of shapes per wire type name.
func (d Document) KindCounts() map[string]int {
	counts := make(map[string]int, len(shapes.Kinds))
	for _, kind := range shapes.Kinds {
		counts[kind.String()] = 0
	}
	for _, e := range d {
		for _, s := range e.Shapes {
			counts[s.Type]++
		}
	}
	return counts
}
