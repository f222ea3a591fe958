package frames

import (
	"context"
	"io"

	"go.uber.org/multierr"
)

// Slice serves frames that are already in memory.
//
// It takes ownership of the Mats: frames handed out by Next belong to the caller,
// the rest are released by Close.
type Slice struct {
	frames []Frame
	next   int
}

// NewSlice creates a source over frames, served in the given order.
func NewSlice(frames ...Frame) *Slice {
	return &Slice{frames: frames}
}

// Next returns the next frame.
func (s *Slice) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.next >= len(s.frames) {
		return Frame{}, io.EOF
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}

// Close releases the frames that were never handed out.
func (s *Slice) Close() error {
	var err error
	for i := s.next; i < len(s.frames); i++ {
		err = multierr.Append(err, s.frames[i].Close())
	}
	s.next = len(s.frames)
	return err
}
