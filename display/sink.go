// Package display hands buffered frames to a pixel sink at the moment
// their timestamps become due.
package display

import (
	"errors"
	"sync/atomic"
)

// ErrSizeMismatch means a frame's pixel count does not equal the sink's
// capacity. The producer and the display disagree on resolution, which is
// a configuration fault, so presentation aborts rather than truncating.
var ErrSizeMismatch = errors.New("frame size does not match display")

// Sink is the output device a frame is committed to. The sink refreshes on
// its own cadence; Present only hands it the next complete frame.
type Sink interface {
	// PixelCount returns the number of RGB pixels the sink displays.
	PixelCount() int

	// Present commits one frame of RGB triples (3 bytes per pixel,
	// row-major). The slice is owned by the caller and is only valid for
	// the duration of the call.
	Present(pixels []byte) error
}

// NullSink discards frames. Used for headless operation and benchmarks.
type NullSink struct {
	pixels    int
	presented atomic.Uint64
}

// NewNullSink creates a sink that accepts pixelCount-sized frames and
// drops them.
func NewNullSink(pixelCount int) *NullSink {
	return &NullSink{pixels: pixelCount}
}

func (s *NullSink) PixelCount() int { return s.pixels }

func (s *NullSink) Present(pixels []byte) error {
	s.presented.Add(1)
	return nil
}

// Presented returns how many frames the sink has accepted.
func (s *NullSink) Presented() uint64 { return s.presented.Load() }
