package display

import (
	"fmt"
	"io"
	"strings"
)

// TermSink renders frames into a terminal using 24-bit color half blocks,
// two pixel rows per text line. It stands in for real matrix hardware so
// the receiver can be run and eyeballed on any development box.
type TermSink struct {
	w      io.Writer
	width  int
	height int
	buf    strings.Builder
	homed  bool
}

// NewTermSink creates a terminal sink for a width x height pixel grid
// writing to w.
func NewTermSink(w io.Writer, width, height int) *TermSink {
	return &TermSink{w: w, width: width, height: height}
}

func (s *TermSink) PixelCount() int { return s.width * s.height }

func (s *TermSink) Present(pixels []byte) error {
	if len(pixels) != s.width*s.height*3 {
		return fmt.Errorf("%w: got %d pixels, display is %dx%d", ErrSizeMismatch, len(pixels)/3, s.width, s.height)
	}

	s.buf.Reset()
	if !s.homed {
		// Clear once, then just re-home the cursor between frames.
		s.buf.WriteString("\x1b[2J")
		s.homed = true
	}
	s.buf.WriteString("\x1b[H")

	for y := 0; y < s.height; y += 2 {
		for x := 0; x < s.width; x++ {
			top := s.pixelAt(pixels, x, y)
			if y+1 < s.height {
				bottom := s.pixelAt(pixels, x, y+1)
				fmt.Fprintf(&s.buf, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
					top[0], top[1], top[2], bottom[0], bottom[1], bottom[2])
			} else {
				fmt.Fprintf(&s.buf, "\x1b[38;2;%d;%d;%dm▀", top[0], top[1], top[2])
			}
		}
		s.buf.WriteString("\x1b[0m\n")
	}

	_, err := io.WriteString(s.w, s.buf.String())
	return err
}

func (s *TermSink) pixelAt(pixels []byte, x, y int) [3]byte {
	i := (y*s.width + x) * 3
	return [3]byte{pixels[i], pixels[i+1], pixels[i+2]}
}
