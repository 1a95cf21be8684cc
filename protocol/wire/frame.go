package wire

import (
	"fmt"
	"time"
)

// MicrosPerSecond converts the wire timestamp's microsecond field.
const MicrosPerSecond = 1_000_000

// Frame is one timestamped grid of pixel colors. Frames are immutable after
// construction: the pixel data is copied out of the decode buffer, and the
// timestamp fields are set once from the wire and never recomputed.
type Frame struct {
	pixels  []byte
	seconds uint64
	micros  uint64
}

// NewFrame builds a Frame directly from pixel data and a timestamp. The
// pixel slice is copied. Used by senders and tests; the server side only
// constructs frames through ParseFrame.
func NewFrame(pixels []byte, seconds, micros uint64) *Frame {
	p := make([]byte, len(pixels))
	copy(p, pixels)
	return &Frame{pixels: p, seconds: seconds, micros: micros}
}

// ParseFrame decodes a full standard packet (header plus pixel data) from
// payload, which must be fully assembled and, if it arrived compressed,
// already expanded. The pixel bytes are copied so payload may be reused.
func ParseFrame(payload []byte) (*Frame, error) {
	hdr, err := DecodeHeader(payload)
	if err != nil {
		return nil, err
	}

	if hdr.Command != CommandPixelData {
		return nil, fmt.Errorf("%w: command %d", ErrUnsupportedCommand, hdr.Command)
	}

	need := HeaderSize + int(hdr.PixelCount)*BytesPerPixel
	if len(payload) < need {
		return nil, fmt.Errorf("%w: have %d bytes, need %d for %d pixels", ErrTruncatedPayload, len(payload), need, hdr.PixelCount)
	}

	pixels := make([]byte, int(hdr.PixelCount)*BytesPerPixel)
	copy(pixels, payload[HeaderSize:need])

	return &Frame{
		pixels:  pixels,
		seconds: hdr.Seconds,
		micros:  hdr.Micros,
	}, nil
}

// Pixels returns the frame's RGB data, 3 bytes per pixel in row-major
// order. The returned slice is the frame's backing store; callers take
// ownership of the frame when they pop it and must not hold both.
func (f *Frame) Pixels() []byte { return f.pixels }

// PixelCount returns the number of RGB triples in the frame.
func (f *Frame) PixelCount() int { return len(f.pixels) / BytesPerPixel }

// Seconds returns the whole-seconds part of the presentation timestamp.
func (f *Frame) Seconds() uint64 { return f.seconds }

// Micros returns the sub-second microseconds part of the timestamp.
func (f *Frame) Micros() uint64 { return f.micros }

// Timestamp returns the presentation time as float seconds since the epoch.
func (f *Frame) Timestamp() float64 {
	return float64(f.seconds) + float64(f.micros)/MicrosPerSecond
}

// TimeToSeconds converts t to float seconds since the epoch, the unit used
// by wire timestamps and age telemetry.
func TimeToSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / MicrosPerSecond
}

// EncodePacket builds a standard wire packet for a pixel-data frame.
// pixels must be 3 bytes per pixel.
func EncodePacket(channel uint16, pixels []byte, seconds, micros uint64) ([]byte, error) {
	if len(pixels)%BytesPerPixel != 0 {
		return nil, fmt.Errorf("pixel data length %d is not a multiple of %d", len(pixels), BytesPerPixel)
	}

	hdr := Header{
		Command:    CommandPixelData,
		Channel:    channel,
		PixelCount: uint32(len(pixels) / BytesPerPixel),
		Seconds:    seconds,
		Micros:     micros,
	}

	out := make([]byte, 0, HeaderSize+len(pixels))
	out = EncodeHeader(out, hdr)
	out = append(out, pixels...)
	return out, nil
}
