// Package wire implements the glowstream wire protocol: fixed-size
// little-endian packet headers carrying timestamped RGB pixel data, an
// optional raw-DEFLATE compressed framing, and the fixed 64-byte status
// reply sent back to the producer after every accepted packet.
//
// The package is pure encode/decode logic and performs no I/O.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Command identifies the packet type carried by a standard header.
type Command uint16

const (
	// CommandPixelData is a frame of RGB color data with a 64-bit
	// seconds/microseconds presentation timestamp.
	CommandPixelData Command = 3

	// CommandPeakData carries audio peak levels. Recognized on the wire
	// but not supported by this receiver.
	CommandPeakData Command = 4
)

const (
	// HeaderSize is the size of the standard packet header.
	HeaderSize = 24

	// CompressedHeaderSize is the size of the compressed-framing header.
	CompressedHeaderSize = 16

	// CompressedMagic tags a compressed block. ASCII "DAVE", a holdover
	// from the protocol's origin.
	CompressedMagic uint32 = 0x44415645

	// BytesPerPixel is the wire size of one RGB triple.
	BytesPerPixel = 3
)

// Header is the standard 24-byte packet header.
type Header struct {
	Command    Command
	Channel    uint16
	PixelCount uint32
	Seconds    uint64
	Micros     uint64
}

// DecodeHeader reads a standard header from the first HeaderSize bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: have %d bytes, need %d", ErrMalformedHeader, len(b), HeaderSize)
	}

	return Header{
		Command:    Command(binary.LittleEndian.Uint16(b[0:2])),
		Channel:    binary.LittleEndian.Uint16(b[2:4]),
		PixelCount: binary.LittleEndian.Uint32(b[4:8]),
		Seconds:    binary.LittleEndian.Uint64(b[8:16]),
		Micros:     binary.LittleEndian.Uint64(b[16:24]),
	}, nil
}

// EncodeHeader appends the wire form of h to dst and returns the result.
func EncodeHeader(dst []byte, h Header) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(h.Command))
	dst = binary.LittleEndian.AppendUint16(dst, h.Channel)
	dst = binary.LittleEndian.AppendUint32(dst, h.PixelCount)
	dst = binary.LittleEndian.AppendUint64(dst, h.Seconds)
	dst = binary.LittleEndian.AppendUint64(dst, h.Micros)
	return dst
}

// CompressedHeader is the 16-byte header of the compressed framing.
type CompressedHeader struct {
	CompressedSize uint32
	ExpandedSize   uint32
	Reserved       uint32
}

// IsCompressed reports whether b starts with the compressed-block magic.
// Any other leading bytes mean b is the start of a standard header.
func IsCompressed(b []byte) bool {
	return len(b) >= 4 && binary.LittleEndian.Uint32(b[0:4]) == CompressedMagic
}

// DecodeCompressedHeader reads a compressed-framing header from the first
// CompressedHeaderSize bytes of b. The reserved field is decoded but unused.
func DecodeCompressedHeader(b []byte) (CompressedHeader, error) {
	if len(b) < CompressedHeaderSize {
		return CompressedHeader{}, fmt.Errorf("%w: have %d bytes, need %d", ErrMalformedHeader, len(b), CompressedHeaderSize)
	}
	if !IsCompressed(b) {
		return CompressedHeader{}, fmt.Errorf("%w: bad compressed magic %#08x", ErrMalformedHeader, binary.LittleEndian.Uint32(b[0:4]))
	}

	return CompressedHeader{
		CompressedSize: binary.LittleEndian.Uint32(b[4:8]),
		ExpandedSize:   binary.LittleEndian.Uint32(b[8:12]),
		Reserved:       binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}

// ValidateChannel checks the addressing parity rule: channel 0 is broadcast,
// and a nonzero channel must have its low bit set to be addressed to this
// receiver. Returns ErrChannelMismatch for packets meant for someone else.
func ValidateChannel(channel uint16) error {
	if channel != 0 && channel&0x01 == 0 {
		return fmt.Errorf("%w: channel %d not addressed to this receiver", ErrChannelMismatch, channel)
	}
	return nil
}
