package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// StatusReplySize is the exact wire size of a status reply.
const StatusReplySize = 64

// ProtocolVersion is reported in every status reply.
const ProtocolVersion uint32 = 0

// StatusReply is the fixed 64-byte telemetry packet written back to the
// producer after every accepted frame. Ages are in float seconds relative
// to the receiver's clock; negative means the frame is already due.
type StatusReply struct {
	Size          uint32
	Version       uint32
	CurrentClock  float64
	OldestAge     float64
	NewestAge     float64
	Brightness    float64
	SignalQuality float64
	BufferSize    uint32
	BufferPos     uint32
	FPS           uint32
	Watts         uint32
}

// Encode returns the wire form of r. The Size field is forced to
// StatusReplySize regardless of its value in r.
func (r StatusReply) Encode() []byte {
	out := make([]byte, 0, StatusReplySize)
	out = binary.LittleEndian.AppendUint32(out, StatusReplySize)
	out = binary.LittleEndian.AppendUint32(out, r.Version)
	out = binary.LittleEndian.AppendUint64(out, math.Float64bits(r.CurrentClock))
	out = binary.LittleEndian.AppendUint64(out, math.Float64bits(r.OldestAge))
	out = binary.LittleEndian.AppendUint64(out, math.Float64bits(r.NewestAge))
	out = binary.LittleEndian.AppendUint64(out, math.Float64bits(r.Brightness))
	out = binary.LittleEndian.AppendUint64(out, math.Float64bits(r.SignalQuality))
	out = binary.LittleEndian.AppendUint32(out, r.BufferSize)
	out = binary.LittleEndian.AppendUint32(out, r.BufferPos)
	out = binary.LittleEndian.AppendUint32(out, r.FPS)
	out = binary.LittleEndian.AppendUint32(out, r.Watts)
	return out
}

// DecodeStatusReply parses a status reply. Used by senders to consume the
// receiver's telemetry.
func DecodeStatusReply(b []byte) (StatusReply, error) {
	if len(b) < StatusReplySize {
		return StatusReply{}, fmt.Errorf("%w: have %d bytes, need %d", ErrMalformedHeader, len(b), StatusReplySize)
	}

	return StatusReply{
		Size:          binary.LittleEndian.Uint32(b[0:4]),
		Version:       binary.LittleEndian.Uint32(b[4:8]),
		CurrentClock:  math.Float64frombits(binary.LittleEndian.Uint64(b[8:16])),
		OldestAge:     math.Float64frombits(binary.LittleEndian.Uint64(b[16:24])),
		NewestAge:     math.Float64frombits(binary.LittleEndian.Uint64(b[24:32])),
		Brightness:    math.Float64frombits(binary.LittleEndian.Uint64(b[32:40])),
		SignalQuality: math.Float64frombits(binary.LittleEndian.Uint64(b[40:48])),
		BufferSize:    binary.LittleEndian.Uint32(b[48:52]),
		BufferPos:     binary.LittleEndian.Uint32(b[52:56]),
		FPS:           binary.LittleEndian.Uint32(b[56:60]),
		Watts:         binary.LittleEndian.Uint32(b[60:64]),
	}, nil
}
