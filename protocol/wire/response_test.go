package wire

import (
	"testing"
)

func TestStatusReplySize(t *testing.T) {
	r := StatusReply{}
	if got := len(r.Encode()); got != StatusReplySize {
		t.Fatalf("Encode produced %d bytes, want exactly %d", got, StatusReplySize)
	}
}

func TestStatusReplyRoundTrip(t *testing.T) {
	r := StatusReply{
		Version:       ProtocolVersion,
		CurrentClock:  1724900123.456789,
		OldestAge:     -0.25,
		NewestAge:     1.5,
		Brightness:    100,
		SignalQuality: 99,
		BufferSize:    500,
		BufferPos:     42,
		FPS:           30,
		Watts:         0,
	}

	decoded, err := DecodeStatusReply(r.Encode())
	if err != nil {
		t.Fatalf("DecodeStatusReply failed: %v", err)
	}

	want := r
	want.Size = StatusReplySize
	if decoded != want {
		t.Errorf("round trip = %+v, want %+v", decoded, want)
	}
}

func TestDecodeStatusReplyShort(t *testing.T) {
	if _, err := DecodeStatusReply(make([]byte, StatusReplySize-1)); err == nil {
		t.Error("DecodeStatusReply accepted a short buffer")
	}
}
