package wire

import (
	"errors"
	"testing"
)

func TestDecodeHeader(t *testing.T) {
	h := Header{
		Command:    CommandPixelData,
		Channel:    1,
		PixelCount: 2048,
		Seconds:    1724900000,
		Micros:     250000,
	}

	encoded := EncodeHeader(nil, h)
	if len(encoded) != HeaderSize {
		t.Fatalf("EncodeHeader produced %d bytes, want %d", len(encoded), HeaderSize)
	}

	decoded, err := DecodeHeader(encoded)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if decoded != h {
		t.Errorf("DecodeHeader = %+v, want %+v", decoded, h)
	}
}

func TestDecodeHeaderShortInput(t *testing.T) {
	for _, n := range []int{0, 1, 23} {
		_, err := DecodeHeader(make([]byte, n))
		if !errors.Is(err, ErrMalformedHeader) {
			t.Errorf("DecodeHeader with %d bytes: got %v, want ErrMalformedHeader", n, err)
		}
	}
}

func TestDecodeHeaderLittleEndian(t *testing.T) {
	// Hand-built header: command=3, channel=0x0101, count=0x00000102,
	// seconds=2, micros=1.
	b := []byte{
		0x03, 0x00,
		0x01, 0x01,
		0x02, 0x01, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	h, err := DecodeHeader(b)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if h.Command != CommandPixelData || h.Channel != 0x0101 || h.PixelCount != 0x0102 || h.Seconds != 2 || h.Micros != 1 {
		t.Errorf("unexpected header: %+v", h)
	}
}

func TestDecodeCompressedHeader(t *testing.T) {
	pkt, err := EncodePacket(0, []byte{1, 2, 3}, 10, 20)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	wrapped, err := EncodeCompressedPacket(pkt)
	if err != nil {
		t.Fatalf("EncodeCompressedPacket failed: %v", err)
	}

	if !IsCompressed(wrapped) {
		t.Fatal("IsCompressed = false for compressed packet")
	}

	ch, err := DecodeCompressedHeader(wrapped)
	if err != nil {
		t.Fatalf("DecodeCompressedHeader failed: %v", err)
	}
	if int(ch.ExpandedSize) != len(pkt) {
		t.Errorf("ExpandedSize = %d, want %d", ch.ExpandedSize, len(pkt))
	}
	if int(ch.CompressedSize) != len(wrapped)-CompressedHeaderSize {
		t.Errorf("CompressedSize = %d, want %d", ch.CompressedSize, len(wrapped)-CompressedHeaderSize)
	}
}

func TestDecodeCompressedHeaderRejectsStandardHeader(t *testing.T) {
	pkt, err := EncodePacket(0, []byte{1, 2, 3}, 10, 20)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}

	if IsCompressed(pkt) {
		t.Error("IsCompressed = true for standard packet")
	}
	if _, err := DecodeCompressedHeader(pkt); !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("DecodeCompressedHeader on standard packet: got %v, want ErrMalformedHeader", err)
	}
}

func TestValidateChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel uint16
		ok      bool
	}{
		{"broadcast", 0, true},
		{"odd", 1, true},
		{"odd high", 0x0F01, true},
		{"even", 2, false},
		{"even high", 0x0F00, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChannel(tt.channel)
			if tt.ok && err != nil {
				t.Errorf("ValidateChannel(%d) = %v, want nil", tt.channel, err)
			}
			if !tt.ok && !errors.Is(err, ErrChannelMismatch) {
				t.Errorf("ValidateChannel(%d) = %v, want ErrChannelMismatch", tt.channel, err)
			}
		})
	}
}
