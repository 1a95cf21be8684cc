package wire

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
)

// Decompress inflates a raw DEFLATE stream (no zlib or gzip wrapper) into
// dst. The stream must decompress to exactly len(dst) bytes; a truncated,
// corrupt, or wrong-sized stream fails with ErrDecompression.
func Decompress(dst, compressed []byte) error {
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()

	n, err := io.ReadFull(fr, dst)
	if err != nil {
		return fmt.Errorf("%w: inflated %d of %d bytes: %v", ErrDecompression, n, len(dst), err)
	}

	// The stream has to end exactly where the expanded size says it does.
	var extra [1]byte
	if m, _ := fr.Read(extra[:]); m != 0 {
		return fmt.Errorf("%w: stream decompresses past expected %d bytes", ErrDecompression, len(dst))
	}

	return nil
}

// Compress deflates data as a raw DEFLATE stream.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("create deflate writer: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("flush deflate stream: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeCompressedPacket wraps an already-encoded standard packet in the
// compressed framing: 16-byte compressed header followed by the raw
// DEFLATE stream of the packet.
func EncodeCompressedPacket(packet []byte) ([]byte, error) {
	compressed, err := Compress(packet)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, CompressedHeaderSize+len(compressed))
	out = binary.LittleEndian.AppendUint32(out, CompressedMagic)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(compressed)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(packet)))
	out = binary.LittleEndian.AppendUint32(out, 0) // reserved
	out = append(out, compressed...)
	return out, nil
}
