package wire

import "errors"

// Decode failure kinds. Callers match these with errors.Is; the concrete
// errors returned by the codec wrap them with context about the packet.
var (
	ErrMalformedHeader    = errors.New("malformed header")
	ErrTruncatedPayload   = errors.New("truncated payload")
	ErrDecompression      = errors.New("decompression failed")
	ErrUnsupportedCommand = errors.New("unsupported command")

	// ErrChannelMismatch means the packet was valid but addressed to a
	// different receiver. It is not a connection-fatal condition.
	ErrChannelMismatch = errors.New("channel mismatch")
)
