package server

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrPacketTooLarge means a packet declared more data than the maximum
// packet size allows. Connection-fatal: the sender is misconfigured or the
// stream is corrupt.
var ErrPacketTooLarge = errors.New("packet exceeds maximum packet size")

// connBuffer accumulates bytes read from one connection. Bytes stay in the
// buffer across readExactly calls until reset is called after a packet has
// been fully processed, so a later call can ask for a larger prefix of the
// same packet without re-reading.
type connBuffer struct {
	data     []byte
	received int
}

func newConnBuffer(maxPacket int) *connBuffer {
	return &connBuffer{data: make([]byte, maxPacket)}
}

// bytes returns the valid prefix of the buffer.
func (b *connBuffer) bytes() []byte {
	return b.data[:b.received]
}

// reset discards all buffered bytes.
func (b *connBuffer) reset() {
	b.received = 0
}

// readExactly blocks reading from conn until the buffer holds at least n
// bytes. Each read is bounded by timeout so a stalled or partial sender
// cannot hang the loop. Returns immediately if n bytes are already
// buffered; fails fast if n exceeds the buffer's capacity.
func (b *connBuffer) readExactly(conn net.Conn, n int, timeout time.Duration) error {
	if n <= b.received {
		return nil
	}
	if n > len(b.data) {
		return fmt.Errorf("%w: need %d bytes, maximum is %d", ErrPacketTooLarge, n, len(b.data))
	}

	for b.received < n {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		m, err := conn.Read(b.data[b.received:n])
		if m > 0 {
			b.received += m
		}
		if err != nil {
			return fmt.Errorf("read %d of %d bytes: %w", b.received, n, err)
		}
	}
	return nil
}
