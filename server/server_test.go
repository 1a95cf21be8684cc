package server

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seiftnesse/glowstream/buffer"
	"github.com/seiftnesse/glowstream/pkg/config"
	"github.com/seiftnesse/glowstream/protocol/wire"
	"github.com/seiftnesse/glowstream/stats"
)

const testPixels = 16 // 4x4x1 test display

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.MatrixRows = 4
	cfg.MatrixCols = 4
	cfg.ChainLength = 1
	cfg.QueueCapacity = 10
	cfg.ReceiveTimeout = time.Second
	return cfg
}

func startServer(t *testing.T) (*Server, *buffer.Queue, *stats.Stats) {
	t.Helper()

	cfg := testConfig()
	st := stats.New(prometheus.NewRegistry())
	q := buffer.NewQueue(cfg.QueueCapacity)

	srv, err := Listen(cfg, q, st)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })

	return srv, q, st
}

func dialServer(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial server: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func testFramePixels() []byte {
	pixels := make([]byte, testPixels*wire.BytesPerPixel)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	return pixels
}

func readReply(t *testing.T, conn net.Conn) wire.StatusReply {
	t.Helper()
	buf := make([]byte, wire.StatusReplySize)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read status reply: %v", err)
	}
	reply, err := wire.DecodeStatusReply(buf)
	if err != nil {
		t.Fatalf("decode status reply: %v", err)
	}
	return reply
}

func TestIngestPlainPacket(t *testing.T) {
	srv, q, st := startServer(t)
	conn := dialServer(t, srv)

	pkt, err := wire.EncodePacket(1, testFramePixels(), 1724900000, 123456)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	if _, err := conn.Write(pkt); err != nil {
		t.Fatalf("write packet: %v", err)
	}

	reply := readReply(t, conn)
	if reply.Size != wire.StatusReplySize {
		t.Errorf("reply size = %d, want %d", reply.Size, wire.StatusReplySize)
	}
	if reply.BufferPos != 1 {
		t.Errorf("reply buffer pos = %d, want 1", reply.BufferPos)
	}
	if reply.BufferSize != 10 {
		t.Errorf("reply buffer size = %d, want 10", reply.BufferSize)
	}

	if q.Size() != 1 {
		t.Fatalf("queue size = %d, want 1", q.Size())
	}
	frame := q.PopOldest()
	if frame.Seconds() != 1724900000 || frame.Micros() != 123456 {
		t.Errorf("frame timestamp = (%d, %d), want (1724900000, 123456)", frame.Seconds(), frame.Micros())
	}
	if frame.PixelCount() != testPixels {
		t.Errorf("frame pixels = %d, want %d", frame.PixelCount(), testPixels)
	}
	if st.PacketsReceived.Load() != 1 {
		t.Errorf("PacketsReceived = %d, want 1", st.PacketsReceived.Load())
	}
}

func TestIngestCompressedPacket(t *testing.T) {
	srv, q, _ := startServer(t)
	conn := dialServer(t, srv)

	pkt, err := wire.EncodePacket(0, testFramePixels(), 42, 7)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	wrapped, err := wire.EncodeCompressedPacket(pkt)
	if err != nil {
		t.Fatalf("EncodeCompressedPacket failed: %v", err)
	}
	if _, err := conn.Write(wrapped); err != nil {
		t.Fatalf("write packet: %v", err)
	}

	readReply(t, conn)

	frame := q.PopOldest()
	if frame == nil {
		t.Fatal("compressed packet did not reach the queue")
	}
	if frame.Seconds() != 42 || frame.Micros() != 7 {
		t.Errorf("frame timestamp = (%d, %d), want (42, 7)", frame.Seconds(), frame.Micros())
	}
}

func TestIngestMultiplePacketsSameConnection(t *testing.T) {
	srv, q, _ := startServer(t)
	conn := dialServer(t, srv)

	for s := uint64(1); s <= 3; s++ {
		pkt, err := wire.EncodePacket(1, testFramePixels(), s, 0)
		if err != nil {
			t.Fatalf("EncodePacket failed: %v", err)
		}
		if _, err := conn.Write(pkt); err != nil {
			t.Fatalf("write packet %d: %v", s, err)
		}
		reply := readReply(t, conn)
		if reply.BufferPos != uint32(s) {
			t.Errorf("packet %d: buffer pos = %d, want %d", s, reply.BufferPos, s)
		}
	}

	if q.Size() != 3 {
		t.Errorf("queue size = %d, want 3", q.Size())
	}
}

func TestChannelMismatchKeepsConnectionOpen(t *testing.T) {
	srv, q, st := startServer(t)
	conn := dialServer(t, srv)

	// Nonzero even channel: valid packet, but addressed elsewhere. No
	// reply is sent and nothing is queued.
	mismatch, err := wire.EncodePacket(2, testFramePixels(), 1, 0)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	if _, err := conn.Write(mismatch); err != nil {
		t.Fatalf("write mismatched packet: %v", err)
	}

	// The connection must survive for the next packet.
	accepted, err := wire.EncodePacket(1, testFramePixels(), 2, 0)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	if _, err := conn.Write(accepted); err != nil {
		t.Fatalf("write accepted packet: %v", err)
	}

	readReply(t, conn)

	if q.Size() != 1 {
		t.Fatalf("queue size = %d, want 1", q.Size())
	}
	if frame := q.PopOldest(); frame.Seconds() != 2 {
		t.Errorf("queued frame seconds = %d, want the channel-1 packet (2)", frame.Seconds())
	}
	if st.ChannelMismatches.Load() != 1 {
		t.Errorf("ChannelMismatches = %d, want 1", st.ChannelMismatches.Load())
	}
}

func TestUnsupportedCommandDropsConnection(t *testing.T) {
	srv, q, _ := startServer(t)
	conn := dialServer(t, srv)

	pkt, err := wire.EncodePacket(0, testFramePixels(), 1, 0)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	binary.LittleEndian.PutUint16(pkt[0:2], uint16(wire.CommandPeakData))

	if _, err := conn.Write(pkt); err != nil {
		t.Fatalf("write packet: %v", err)
	}

	// The server closes the connection; the next read sees EOF.
	buf := make([]byte, 1)
	if _, err := io.ReadFull(conn, buf); err == nil {
		t.Error("connection still open after unsupported command")
	}
	if q.Size() != 0 {
		t.Errorf("queue size = %d, want 0", q.Size())
	}
}

func TestOversizedPixelCountDropsConnection(t *testing.T) {
	srv, q, _ := startServer(t)
	conn := dialServer(t, srv)

	pkt, err := wire.EncodePacket(0, testFramePixels(), 1, 0)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	// Promise far more pixels than the display holds.
	binary.LittleEndian.PutUint32(pkt[4:8], 1<<20)

	if _, err := conn.Write(pkt); err != nil {
		t.Fatalf("write packet: %v", err)
	}

	buf := make([]byte, 1)
	if _, err := io.ReadFull(conn, buf); err == nil {
		t.Error("connection still open after oversized packet")
	}
	if q.Size() != 0 {
		t.Errorf("queue size = %d, want 0", q.Size())
	}
}

func TestServesNextConnectionAfterFailure(t *testing.T) {
	srv, q, _ := startServer(t)

	// First connection dies on garbage.
	bad := dialServer(t, srv)
	badPkt := make([]byte, wire.HeaderSize)
	badPkt[0] = 0xFF
	if _, err := bad.Write(badPkt); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	buf := make([]byte, 1)
	io.ReadFull(bad, buf) // wait for the close
	bad.Close()

	// A fresh connection is accepted and served.
	good := dialServer(t, srv)
	pkt, err := wire.EncodePacket(1, testFramePixels(), 5, 0)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	if _, err := good.Write(pkt); err != nil {
		t.Fatalf("write packet: %v", err)
	}
	readReply(t, good)

	if q.Size() != 1 {
		t.Errorf("queue size = %d, want 1", q.Size())
	}
}

func TestReadExactly(t *testing.T) {
	t.Run("over limit rejected", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		buf := newConnBuffer(64)
		err := buf.readExactly(server, 65, time.Second)
		if err == nil {
			t.Fatal("readExactly accepted a request beyond the maximum packet size")
		}
	})

	t.Run("already buffered returns immediately", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		buf := newConnBuffer(64)
		go client.Write([]byte("0123456789"))
		if err := buf.readExactly(server, 10, time.Second); err != nil {
			t.Fatalf("readExactly failed: %v", err)
		}

		// Asking for fewer bytes than buffered must not touch the
		// connection.
		if err := buf.readExactly(server, 5, time.Millisecond); err != nil {
			t.Fatalf("readExactly on buffered data failed: %v", err)
		}
		if string(buf.bytes()) != "0123456789" {
			t.Errorf("buffer = %q, want 0123456789", buf.bytes())
		}
	})

	t.Run("times out on stalled sender", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		buf := newConnBuffer(64)
		go client.Write([]byte("short"))

		start := time.Now()
		err := buf.readExactly(server, 10, 50*time.Millisecond)
		if err == nil {
			t.Fatal("readExactly succeeded with a stalled sender")
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("readExactly took %v, deadline did not bound the stall", elapsed)
		}
	})

	t.Run("reset discards buffered bytes", func(t *testing.T) {
		buf := newConnBuffer(64)
		buf.received = 10
		buf.reset()
		if len(buf.bytes()) != 0 {
			t.Errorf("bytes after reset = %d, want 0", len(buf.bytes()))
		}
	})
}
