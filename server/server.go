// Package server accepts pixel-data connections and drives the ingest
// loop: byte-exact reads, wire decode, channel validation, queue push, and
// the status reply written back after every accepted packet.
package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/seiftnesse/glowstream/buffer"
	"github.com/seiftnesse/glowstream/logger"
	"github.com/seiftnesse/glowstream/pkg/config"
	"github.com/seiftnesse/glowstream/protocol/wire"
	"github.com/seiftnesse/glowstream/stats"
)

// Server owns the TCP listener and the per-connection ingest state. One
// client is served at a time: the sender is a single producer, and serial
// service keeps frame arrival ordered.
type Server struct {
	cfg       *config.Config
	queue     *buffer.Queue
	stats     *stats.Stats
	listener  net.Listener
	maxPacket int
	closeCh   chan struct{}
}

// Listen binds the configured address and prepares the server. st may be
// nil to use the global stats instance.
func Listen(cfg *config.Config, queue *buffer.Queue, st *stats.Stats) (*Server, error) {
	if st == nil {
		st = stats.Global()
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen TCP: %w", err)
	}

	return &Server{
		cfg:       cfg,
		queue:     queue,
		stats:     st,
		listener:  listener,
		maxPacket: wire.HeaderSize + cfg.PixelCount()*wire.BytesPerPixel,
		closeCh:   make(chan struct{}),
	}, nil
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts and serves connections until Close is called. Connections
// are processed one at a time; a failed connection is closed and the loop
// immediately waits for the next one.
func (s *Server) Serve() error {
	logger.Info("listening on %s (expecting %d-pixel frames, max packet %d bytes)",
		s.listener.Addr(), s.cfg.PixelCount(), s.maxPacket)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return nil
			default:
				return fmt.Errorf("accept connection: %w", err)
			}
		}

		s.serveConn(conn)
	}
}

// Close stops the accept loop and closes the listener. In-flight reads are
// bounded by the receive timeout.
func (s *Server) Close() error {
	close(s.closeCh)
	return s.listener.Close()
}

// serveConn runs the ingest loop for one connection until a read, decode,
// or validation failure.
func (s *Server) serveConn(conn net.Conn) {
	connID := uuid.New().String()[:8]

	s.stats.IncrementConnections()
	defer func() {
		s.stats.DecrementConnections()
		conn.Close()
	}()

	logger.Info("[%s] connection from %s", connID, conn.RemoteAddr())
	tuneTCP(conn)

	in := newConnBuffer(s.maxPacket)
	scratch := make([]byte, s.maxPacket)

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		if err := s.processPacket(conn, in, scratch); err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("[%s] connection closed by sender", connID)
			} else {
				logger.Warn("[%s] closing connection: %v", connID, err)
				s.stats.IncrementConnectionErrors()
			}
			return
		}
	}
}

// processPacket reads, decodes, and queues one wire packet, then sends the
// status reply. A nil return means the connection is good for the next
// packet; any error is connection-fatal.
func (s *Server) processPacket(conn net.Conn, in *connBuffer, scratch []byte) error {
	timeout := s.cfg.ReceiveTimeout

	// Enough for a standard header, which also covers the 16-byte
	// compressed header.
	if err := in.readExactly(conn, wire.HeaderSize, timeout); err != nil {
		return err
	}

	var payload []byte
	if wire.IsCompressed(in.bytes()) {
		ch, err := wire.DecodeCompressedHeader(in.bytes())
		if err != nil {
			s.stats.IncrementDecodeErrors()
			return err
		}
		if int(ch.ExpandedSize) > s.maxPacket {
			s.stats.IncrementDecodeErrors()
			return fmt.Errorf("%w: expanded size %d, maximum is %d", ErrPacketTooLarge, ch.ExpandedSize, s.maxPacket)
		}

		total := wire.CompressedHeaderSize + int(ch.CompressedSize)
		if err := in.readExactly(conn, total, timeout); err != nil {
			return err
		}

		expanded := scratch[:ch.ExpandedSize]
		if err := wire.Decompress(expanded, in.bytes()[wire.CompressedHeaderSize:total]); err != nil {
			s.stats.IncrementDecodeErrors()
			return err
		}
		payload = expanded
	} else {
		hdr, err := wire.DecodeHeader(in.bytes())
		if err != nil {
			s.stats.IncrementDecodeErrors()
			return err
		}
		if hdr.Command != wire.CommandPixelData {
			s.stats.IncrementDecodeErrors()
			return fmt.Errorf("%w: command %d", wire.ErrUnsupportedCommand, hdr.Command)
		}

		total := wire.HeaderSize + int(hdr.PixelCount)*wire.BytesPerPixel
		if err := in.readExactly(conn, total, timeout); err != nil {
			return err
		}
		payload = in.bytes()[:total]
	}

	received := in.received

	hdr, err := wire.DecodeHeader(payload)
	if err != nil {
		s.stats.IncrementDecodeErrors()
		return err
	}

	// Addressed to another receiver: discard quietly and keep the
	// connection; the sender shares one stream across channels.
	if err := wire.ValidateChannel(hdr.Channel); err != nil {
		logger.Debug("discarding packet: %v", err)
		s.stats.IncrementChannelMismatches()
		in.reset()
		return nil
	}

	frame, err := wire.ParseFrame(payload)
	if err != nil {
		s.stats.IncrementDecodeErrors()
		return err
	}

	if s.queue.Push(frame) {
		s.stats.IncrementFramesEvicted()
	}
	s.stats.IncrementFramesQueued()
	s.stats.SetQueueDepth(s.queue.Size())
	s.stats.IncrementPacketsReceived()
	s.stats.AddBytesReceived(uint64(received))

	in.reset()

	s.sendStatusReply(conn)
	return nil
}

// sendStatusReply writes the fixed 64-byte telemetry packet. A short or
// failed write is logged but does not terminate the connection.
func (s *Server) sendStatusReply(conn net.Conn) {
	reply := wire.StatusReply{
		Version:       wire.ProtocolVersion,
		CurrentClock:  wire.TimeToSeconds(time.Now()),
		OldestAge:     s.queue.AgeOfOldest(),
		NewestAge:     s.queue.AgeOfNewest(),
		Brightness:    s.cfg.Brightness,
		SignalQuality: 99,
		BufferSize:    uint32(s.queue.Capacity()),
		BufferPos:     uint32(s.queue.Size()),
		FPS:           uint32(s.stats.FPS()),
		Watts:         0,
	}

	conn.SetWriteDeadline(time.Now().Add(s.cfg.ReceiveTimeout))
	if _, err := conn.Write(reply.Encode()); err != nil {
		logger.Warn("failed to send status reply: %v", err)
	}
}

// tuneTCP applies the transport settings used for low-latency streaming:
// no Nagle delay so status replies go out immediately, and keep-alive to
// notice a vanished sender.
func tuneTCP(conn net.Conn) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	tcpConn.SetNoDelay(true)
	tcpConn.SetKeepAlive(true)
	tcpConn.SetKeepAlivePeriod(30 * time.Second)
}
