// Package stats collects runtime counters for the glowstream receiver and
// mirrors them into Prometheus collectors. A Global() singleton is shared
// by the server and the presentation scheduler.
package stats

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stats holds atomic counters for the receiver. Counters are updated from
// the ingest and presentation goroutines without additional locking.
type Stats struct {
	// Connections
	TotalConnections  atomic.Uint64
	ActiveConnections atomic.Uint64
	ConnectionErrors  atomic.Uint64

	// Ingest
	PacketsReceived   atomic.Uint64
	BytesReceived     atomic.Uint64
	DecodeErrors      atomic.Uint64
	ChannelMismatches atomic.Uint64

	// Queue
	FramesQueued    atomic.Uint64
	FramesEvicted   atomic.Uint64 // dropped by overflow policy
	FramesDiscarded atomic.Uint64 // dropped by backlog policy

	// Presentation
	FramesPresented atomic.Uint64
	fpsBits         atomic.Uint64 // float64 bits

	StartTime    time.Time
	LastActivity atomic.Value // time.Time

	prom *promMetrics
}

// promMetrics are the Prometheus views of the counters above plus the
// gauges only Prometheus carries (queue depth).
type promMetrics struct {
	connectionsTotal  prometheus.Counter
	connectionErrors  prometheus.Counter
	packetsTotal      prometheus.Counter
	bytesTotal        prometheus.Counter
	decodeErrors      prometheus.Counter
	channelMismatches prometheus.Counter
	framesQueued      prometheus.Counter
	framesEvicted     prometheus.Counter
	framesDiscarded   prometheus.Counter
	framesPresented   prometheus.Counter
	queueDepth        prometheus.Gauge
	presentFPS        prometheus.Gauge
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: "glowstream",
			Name:      name,
			Help:      help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "glowstream",
			Name:      name,
			Help:      help,
		})
	}

	return &promMetrics{
		connectionsTotal:  counter("connections_total", "Accepted TCP connections"),
		connectionErrors:  counter("connection_errors_total", "Connections terminated by read or decode failures"),
		packetsTotal:      counter("packets_received_total", "Wire packets fully received"),
		bytesTotal:        counter("bytes_received_total", "Payload bytes received"),
		decodeErrors:      counter("decode_errors_total", "Packets rejected by the wire codec"),
		channelMismatches: counter("channel_mismatches_total", "Valid packets addressed to another receiver"),
		framesQueued:      counter("frames_queued_total", "Frames pushed into the queue"),
		framesEvicted:     counter("frames_evicted_total", "Frames dropped by the queue overflow policy"),
		framesDiscarded:   counter("frames_discarded_total", "Backlog frames skipped by the scheduler"),
		framesPresented:   counter("frames_presented_total", "Frames handed to the display sink"),
		queueDepth:        gauge("queue_depth", "Frames currently buffered"),
		presentFPS:        gauge("present_fps", "Instantaneous presentation frame rate"),
	}
}

// New creates a Stats instance registering its Prometheus collectors with
// reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Stats {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &Stats{
		StartTime: time.Now(),
		prom:      newPromMetrics(reg),
	}
	s.LastActivity.Store(time.Now())
	return s
}

func (s *Stats) updateActivity() {
	s.LastActivity.Store(time.Now())
}

// Connection tracking
func (s *Stats) IncrementConnections() {
	s.TotalConnections.Add(1)
	s.ActiveConnections.Add(1)
	s.prom.connectionsTotal.Inc()
	s.updateActivity()
}

func (s *Stats) DecrementConnections() {
	s.ActiveConnections.Add(^uint64(0)) // subtract 1
}

func (s *Stats) IncrementConnectionErrors() {
	s.ConnectionErrors.Add(1)
	s.prom.connectionErrors.Inc()
}

// Ingest tracking
func (s *Stats) IncrementPacketsReceived() {
	s.PacketsReceived.Add(1)
	s.prom.packetsTotal.Inc()
	s.updateActivity()
}

func (s *Stats) AddBytesReceived(n uint64) {
	s.BytesReceived.Add(n)
	s.prom.bytesTotal.Add(float64(n))
}

func (s *Stats) IncrementDecodeErrors() {
	s.DecodeErrors.Add(1)
	s.prom.decodeErrors.Inc()
}

func (s *Stats) IncrementChannelMismatches() {
	s.ChannelMismatches.Add(1)
	s.prom.channelMismatches.Inc()
}

// Queue tracking
func (s *Stats) IncrementFramesQueued() {
	s.FramesQueued.Add(1)
	s.prom.framesQueued.Inc()
}

func (s *Stats) IncrementFramesEvicted() {
	s.FramesEvicted.Add(1)
	s.prom.framesEvicted.Inc()
}

func (s *Stats) IncrementFramesDiscarded() {
	s.FramesDiscarded.Add(1)
	s.prom.framesDiscarded.Inc()
}

// SetQueueDepth records the current queue size.
func (s *Stats) SetQueueDepth(n int) {
	s.prom.queueDepth.Set(float64(n))
}

// Presentation tracking
func (s *Stats) IncrementFramesPresented() {
	s.FramesPresented.Add(1)
	s.prom.framesPresented.Inc()
	s.updateActivity()
}

// SetFPS records the instantaneous presentation frame rate.
func (s *Stats) SetFPS(fps float64) {
	s.fpsBits.Store(math.Float64bits(fps))
	s.prom.presentFPS.Set(fps)
}

// FPS returns the last recorded presentation frame rate.
func (s *Stats) FPS() float64 {
	return math.Float64frombits(s.fpsBits.Load())
}

// Snapshot is a point-in-time copy of the counters, JSON-friendly for the
// debug endpoint.
type Snapshot struct {
	TotalConnections  uint64 `json:"total_connections"`
	ActiveConnections uint64 `json:"active_connections"`
	ConnectionErrors  uint64 `json:"connection_errors"`

	PacketsReceived   uint64 `json:"packets_received"`
	BytesReceived     uint64 `json:"bytes_received"`
	DecodeErrors      uint64 `json:"decode_errors"`
	ChannelMismatches uint64 `json:"channel_mismatches"`

	FramesQueued    uint64 `json:"frames_queued"`
	FramesEvicted   uint64 `json:"frames_evicted"`
	FramesDiscarded uint64 `json:"frames_discarded"`
	FramesPresented uint64 `json:"frames_presented"`

	FPS          float64   `json:"fps"`
	Uptime       string    `json:"uptime"`
	LastActivity time.Time `json:"last_activity"`
}

// GetSnapshot returns a copy of the current counters.
func (s *Stats) GetSnapshot() Snapshot {
	lastActivity := s.LastActivity.Load().(time.Time)

	return Snapshot{
		TotalConnections:  s.TotalConnections.Load(),
		ActiveConnections: s.ActiveConnections.Load(),
		ConnectionErrors:  s.ConnectionErrors.Load(),

		PacketsReceived:   s.PacketsReceived.Load(),
		BytesReceived:     s.BytesReceived.Load(),
		DecodeErrors:      s.DecodeErrors.Load(),
		ChannelMismatches: s.ChannelMismatches.Load(),

		FramesQueued:    s.FramesQueued.Load(),
		FramesEvicted:   s.FramesEvicted.Load(),
		FramesDiscarded: s.FramesDiscarded.Load(),
		FramesPresented: s.FramesPresented.Load(),

		FPS:          s.FPS(),
		Uptime:       time.Since(s.StartTime).String(),
		LastActivity: lastActivity,
	}
}

var (
	global     *Stats
	globalOnce sync.Once
)

// Global returns the process-wide Stats instance, creating it on first use
// against the default Prometheus registerer.
func Global() *Stats {
	globalOnce.Do(func() {
		global = New(nil)
	})
	return global
}
