// Package buffer provides the bounded, timestamp-aware frame queue that
// decouples packet arrival from presentation timing.
package buffer

import (
	"math"
	"sync"
	"time"

	"github.com/seiftnesse/glowstream/protocol/wire"
)

// EmptyAge is the sentinel age of an empty queue: no frame will ever be due.
const EmptyAge = math.MaxFloat64

// Queue is a fixed-capacity FIFO of frames shared between one producer
// (the ingest loop) and one consumer (the presentation scheduler). When
// full, pushing silently drops the oldest frame. A single mutex serializes
// every operation so size and age views stay self-consistent; no operation
// blocks on I/O while holding it.
type Queue struct {
	mu       sync.Mutex
	frames   []*wire.Frame
	capacity int

	// now is swappable for tests.
	now func() float64
}

// NewQueue creates a queue holding at most capacity frames. Capacity must
// be at least 1.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		frames:   make([]*wire.Frame, 0, capacity),
		capacity: capacity,
		now:      func() float64 { return wire.TimeToSeconds(time.Now()) },
	}
}

// Push appends frame at the newest position, evicting the oldest frame
// first if the queue is full. Never blocks and never fails. Returns true
// if an older frame was dropped to make room.
func (q *Queue) Push(frame *wire.Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := false
	if len(q.frames) == q.capacity {
		q.frames[0] = nil
		q.frames = q.frames[1:]
		dropped = true
	}
	q.frames = append(q.frames, frame)
	return dropped
}

// PopOldest removes and returns the oldest frame, or nil if the queue is
// empty. Ownership of the frame moves to the caller.
func (q *Queue) PopOldest() *wire.Frame {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return nil
	}
	frame := q.frames[0]
	q.frames[0] = nil
	q.frames = q.frames[1:]
	return frame
}

// AgeOfOldest returns the oldest frame's timestamp minus the current time,
// in seconds. Zero or negative means the frame is due. Returns EmptyAge
// when the queue is empty.
func (q *Queue) AgeOfOldest() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return EmptyAge
	}
	return q.frames[0].Timestamp() - q.now()
}

// AgeOfNewest returns the newest frame's timestamp minus the current time,
// in seconds. Returns EmptyAge when the queue is empty.
func (q *Queue) AgeOfNewest() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return EmptyAge
	}
	return q.frames[len(q.frames)-1].Timestamp() - q.now()
}

// Size returns the number of queued frames.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Capacity returns the maximum number of queued frames.
func (q *Queue) Capacity() int {
	return q.capacity
}
