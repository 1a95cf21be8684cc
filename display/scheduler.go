package display

import (
	"fmt"
	"time"

	"github.com/seiftnesse/glowstream/buffer"
	"github.com/seiftnesse/glowstream/logger"
	"github.com/seiftnesse/glowstream/stats"
)

// SchedulerConfig configures the presentation loop.
type SchedulerConfig struct {
	// MaxWaitInterval bounds the idle sleep so newly arrived frames are
	// picked up promptly without busy-spinning.
	MaxWaitInterval time.Duration

	// DiscardBacklog, when set, drops already-due frames whenever a newer
	// frame is also due, instead of presenting the backlog at catch-up
	// speed.
	DiscardBacklog bool

	Stats *stats.Stats
}

// Scheduler is the queue consumer: it pops frames as their timestamps
// come due and hands them to the sink, tracking the achieved frame rate.
type Scheduler struct {
	queue   *buffer.Queue
	sink    Sink
	cfg     SchedulerConfig
	timer   frameTimer
	closeCh chan struct{}
}

// NewScheduler creates a scheduler draining queue into sink.
func NewScheduler(queue *buffer.Queue, sink Sink, cfg SchedulerConfig) *Scheduler {
	if cfg.MaxWaitInterval <= 0 {
		cfg.MaxWaitInterval = 25 * time.Millisecond
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.Global()
	}
	return &Scheduler{
		queue:   queue,
		sink:    sink,
		cfg:     cfg,
		closeCh: make(chan struct{}),
	}
}

// Run loops presenting due frames until Stop is called or presentation
// fails. A size mismatch between frame and sink is fatal: the producer and
// the display disagree on resolution and drawing anyway would scramble
// the output.
func (s *Scheduler) Run() error {
	s.timer.reset()

	for {
		select {
		case <-s.closeCh:
			return nil
		default:
		}

		// Drain everything that is due.
		for s.queue.AgeOfOldest() <= 0 {
			frame := s.queue.PopOldest()
			if frame == nil {
				break
			}
			s.cfg.Stats.SetQueueDepth(s.queue.Size())

			if s.cfg.DiscardBacklog && s.queue.AgeOfOldest() <= 0 {
				// A newer frame is also due; this one would only be
				// shown late.
				s.cfg.Stats.IncrementFramesDiscarded()
				continue
			}

			if err := s.present(frame.Pixels()); err != nil {
				return err
			}
		}

		select {
		case <-s.closeCh:
			return nil
		case <-time.After(s.idleWait()):
		}
	}
}

// Stop signals the loop to exit. Safe to call once.
func (s *Scheduler) Stop() {
	close(s.closeCh)
}

func (s *Scheduler) present(pixels []byte) error {
	if len(pixels)/3 != s.sink.PixelCount() {
		return fmt.Errorf("%w: frame has %d pixels, sink expects %d",
			ErrSizeMismatch, len(pixels)/3, s.sink.PixelCount())
	}

	if err := s.sink.Present(pixels); err != nil {
		return fmt.Errorf("present frame: %w", err)
	}

	s.timer.newFrame()
	s.cfg.Stats.IncrementFramesPresented()
	s.cfg.Stats.SetFPS(s.timer.fps())
	logger.Debug("presented frame, fps=%.1f", s.timer.fps())
	return nil
}

// idleWait returns how long to sleep when nothing is due: the time until
// the oldest frame matures, capped by MaxWaitInterval.
func (s *Scheduler) idleWait() time.Duration {
	age := s.queue.AgeOfOldest()
	if age == buffer.EmptyAge {
		return s.cfg.MaxWaitInterval
	}
	if age <= 0 {
		return 0
	}
	wait := time.Duration(age * float64(time.Second))
	if wait > s.cfg.MaxWaitInterval {
		wait = s.cfg.MaxWaitInterval
	}
	return wait
}

// frameTimer tracks the interval between presented frames, the same way
// the display refresh clock does: delta capped at one second so a stall
// reads as 1 FPS rather than skewing the average.
type frameTimer struct {
	lastFrame time.Time
	delta     float64
}

func (t *frameTimer) reset() {
	t.lastFrame = time.Now()
	t.delta = 0
}

func (t *frameTimer) newFrame() {
	now := time.Now()
	d := now.Sub(t.lastFrame).Seconds()
	if d > 1.0 {
		d = 1.0
	}
	if d <= 0 {
		d = 1e-6
	}
	t.delta = d
	t.lastFrame = now
}

// fps returns the instantaneous frame rate from the last inter-frame
// interval, or 0 before the first frame.
func (t *frameTimer) fps() float64 {
	if t.delta <= 0 {
		return 0
	}
	return 1.0 / t.delta
}
