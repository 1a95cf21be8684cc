package buffer

import (
	"fmt"
	"testing"

	"github.com/seiftnesse/glowstream/protocol/wire"
)

func frameAt(seconds uint64) *wire.Frame {
	return wire.NewFrame([]byte{1, 2, 3}, seconds, 0)
}

func TestPushPopOrder(t *testing.T) {
	q := NewQueue(10)

	for s := uint64(1); s <= 5; s++ {
		q.Push(frameAt(s))
	}
	if q.Size() != 5 {
		t.Fatalf("Size = %d, want 5", q.Size())
	}

	for s := uint64(1); s <= 5; s++ {
		f := q.PopOldest()
		if f == nil {
			t.Fatalf("PopOldest returned nil at %d", s)
		}
		if f.Seconds() != s {
			t.Errorf("popped frame with seconds=%d, want %d", f.Seconds(), s)
		}
	}
	if f := q.PopOldest(); f != nil {
		t.Errorf("PopOldest on empty queue = %v, want nil", f)
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	tests := []struct {
		capacity int
		pushed   int
	}{
		{3, 4},
		{3, 10},
		{1, 5},
		{100, 250},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("cap%d_push%d", tt.capacity, tt.pushed), func(t *testing.T) {
			q := NewQueue(tt.capacity)
			for s := 1; s <= tt.pushed; s++ {
				q.Push(frameAt(uint64(s)))
			}

			if q.Size() != tt.capacity {
				t.Fatalf("Size = %d, want %d", q.Size(), tt.capacity)
			}

			// Survivors are the last `capacity` frames in arrival order.
			for s := tt.pushed - tt.capacity + 1; s <= tt.pushed; s++ {
				f := q.PopOldest()
				if f == nil {
					t.Fatalf("PopOldest returned nil, expected frame %d", s)
				}
				if f.Seconds() != uint64(s) {
					t.Errorf("popped seconds=%d, want %d", f.Seconds(), s)
				}
			}
		})
	}
}

func TestOverflowScenarioCapacityThree(t *testing.T) {
	q := NewQueue(3)
	for _, s := range []uint64{1, 2, 3, 4} {
		q.Push(frameAt(s))
	}

	if q.Size() != 3 {
		t.Fatalf("Size = %d, want 3", q.Size())
	}
	for _, want := range []uint64{2, 3, 4} {
		f := q.PopOldest()
		if f == nil || f.Seconds() != want {
			t.Fatalf("popped %v, want frame with seconds=%d", f, want)
		}
	}
}

func TestPushReportsDrop(t *testing.T) {
	q := NewQueue(2)
	if q.Push(frameAt(1)) {
		t.Error("Push into non-full queue reported a drop")
	}
	q.Push(frameAt(2))
	if !q.Push(frameAt(3)) {
		t.Error("Push into full queue did not report a drop")
	}
}

func TestAgesEmptyQueue(t *testing.T) {
	q := NewQueue(3)
	if got := q.AgeOfOldest(); got != EmptyAge {
		t.Errorf("AgeOfOldest on empty = %v, want EmptyAge", got)
	}
	if got := q.AgeOfNewest(); got != EmptyAge {
		t.Errorf("AgeOfNewest on empty = %v, want EmptyAge", got)
	}
}

func TestAgesSingleFrame(t *testing.T) {
	q := NewQueue(3)
	q.now = func() float64 { return 100.0 }

	q.Push(wire.NewFrame(nil, 102, 500000))

	oldest, newest := q.AgeOfOldest(), q.AgeOfNewest()
	if oldest != newest {
		t.Errorf("with one frame AgeOfOldest (%v) != AgeOfNewest (%v)", oldest, newest)
	}
	if oldest != 2.5 {
		t.Errorf("AgeOfOldest = %v, want 2.5", oldest)
	}
}

func TestAgeDueFrame(t *testing.T) {
	q := NewQueue(3)
	q.now = func() float64 { return 200.0 }

	q.Push(wire.NewFrame(nil, 199, 0))
	if age := q.AgeOfOldest(); age > 0 {
		t.Errorf("AgeOfOldest = %v for a past timestamp, want <= 0", age)
	}
}

func TestCapacity(t *testing.T) {
	if got := NewQueue(42).Capacity(); got != 42 {
		t.Errorf("Capacity = %d, want 42", got)
	}
	if got := NewQueue(0).Capacity(); got != 1 {
		t.Errorf("Capacity with zero requested = %d, want clamp to 1", got)
	}
}
