package loop

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_BasicPushPop(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 5; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		val, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Error("TryPop() on empty queue returned true")
	}
}

func TestQueue_GrowKeepsOrder(t *testing.T) {
	q := NewQueue[int](4)

	// Advance head so the ring wraps before growing
	q.Push(-1)
	q.Push(-2)
	q.TryPop()
	q.TryPop()

	for i := 0; i < 20; i++ {
		q.Push(i)
	}

	stats := q.Stats()
	if stats.ResizeCount == 0 {
		t.Error("expected at least one resize")
	}
	if stats.Capacity <= 4 {
		t.Errorf("Capacity = %d, expected growth", stats.Capacity)
	}

	for i := 0; i < 20; i++ {
		val, ok := q.TryPop()
		if !ok || val != i {
			t.Fatalf("TryPop() = %d, %v; want %d, true", val, ok, i)
		}
	}
}

func TestQueue_CloseRejectsPush(t *testing.T) {
	q := NewQueue[string](2)
	q.Push("a")
	q.Close()

	if q.Push("b") {
		t.Error("Push after Close returned true")
	}

	// Pending items survive Close
	val, ok := q.Pop()
	if !ok || val != "a" {
		t.Errorf("Pop() = %q, %v; want a, true", val, ok)
	}

	if _, ok := q.Pop(); ok {
		t.Error("Pop() on closed empty queue returned true")
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewQueue[int](2)

	var wg sync.WaitGroup
	var got int
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, _ = q.Pop()
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(42)
	wg.Wait()

	if got != 42 {
		t.Errorf("Pop() = %d, want 42", got)
	}
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := NewQueue[int](1)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	if q.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", q.Len())
	}
	if q.Stats().TotalPushed != 1000 {
		t.Errorf("TotalPushed = %d, want 1000", q.Stats().TotalPushed)
	}
}
