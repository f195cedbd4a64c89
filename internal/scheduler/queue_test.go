package scheduler

import (
	"testing"
	"time"
)

func TestQueueFIFOWithinClass(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	kinds := []ChoreKind{ChoreChatEvent, ChoreScheduledTaskRun, ChoreDelayedMessage, ChoreChatEvent}
	for _, k := range kinds {
		q.Push(&Chore{Kind: k})
	}
	for i, want := range kinds {
		got := q.Pop()
		if got.Kind != want {
			t.Fatalf("pop %d: got %v, want %v", i, got.Kind, want)
		}
	}
}

func TestQueueStopJumpsQueue(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	q.Push(&Chore{Kind: ChoreChatEvent})
	q.Push(&Chore{Kind: ChoreCondenseMessage})
	q.Push(&Chore{Kind: ChoreFinish})
	q.Push(&Chore{Kind: ChoreStop})

	want := []ChoreKind{ChoreStop, ChoreCondenseMessage, ChoreChatEvent, ChoreFinish}
	for i, k := range want {
		got := q.Pop()
		if got.Kind != k {
			t.Fatalf("pop %d: got %v, want %v", i, got.Kind, k)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("queue not drained: %d left", q.Len())
	}
}

func TestQueueCondenseBeforeBacklog(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	q.Push(&Chore{Kind: ChoreChatEvent})
	q.Push(&Chore{Kind: ChoreChatEvent})
	q.Push(&Chore{Kind: ChoreCondenseMessage})

	if got := q.Pop(); got.Kind != ChoreCondenseMessage {
		t.Fatalf("got %v, want condense first", got.Kind)
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push(&Chore{Kind: ChoreFinish})
	}()

	done := make(chan *Chore, 1)
	go func() { done <- q.Pop() }()

	select {
	case c := <-done:
		if c.Kind != ChoreFinish {
			t.Fatalf("got %v, want finish", c.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not return after Push")
	}
}
