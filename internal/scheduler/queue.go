package scheduler

import (
	"container/heap"
	"sync"
)

// Queue is an unbounded, concurrency-safe priority queue of chores.
// Producers (socket read loops, timers, external callers) push from any
// goroutine; the scheduler goroutine is the only consumer. Ordering is by
// chore class first, then strict insertion order, so chores of the same
// class are FIFO.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond
	h    choreHeap
	seq  uint64
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues c and wakes the consumer. Push never blocks.
func (q *Queue) Push(c *Chore) {
	q.mu.Lock()
	q.seq++
	c.seq = q.seq
	heap.Push(&q.h, c)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until a chore is available and returns the highest-priority
// one. Only the scheduler goroutine calls Pop.
func (q *Queue) Pop() *Chore {
	q.mu.Lock()
	for len(q.h) == 0 {
		q.cond.Wait()
	}
	c := heap.Pop(&q.h).(*Chore)
	q.mu.Unlock()
	return c
}

// Len reports the number of queued chores.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}

type choreHeap []*Chore

func (h choreHeap) Len() int { return len(h) }

func (h choreHeap) Less(i, j int) bool {
	ci, cj := h[i].Kind.class(), h[j].Kind.class()
	if ci != cj {
		return ci < cj
	}
	return h[i].seq < h[j].seq
}

func (h choreHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *choreHeap) Push(x any) { *h = append(*h, x.(*Chore)) }

func (h *choreHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}
