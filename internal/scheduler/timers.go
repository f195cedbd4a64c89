package scheduler

import (
	"sync"
	"time"
)

// TimerService turns durations into future chores. Every fired timer
// pushes its chore onto the scheduler queue, so timer callbacks never run
// domain logic themselves. Handles allow individual cancellation; Stop
// cancels everything that has not fired yet.
type TimerService struct {
	q *Queue

	mu      sync.Mutex
	timers  map[uint64]*time.Timer
	next    uint64
	stopped bool

	// lastDelay remembers the most recent Schedule duration. It survives
	// the timer firing, so tests can assert computed delays without racing
	// a zero-delay fire.
	lastDelay time.Duration
}

// Handle identifies one pending timer. The zero Handle is inert.
type Handle struct {
	id uint64
	s  *TimerService
}

// NewTimerService returns a service feeding q.
func NewTimerService(q *Queue) *TimerService {
	return &TimerService{q: q, timers: make(map[uint64]*time.Timer)}
}

// Schedule enqueues c after d has elapsed. Scheduling on a stopped
// service returns an inert handle and the chore never fires.
func (s *TimerService) Schedule(d time.Duration, c *Chore) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return &Handle{}
	}
	s.next++
	id := s.next
	s.lastDelay = d
	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[id]
		delete(s.timers, id)
		stopped := s.stopped
		s.mu.Unlock()
		if live && !stopped {
			s.q.Push(c)
		}
	})
	return &Handle{id: id, s: s}
}

// lastScheduledDelay reports the duration passed to the most recent
// Schedule call.
func (s *TimerService) lastScheduledDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDelay
}

// Pending reports the number of timers that have not fired or been
// canceled.
func (s *TimerService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels all pending timers. Further Schedule calls are no-ops.
func (s *TimerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Cancel stops the timer if it has not fired yet.
func (h *Handle) Cancel() {
	if h == nil || h.s == nil {
		return
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if t, ok := h.s.timers[h.id]; ok {
		t.Stop()
		delete(h.s.timers, h.id)
	}
}
