package dev

import (
	"sync"
	"time"

	"github.com/lalilo-dev/lalilo/internal/clock"
)

// Scheduler debounces work per key. Each key has at most one pending
// timer; scheduling a key again replaces its timer, so only the last call
// inside the delay window fires.
//
// Icon and stylesheet sources are debounced independently and their fire
// functions enqueue onto one build queue. Builds therefore complete in
// the order their timers fired, which may differ from the order of the
// raw filesystem events. Outputs converge once every timer has fired.
type Scheduler struct {
	clock clock.Clock
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*scheduled
}

type scheduled struct {
	timer clock.Timer
}

// NewScheduler creates a Scheduler with a fixed delay.
func NewScheduler(clk clock.Clock, delay time.Duration) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	return &Scheduler{
		clock:   clk,
		delay:   delay,
		pending: make(map[string]*scheduled),
	}
}

// Schedule cancels any pending timer for key and arms a new one that
// calls fire after the delay. A non-positive delay fires immediately.
func (s *Scheduler) Schedule(key string, fire func()) {
	if s.delay <= 0 {
		s.Cancel(key)
		fire()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
	}
	entry := &scheduled{}
	s.pending[key] = entry
	entry.timer = s.clock.AfterFunc(s.delay, func() {
		s.mu.Lock()
		// A replaced timer may already be running when Stop is called.
		if s.pending[key] != entry {
			s.mu.Unlock()
			return
		}
		delete(s.pending, key)
		s.mu.Unlock()
		fire()
	})
}

// Cancel drops the pending timer for key. It reports whether one existed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.pending, key)
	return true
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every pending timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.pending {
		entry.timer.Stop()
		delete(s.pending, key)
	}
}
