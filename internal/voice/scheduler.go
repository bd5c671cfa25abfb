package voice

import (
	"sync"
	"time"
)

// Scheduler places reply chunks back to back on the speaker timeline.
type Scheduler struct {
	mu   sync.Mutex
	next time.Duration
}

// Schedule reserves dur starting at max(now, end of the previous chunk)
// and returns the start.
func (s *Scheduler) Schedule(now, dur time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := max(now, s.next)
	s.next = start + dur
	return start
}

// Next reports where the following chunk would start at the earliest.
func (s *Scheduler) Next() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Reset clears the timeline.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.next = 0
	s.mu.Unlock()
}
