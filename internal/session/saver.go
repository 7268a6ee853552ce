package session

import (
	"log"
	"sync"
	"time"
)

// saver coalesces rapid mutations into one delayed write. The save function
// snapshots state when the timer fires, so the write always reflects the
// latest field values rather than the values at schedule time.
type saver struct {
	mu     sync.Mutex
	clock  Clock
	window time.Duration
	save   func() error
	timer  Timer
}

func newSaver(clock Clock, window time.Duration, save func() error) *saver {
	return &saver{clock: clock, window: window, save: save}
}

// Schedule arms the debounce timer. Calls while a write is already pending
// are absorbed: the pending write will pick up the newer values.
func (s *saver) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		return
	}
	s.timer = s.clock.AfterFunc(s.window, s.fire)
}

func (s *saver) fire() {
	s.mu.Lock()
	s.timer = nil
	s.mu.Unlock()

	if err := s.save(); err != nil {
		// Non-fatal: in-memory state stays source of truth and the next
		// scheduled cycle retries with latest values.
		log.Printf("debounced save failed: %v", err)
	}
}

// Flush cancels any pending timer and writes synchronously.
func (s *saver) Flush() error {
	s.cancelTimer()
	return s.save()
}

// Cancel drops any pending write without performing it.
func (s *saver) Cancel() {
	s.cancelTimer()
}

// Pending reports whether a write is scheduled.
func (s *saver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *saver) cancelTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
