package shutdown

import "sync"

// SignalCounter counts shutdown signals so a second signal can force an
// immediate exit while the first one stays graceful.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func()
}

// NewSignalCounter creates a counter that invokes onForce once the count
// reaches forceAfter. onForce may be nil.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{forceAfter: forceAfter, onForce: onForce}
}

// Increment records one signal and returns the new count. The onForce
// callback fires while the lock is held; it is expected to exit the
// process.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if s.onForce != nil && s.count >= s.forceAfter {
		s.onForce()
	}
	return s.count
}

// Count returns the number of signals seen so far.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
