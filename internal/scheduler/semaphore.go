package scheduler

import (
	"context"
	"sync"
)

// Semaphore is a counting semaphore implemented over a buffered channel.
// Unlike Tokio's Semaphore, a Go channel's capacity is fixed once created,
// so hot-reconfiguration (Resize) is implemented by draining the existing
// permits and swapping in a freshly-sized channel under a mutex — this is
// the functional equivalent of add_permits/forget_permits, not a literal
// channel resize.
type Semaphore struct {
	mu      sync.Mutex
	permits chan struct{}
}

// NewSemaphore creates a semaphore with n permits available immediately.
func NewSemaphore(n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	s := &Semaphore{permits: make(chan struct{}, n)}
	for i := 0; i < n; i++ {
		s.permits <- struct{}{}
	}
	return s
}

// Acquire blocks until a permit is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	ch := s.permits
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit to the pool.
func (s *Semaphore) Release() {
	s.mu.Lock()
	ch := s.permits
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
	default:
		// A Resize shrank capacity while this permit was checked out;
		// drop it rather than block or panic on a full buffer.
	}
}

// Available returns the number of permits currently free.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.permits)
}

// Resize changes the total permit count to n, matching the scheduler's
// "add permits / forget permits" hot-reconfiguration requirement.
// Permits held at the time of the resize stay checked out: the new buffer
// is filled with n minus the held count, and a later Release returns the
// permit to the new buffer (or drops it if that buffer is already full).
func (s *Semaphore) Resize(n int) {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inUse := cap(s.permits) - len(s.permits)
	next := make(chan struct{}, n)
	fill := n - inUse
	for i := 0; i < fill; i++ {
		next <- struct{}{}
	}
	s.permits = next
}
