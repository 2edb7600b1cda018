// Package semaphore provides a counting semaphore built on sync.Cond rather
// than a buffered channel, so callers can inspect the in-flight count
// without racing a channel's internal state.
package semaphore

import "sync"

// Semaphore bounds the number of concurrent holders to a fixed capacity.
// Acquire blocks while the capacity is exhausted; Release frees one slot.
type Semaphore struct {
	cond     *sync.Cond
	lock     sync.Mutex
	count    int
	capacity int
}

// New returns a Semaphore allowing up to capacity concurrent holders. A
// non-positive capacity means unbounded.
func New(capacity int) *Semaphore {
	s := &Semaphore{capacity: capacity}
	s.cond = sync.NewCond(&s.lock)
	return s
}

// Acquire blocks until a slot is available, then claims it.
func (s *Semaphore) Acquire() {
	s.lock.Lock()
	defer s.lock.Unlock()

	for s.capacity > 0 && s.count >= s.capacity {
		s.cond.Wait()
	}
	s.count++
}

// Release frees a slot claimed by Acquire and wakes one waiter.
func (s *Semaphore) Release() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.count > 0 {
		s.count--
	}
	s.cond.Signal()
}

// InUse returns the current number of claimed slots.
func (s *Semaphore) InUse() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.count
}
