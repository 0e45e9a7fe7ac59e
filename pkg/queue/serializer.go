// Package queue provides a FIFO mutual exclusion queue that keeps the
// number of outstanding upstream requests at exactly one, regardless of
// how many sub-lists are being fetched concurrently.
package queue

import (
	"context"
	"sync"
)

// Serializer hands out the single upstream slot in arrival order. Every
// call to the content provider must be wrapped in Acquire/Release.
type Serializer struct {
	mu      sync.Mutex
	busy    bool
	waiters []chan struct{}
}

func NewSerializer() *Serializer {
	return &Serializer{}
}

// Acquire blocks until the caller reaches the head of the queue and the
// slot is free. The context only cancels the wait, never a granted slot.
func (s *Serializer) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if !s.busy {
		s.busy = true
		s.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	s.waiters = append(s.waiters, ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for i, w := range s.waiters {
			if w == ready {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				s.mu.Unlock()
				return ctx.Err()
			}
		}
		// The slot was granted while the context fired, hand it on.
		s.releaseLocked()
		s.mu.Unlock()
		return ctx.Err()
	}
}

// Release wakes the next waiter, or marks the slot free if the queue is
// empty. Releasing a free slot is a programming error.
func (s *Serializer) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.busy {
		panic("queue: release of a free serializer")
	}

	s.releaseLocked()
}

func (s *Serializer) releaseLocked() {
	if len(s.waiters) > 0 {
		next := s.waiters[0]
		s.waiters = s.waiters[1:]
		close(next)
		return
	}

	s.busy = false
}
