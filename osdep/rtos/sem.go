package rtos

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

type semWaiter struct {
	ch   chan struct{}
	dead bool
}

func (w *semWaiter) isDead() bool {
	return w.dead
}

// sem is a counting semaphore. A give with waiters pending hands the count
// straight to the oldest waiter.
type sem struct {
	mu      sync.Mutex
	count   uint32
	limit   uint32
	waiters *queue.Queue
}

func newSem(initial, limit uint32) (*sem, error) {
	if limit == 0 {
		limit = osdep.SemMaxLimit
	}
	if initial > limit {
		return nil, blecore.Wrapf(blecore.EINVAL, "sem init", "initial %d above limit %d", initial, limit)
	}
	return &sem{count: initial, limit: limit, waiters: queue.New()}, nil
}

func (s *sem) Take(t osdep.Timeout) error {
	s.mu.Lock()
	if s.count > 0 {
		s.count--
		s.mu.Unlock()
		return nil
	}
	if t.IsNoWait() {
		s.mu.Unlock()
		return blecore.ETIMEDOUT
	}
	w := &semWaiter{ch: make(chan struct{})}
	s.waiters.Add(w)
	s.mu.Unlock()

	if wait(w.ch, t) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-w.ch:
		return nil
	default:
	}
	w.dead = true
	prune(s.waiters)
	return blecore.ETIMEDOUT
}

func (s *sem) Give() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.waiters.Length() > 0 {
		w := s.waiters.Remove().(*semWaiter)
		if w.dead {
			continue
		}
		close(w.ch)
		return nil
	}

	if s.count >= s.limit {
		// saturate
		return nil
	}
	s.count++
	return nil
}

func (s *sem) Count() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *sem) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
	return nil
}
