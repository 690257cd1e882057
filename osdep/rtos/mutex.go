package rtos

import (
	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

// mutex is a binary semaphore that starts available.
type mutex struct {
	s *sem
}

func newMutex() *mutex {
	s, _ := newSem(1, 1)
	return &mutex{s: s}
}

func (m *mutex) Lock(t osdep.Timeout) error {
	return m.s.Take(t)
}

func (m *mutex) Unlock() error {
	m.s.mu.Lock()
	held := m.s.count == 0
	m.s.mu.Unlock()
	if !held {
		return blecore.Wrapf(blecore.EINVAL, "mutex unlock", "mutex not locked")
	}
	return m.s.Give()
}
