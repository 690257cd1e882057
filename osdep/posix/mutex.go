//go:build linux

package posix

import (
	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

// mutex is a one slot channel: holding the slot means holding the lock.
type mutex struct {
	slot chan struct{}
}

func newMutex() *mutex {
	return &mutex{slot: make(chan struct{}, 1)}
}

func (m *mutex) Lock(t osdep.Timeout) error {
	switch {
	case t.IsNoWait():
		select {
		case m.slot <- struct{}{}:
			return nil
		default:
			return blecore.ETIMEDOUT
		}

	case t.IsForever():
		m.slot <- struct{}{}
		return nil
	}

	c, stop := after(t)
	defer stop()
	select {
	case m.slot <- struct{}{}:
		return nil
	case <-c:
		return blecore.ETIMEDOUT
	}
}

func (m *mutex) Unlock() error {
	select {
	case <-m.slot:
		return nil
	default:
		return blecore.Wrapf(blecore.EINVAL, "mutex unlock", "mutex not locked")
	}
}
