//go:build linux

package posix

import (
	"container/list"
	"sync"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

// cond keeps its waiters in arrival order. Signal wakes the oldest one.
type cond struct {
	mu      sync.Mutex
	waiters list.List
}

func newCond() *cond {
	return &cond{}
}

func (c *cond) Wait(m osdep.Mutex, t osdep.Timeout) error {
	if m == nil {
		return blecore.EINVAL
	}
	if t.IsNoWait() {
		return blecore.ETIMEDOUT
	}

	// enqueue before dropping m so a signal sent in between is not lost
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	e := c.waiters.PushBack(ch)
	c.mu.Unlock()

	if err := m.Unlock(); err != nil {
		c.remove(e)
		return err
	}

	var err error
	if t.IsForever() {
		<-ch
	} else {
		tc, stop := after(t)
		select {
		case <-ch:
		case <-tc:
			if !c.remove(e) {
				// signalled while timing out, consume the wakeup
				<-ch
			} else {
				err = blecore.ETIMEDOUT
			}
		}
		stop()
	}

	if lerr := m.Lock(osdep.Forever); lerr != nil {
		return lerr
	}
	return err
}

// remove reports whether e was still queued.
func (c *cond) remove(e *list.Element) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for it := c.waiters.Front(); it != nil; it = it.Next() {
		if it == e {
			c.waiters.Remove(e)
			return true
		}
	}
	return false
}

func (c *cond) Signal() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.waiters.Front(); e != nil {
		c.waiters.Remove(e)
		e.Value.(chan struct{}) <- struct{}{}
	}
	return nil
}

func (c *cond) Broadcast() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for e := c.waiters.Front(); e != nil; e = c.waiters.Front() {
		c.waiters.Remove(e)
		e.Value.(chan struct{}) <- struct{}{}
	}
	return nil
}
