package rtos

import (
	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

const condBit EventBits = 0x01

// cond emulates a condition variable with an event group. Both Signal and
// Broadcast set the bit, which releases every current waiter; waiters
// re-check their predicate.
type cond struct {
	g *EventGroup
}

func newCond() *cond {
	return &cond{g: NewEventGroup()}
}

func (c *cond) Wait(m osdep.Mutex, t osdep.Timeout) error {
	if m == nil {
		return blecore.EINVAL
	}
	if t.IsNoWait() {
		return blecore.ETIMEDOUT
	}

	// clear and register before dropping m so a signal sent in between
	// releases this waiter
	c.g.ClearBits(condBit)
	w := c.g.prepare(condBit, true, false)
	if err := m.Unlock(); err != nil {
		return err
	}

	var bits EventBits
	if w.ch == nil {
		bits = w.got
	} else {
		bits = c.g.finish(w, t)
	}

	if err := m.Lock(osdep.Forever); err != nil {
		return err
	}
	if bits&condBit == 0 {
		return blecore.ETIMEDOUT
	}
	return nil
}

func (c *cond) Signal() error {
	c.g.SetBits(condBit)
	return nil
}

func (c *cond) Broadcast() error {
	c.g.SetBits(condBit)
	return nil
}
