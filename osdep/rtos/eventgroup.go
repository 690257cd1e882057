package rtos

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/rigado/blecore/osdep"
)

// EventBits is the bit set of an event group.
type EventBits uint32

type bitWaiter struct {
	mask  EventBits
	all   bool
	clear bool
	ch    chan struct{}
	got   EventBits
	dead  bool
}

// EventGroup lets tasks block until bits are set. Setting bits releases
// every waiter whose condition becomes true.
type EventGroup struct {
	mu      sync.Mutex
	bits    EventBits
	waiters *queue.Queue
}

func NewEventGroup() *EventGroup {
	return &EventGroup{waiters: queue.New()}
}

// SetBits ors bits in and releases matching waiters. It returns the bits
// left set afterwards.
func (g *EventGroup) SetBits(bits EventBits) EventBits {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.bits |= bits
	var clear EventBits
	for n := g.waiters.Length(); n > 0; n-- {
		w := g.waiters.Remove().(*bitWaiter)
		if w.dead {
			continue
		}
		if !w.match(g.bits) {
			g.waiters.Add(w)
			continue
		}
		w.got = g.bits
		if w.clear {
			clear |= w.mask
		}
		close(w.ch)
	}
	g.bits &^= clear
	return g.bits
}

func (g *EventGroup) ClearBits(bits EventBits) EventBits {
	g.mu.Lock()
	defer g.mu.Unlock()
	prev := g.bits
	g.bits &^= bits
	return prev
}

func (g *EventGroup) Bits() EventBits {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bits
}

// WaitBits waits up to t for mask (all of it when all is set) and returns the
// group bits seen at release. On timeout the current bits are returned and
// the mask test fails.
func (g *EventGroup) WaitBits(mask EventBits, clear, all bool, t osdep.Timeout) EventBits {
	w := g.prepare(mask, clear, all)
	if w.ch == nil {
		return w.got
	}
	return g.finish(w, t)
}

// prepare registers a waiter, or satisfies it at once.
func (g *EventGroup) prepare(mask EventBits, clear, all bool) *bitWaiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	w := &bitWaiter{mask: mask, all: all, clear: clear}
	if w.match(g.bits) {
		w.got = g.bits
		if clear {
			g.bits &^= mask
		}
		return w
	}
	w.ch = make(chan struct{})
	g.waiters.Add(w)
	return w
}

func (g *EventGroup) finish(w *bitWaiter, t osdep.Timeout) EventBits {
	if wait(w.ch, t) {
		return w.got
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-w.ch:
		// released while timing out
		return w.got
	default:
	}
	w.dead = true
	prune(g.waiters)
	return g.bits
}

// prune drops timed out waiters from q.
func prune(q *queue.Queue) {
	for n := q.Length(); n > 0; n-- {
		w := q.Remove()
		if d, ok := w.(interface{ isDead() bool }); ok && d.isDead() {
			continue
		}
		q.Add(w)
	}
}

func (w *bitWaiter) isDead() bool {
	return w.dead
}

func (w *bitWaiter) match(bits EventBits) bool {
	if w.all {
		return bits&w.mask == w.mask
	}
	return bits&w.mask != 0
}
