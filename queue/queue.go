// Package queue provides blocking queues over intrusive lists. Elements
// embed an slist.SNode; the queue never allocates.
package queue

import (
	"github.com/rigado/blecore/osdep"
	"github.com/rigado/blecore/poll"
	"github.com/rigado/blecore/slist"
)

// Q is a mutex and condition variable protected list. Append and Prepend
// wake one blocked Get.
type Q[T any, P slist.SLinker[T]] struct {
	mu   osdep.Mutex
	cond osdep.Cond
	list slist.SList[T, P]

	waiters int
	cancels int
	events  poll.EventList
}

func New[T any, P slist.SLinker[T]]() *Q[T, P] {
	q := &Q[T, P]{}
	q.Init()
	return q
}

func (q *Q[T, P]) Init() {
	q.mu = osdep.NewMutex()
	q.cond = osdep.NewCond()
	q.list.Init()
	q.waiters, q.cancels = 0, 0
}

func (q *Q[T, P]) lock() {
	osdep.MustLock(q.mu)
}

func (q *Q[T, P]) unlock() {
	osdep.MustUnlock(q.mu)
}

// wake runs with mu held after e was linked.
func (q *Q[T, P]) wake(wasEmpty bool) {
	_ = q.cond.Signal()
	if wasEmpty {
		poll.HandleObjEvents(&q.events, poll.StateDataAvailable)
	}
}

func (q *Q[T, P]) Append(e *T) {
	q.lock()
	defer q.unlock()
	wasEmpty := q.list.IsEmpty()
	q.list.Append(e)
	q.wake(wasEmpty)
}

func (q *Q[T, P]) Prepend(e *T) {
	q.lock()
	defer q.unlock()
	wasEmpty := q.list.IsEmpty()
	q.list.Prepend(e)
	q.wake(wasEmpty)
}

// InsertAfter links e after prev, or at the head when prev is nil.
func (q *Q[T, P]) InsertAfter(prev, e *T) {
	q.lock()
	defer q.unlock()
	wasEmpty := q.list.IsEmpty()
	q.list.InsertAfter(prev, e)
	q.wake(wasEmpty)
}

// AppendList moves every element of l to the tail of q.
func (q *Q[T, P]) AppendList(l *slist.SList[T, P]) {
	if l.IsEmpty() {
		return
	}
	q.lock()
	defer q.unlock()
	wasEmpty := q.list.IsEmpty()
	q.list.MoveAll(l)
	q.wake(wasEmpty)
}

// UniqueAppend appends e unless it is already queued. It reports whether e
// was added.
func (q *Q[T, P]) UniqueAppend(e *T) bool {
	q.lock()
	defer q.unlock()
	if _, ok := q.list.Find(e); ok {
		return false
	}
	wasEmpty := q.list.IsEmpty()
	q.list.Append(e)
	q.wake(wasEmpty)
	return true
}

// Remove unlinks e and reports whether it was queued.
func (q *Q[T, P]) Remove(e *T) bool {
	q.lock()
	defer q.unlock()
	return q.list.FindAndRemove(e)
}

// Get removes the head, waiting up to t while the queue is empty. It
// returns nil on timeout or when the wait is cancelled with CancelWait.
func (q *Q[T, P]) Get(t osdep.Timeout) *T {
	q.lock()
	defer q.unlock()

	start := osdep.NowMs()
	for q.list.IsEmpty() {
		rem := t.Remaining(start, osdep.NowMs())
		if rem.IsNoWait() {
			break
		}

		q.waiters++
		_ = q.cond.Wait(q.mu, rem)
		q.waiters--

		if q.cancels > 0 && q.list.IsEmpty() {
			q.cancels--
			return nil
		}
	}

	// a cancel is only good for a Get blocked when it was issued
	if q.cancels > q.waiters {
		q.cancels = q.waiters
	}
	return q.list.Get()
}

// CancelWait wakes one blocked Get, which returns nil. Pollers waiting for
// data are released with StateCancelled.
func (q *Q[T, P]) CancelWait() {
	q.lock()
	defer q.unlock()
	if q.waiters > q.cancels {
		q.cancels++
		_ = q.cond.Signal()
	}
	poll.HandleObjEvents(&q.events, poll.StateCancelled)
}

func (q *Q[T, P]) PeekHead() *T {
	q.lock()
	defer q.unlock()
	return q.list.PeekHead()
}

func (q *Q[T, P]) PeekTail() *T {
	q.lock()
	defer q.unlock()
	return q.list.PeekTail()
}

func (q *Q[T, P]) IsEmpty() bool {
	q.lock()
	defer q.unlock()
	return q.list.IsEmpty()
}

func (q *Q[T, P]) Len() int {
	q.lock()
	defer q.unlock()
	return q.list.Len()
}

// PollRegister implements poll.Source for TypeDataAvailable events.
func (q *Q[T, P]) PollRegister(e *poll.Event) bool {
	q.lock()
	defer q.unlock()
	if !q.list.IsEmpty() {
		poll.MarkReady(e, poll.StateDataAvailable)
		return true
	}
	q.events.Append(e)
	return false
}

func (q *Q[T, P]) PollUnregister(e *poll.Event) {
	q.lock()
	defer q.unlock()
	q.events.Remove(e)
}
