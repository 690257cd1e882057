package queue

import (
	"github.com/rigado/blecore/osdep"
	"github.com/rigado/blecore/poll"
	"github.com/rigado/blecore/slist"
)

// LIFO queues and dequeues at the head.
type LIFO[T any, P slist.SLinker[T]] struct {
	q Q[T, P]
}

func NewLIFO[T any, P slist.SLinker[T]]() *LIFO[T, P] {
	l := &LIFO[T, P]{}
	l.Init()
	return l
}

func (l *LIFO[T, P]) Init() {
	l.q.Init()
}

func (l *LIFO[T, P]) Put(e *T) {
	l.q.Prepend(e)
}

func (l *LIFO[T, P]) Get(t osdep.Timeout) *T {
	return l.q.Get(t)
}

func (l *LIFO[T, P]) PeekHead() *T {
	return l.q.PeekHead()
}

func (l *LIFO[T, P]) IsEmpty() bool {
	return l.q.IsEmpty()
}

func (l *LIFO[T, P]) Len() int {
	return l.q.Len()
}

func (l *LIFO[T, P]) CancelWait() {
	l.q.CancelWait()
}

func (l *LIFO[T, P]) PollRegister(e *poll.Event) bool {
	return l.q.PollRegister(e)
}

func (l *LIFO[T, P]) PollUnregister(e *poll.Event) {
	l.q.PollUnregister(e)
}
