package queue

import (
	"github.com/rigado/blecore/osdep"
	"github.com/rigado/blecore/poll"
	"github.com/rigado/blecore/slist"
)

// FIFO queues at the tail and dequeues at the head.
type FIFO[T any, P slist.SLinker[T]] struct {
	q Q[T, P]
}

func NewFIFO[T any, P slist.SLinker[T]]() *FIFO[T, P] {
	f := &FIFO[T, P]{}
	f.Init()
	return f
}

func (f *FIFO[T, P]) Init() {
	f.q.Init()
}

func (f *FIFO[T, P]) Put(e *T) {
	f.q.Append(e)
}

// PutList moves every element of l to the tail.
func (f *FIFO[T, P]) PutList(l *slist.SList[T, P]) {
	f.q.AppendList(l)
}

func (f *FIFO[T, P]) Get(t osdep.Timeout) *T {
	return f.q.Get(t)
}

func (f *FIFO[T, P]) PeekHead() *T {
	return f.q.PeekHead()
}

func (f *FIFO[T, P]) PeekTail() *T {
	return f.q.PeekTail()
}

func (f *FIFO[T, P]) IsEmpty() bool {
	return f.q.IsEmpty()
}

func (f *FIFO[T, P]) Len() int {
	return f.q.Len()
}

func (f *FIFO[T, P]) Remove(e *T) bool {
	return f.q.Remove(e)
}

func (f *FIFO[T, P]) CancelWait() {
	f.q.CancelWait()
}

func (f *FIFO[T, P]) PollRegister(e *poll.Event) bool {
	return f.q.PollRegister(e)
}

func (f *FIFO[T, P]) PollUnregister(e *poll.Event) {
	f.q.PollUnregister(e)
}
