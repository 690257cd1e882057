package slist

import "github.com/rigado/blecore"

// DNode links an element into a DList.
type DNode[T any] struct {
	next   *T
	prev   *T
	linked bool
}

func (n *DNode[T]) Linked() bool {
	return n.linked
}

// DLinker is implemented by *T when T embeds a DNode[T].
type DLinker[T any] interface {
	*T
	DNode() *DNode[T]
}

// DList is a doubly linked list with O(1) removal of any element.
type DList[T any, P DLinker[T]] struct {
	head *T
	tail *T
	n    int
}

func dnode[T any, P DLinker[T]](e *T) *DNode[T] {
	return P(e).DNode()
}

func (l *DList[T, P]) IsEmpty() bool {
	return l.head == nil
}

func (l *DList[T, P]) Len() int {
	return l.n
}

func (l *DList[T, P]) PeekHead() *T {
	return l.head
}

func (l *DList[T, P]) PeekTail() *T {
	return l.tail
}

func (l *DList[T, P]) PeekNext(e *T) *T {
	if e == nil {
		return nil
	}
	return dnode[T, P](e).next
}

func (l *DList[T, P]) link(e *T) *DNode[T] {
	n := dnode[T, P](e)
	blecore.Assert(!n.linked, "dlist: element already linked")
	n.linked = true
	l.n++
	return n
}

func (l *DList[T, P]) Append(e *T) {
	n := l.link(e)
	n.next = nil
	n.prev = l.tail
	if l.tail == nil {
		l.head = e
	} else {
		dnode[T, P](l.tail).next = e
	}
	l.tail = e
}

func (l *DList[T, P]) Prepend(e *T) {
	n := l.link(e)
	n.prev = nil
	n.next = l.head
	if l.head == nil {
		l.tail = e
	} else {
		dnode[T, P](l.head).prev = e
	}
	l.head = e
}

// InsertBefore links e ahead of at, or at the tail when at is nil.
func (l *DList[T, P]) InsertBefore(at, e *T) {
	if at == nil {
		l.Append(e)
		return
	}
	if at == l.head {
		l.Prepend(e)
		return
	}
	n := l.link(e)
	an := dnode[T, P](at)
	n.prev = an.prev
	n.next = at
	dnode[T, P](an.prev).next = e
	an.prev = e
}

// Remove unlinks e. Removing an unlinked element is a no-op.
func (l *DList[T, P]) Remove(e *T) {
	n := dnode[T, P](e)
	if !n.linked {
		return
	}
	if n.prev == nil {
		l.head = n.next
	} else {
		dnode[T, P](n.prev).next = n.next
	}
	if n.next == nil {
		l.tail = n.prev
	} else {
		dnode[T, P](n.next).prev = n.prev
	}
	n.next, n.prev, n.linked = nil, nil, false
	l.n--
}

// Get unlinks and returns the head, or nil.
func (l *DList[T, P]) Get() *T {
	e := l.head
	if e != nil {
		l.Remove(e)
	}
	return e
}

// ForEach walks the list in order until fn returns false. fn may unlink the
// element it is given.
func (l *DList[T, P]) ForEach(fn func(e *T) bool) {
	for it := l.head; it != nil; {
		next := dnode[T, P](it).next
		if !fn(it) {
			return
		}
		it = next
	}
}
