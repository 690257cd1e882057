// Package slist provides intrusive linked lists. Elements embed an SNode or
// DNode and expose it through a method, so a list never allocates and an
// element can move between lists without copying.
package slist

import "github.com/rigado/blecore"

// SNode links an element into an SList.
type SNode[T any] struct {
	next   *T
	linked bool
}

// Linked reports whether the node is currently on a list.
func (n *SNode[T]) Linked() bool {
	return n.linked
}

// SLinker is implemented by *T when T embeds an SNode[T].
type SLinker[T any] interface {
	*T
	SNode() *SNode[T]
}

// SList is a singly linked list with O(1) append, prepend and head removal.
// It is not safe for concurrent use.
type SList[T any, P SLinker[T]] struct {
	head *T
	tail *T
	n    int
}

func node[T any, P SLinker[T]](e *T) *SNode[T] {
	return P(e).SNode()
}

func (l *SList[T, P]) Init() {
	l.head, l.tail, l.n = nil, nil, 0
}

func (l *SList[T, P]) IsEmpty() bool {
	return l.head == nil
}

func (l *SList[T, P]) Len() int {
	return l.n
}

func (l *SList[T, P]) PeekHead() *T {
	return l.head
}

func (l *SList[T, P]) PeekTail() *T {
	return l.tail
}

// PeekNext returns the element after e.
func (l *SList[T, P]) PeekNext(e *T) *T {
	if e == nil {
		return nil
	}
	return node[T, P](e).next
}

func (l *SList[T, P]) link(e *T) *SNode[T] {
	n := node[T, P](e)
	blecore.Assert(!n.linked, "slist: element already linked")
	n.linked = true
	l.n++
	return n
}

func (l *SList[T, P]) Append(e *T) {
	n := l.link(e)
	n.next = nil
	if l.tail == nil {
		l.head = e
	} else {
		node[T, P](l.tail).next = e
	}
	l.tail = e
}

func (l *SList[T, P]) Prepend(e *T) {
	n := l.link(e)
	n.next = l.head
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
}

// InsertAfter links e after prev, or at the head when prev is nil.
func (l *SList[T, P]) InsertAfter(prev, e *T) {
	if prev == nil {
		l.Prepend(e)
		return
	}
	if prev == l.tail {
		l.Append(e)
		return
	}
	n := l.link(e)
	pn := node[T, P](prev)
	n.next = pn.next
	pn.next = e
}

// Get unlinks and returns the head, or nil.
func (l *SList[T, P]) Get() *T {
	e := l.head
	if e == nil {
		return nil
	}
	l.unlink(nil, e)
	return e
}

// Remove unlinks e, whose predecessor is prev (nil for the head).
func (l *SList[T, P]) Remove(prev, e *T) {
	l.unlink(prev, e)
}

func (l *SList[T, P]) unlink(prev, e *T) {
	n := node[T, P](e)
	if prev == nil {
		l.head = n.next
		if l.tail == e {
			l.tail = l.head
		}
	} else {
		node[T, P](prev).next = n.next
		if l.tail == e {
			l.tail = prev
		}
	}
	n.next = nil
	n.linked = false
	l.n--
}

// Find returns the predecessor of e and whether e is on the list.
func (l *SList[T, P]) Find(e *T) (prev *T, ok bool) {
	for it := l.head; it != nil; it = node[T, P](it).next {
		if it == e {
			return prev, true
		}
		prev = it
	}
	return nil, false
}

// FindAndRemove unlinks e if it is on the list.
func (l *SList[T, P]) FindAndRemove(e *T) bool {
	prev, ok := l.Find(e)
	if !ok {
		return false
	}
	l.unlink(prev, e)
	return true
}

// MoveAll appends every element of other and leaves other empty.
func (l *SList[T, P]) MoveAll(other *SList[T, P]) {
	if other.head == nil {
		return
	}
	if l.tail == nil {
		l.head = other.head
	} else {
		node[T, P](l.tail).next = other.head
	}
	l.tail = other.tail
	l.n += other.n
	other.Init()
}

// ForEach calls fn for each element in order until fn returns false. fn must
// not unlink elements.
func (l *SList[T, P]) ForEach(fn func(e *T) bool) {
	for it := l.head; it != nil; it = node[T, P](it).next {
		if !fn(it) {
			return
		}
	}
}
