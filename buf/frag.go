package buf

import (
	"sync"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
	"github.com/rigado/blecore/slist"
)

// FragLast returns the last buffer of the chain starting at b.
func (b *Buf) FragLast() *Buf {
	for b.frags != nil {
		b = b.frags
	}
	return b
}

// FragInsert links frag, with any chain behind it, right after parent. It
// takes over the caller's reference on frag.
func (b *Buf) FragInsert(frag *Buf) {
	blecore.Assert(frag != nil, "buf: insert of nil fragment")
	if b.frags != nil {
		frag.FragLast().frags = b.frags
	}
	b.frags = frag
}

// FragAdd appends frag to the end of the chain at head and returns head.
// It takes over the caller's reference on frag. With a nil head it returns
// a new reference to frag.
func FragAdd(head, frag *Buf) *Buf {
	blecore.Assert(frag != nil, "buf: add of nil fragment")
	if head == nil {
		return frag.Ref()
	}
	head.FragLast().FragInsert(frag)
	return head
}

// FragDel unlinks frag from parent, drops a reference on it and returns
// the fragment that followed it. parent may be nil when frag is a head.
func FragDel(parent, frag *Buf) *Buf {
	blecore.Assert(frag != nil, "buf: delete of nil fragment")
	if parent != nil {
		blecore.Assert(parent.frags == frag, "buf: fragment is not a child of parent")
		parent.frags = frag.frags
	}

	next := frag.frags
	frag.frags = nil
	frag.Unref()
	return next
}

// FragsLen sums the content length over the chain.
func (b *Buf) FragsLen() int {
	n := 0
	for ; b != nil; b = b.frags {
		n += b.len
	}
	return n
}

// Linearize copies up to len(dst) and n bytes of the chain at src,
// starting offset bytes in, into dst. It returns the number copied.
func Linearize(dst []byte, src *Buf, offset, n int) int {
	if n > len(dst) {
		n = len(dst)
	}

	frag := src
	for frag != nil && offset >= frag.len {
		offset -= frag.len
		frag = frag.frags
	}

	copied := 0
	for frag != nil && n > 0 {
		c := copy(dst[copied:copied+n], frag.Data()[offset:])
		copied += c
		n -= c
		frag = frag.frags
		offset = 0
	}
	return copied
}

// DataMatch returns the length of the common prefix of data and the chain
// content starting offset bytes in.
func DataMatch(b *Buf, offset int, data []byte) int {
	if b == nil || data == nil {
		return 0
	}

	for b != nil && offset >= b.len {
		offset -= b.len
		b = b.frags
	}

	compared := 0
	for b != nil && compared < len(data) {
		for _, c := range b.Data()[offset:] {
			if compared == len(data) {
				return compared
			}
			if data[compared] != c {
				return compared
			}
			compared++
		}
		b = b.frags
		offset = 0
	}
	return compared
}

// AllocatorFunc supplies the next fragment to AppendBytes.
type AllocatorFunc func(t osdep.Timeout, user interface{}) *Buf

// AppendBytes writes data behind the content of the chain at b, adding
// fragments as the tail fills up. New fragments come from alloc when it is
// set and from b's pool otherwise. It returns the bytes written, which is
// short of len(data) when an allocation failed.
func (b *Buf) AppendBytes(data []byte, t osdep.Timeout, alloc AllocatorFunc, user interface{}) int {
	frag := b.FragLast()
	added := 0

	for {
		n := len(data)
		if room := frag.Tailroom(); n > room {
			n = room
		}
		frag.AddMem(data[:n])
		data = data[n:]
		added += n

		if len(data) == 0 {
			return added
		}

		if alloc != nil {
			frag = alloc(t, user)
		} else {
			size := len(data)
			if max := b.pool.alloc.MaxAllocSize(); max > 0 && size > max {
				size = max
			}
			frag, _ = b.pool.allocLen(size, t, 2)
		}
		if frag == nil {
			return added
		}
		FragAdd(b, frag)
	}
}

// Skip consumes n bytes from the chain at b, dropping fragments that
// empty out. It returns the new head, or nil once the chain is used up.
func (b *Buf) Skip(n int) *Buf {
	for b != nil && n > 0 {
		c := n
		if c > b.len {
			c = b.len
		}
		b.PullMem(c)
		n -= c
		if b.len == 0 {
			b = FragDel(nil, b)
		}
	}
	return b
}

var slistMu sync.Mutex

// SListPut appends b to l under the package hand-off lock.
func SListPut(l *slist.SList[Buf, *Buf], b *Buf) {
	blecore.Assert(l != nil && b != nil, "buf: nil list or buffer")
	slistMu.Lock()
	defer slistMu.Unlock()
	l.Append(b)
}

// SListGet removes the head of l under the package hand-off lock.
func SListGet(l *slist.SList[Buf, *Buf]) *Buf {
	blecore.Assert(l != nil, "buf: nil list")
	slistMu.Lock()
	defer slistMu.Unlock()
	return l.Get()
}
