// Package buf implements reference counted network buffers drawn from
// fixed size pools. A buffer carries a Simple cursor over its data region,
// a user data area and an optional chain of fragments.
package buf

import (
	"github.com/rigado/blecore"
	"github.com/rigado/blecore/slist"
)

// Flags of a buffer.
type Flags uint8

const (
	// ExternalData marks a data region supplied by the caller. It is never
	// released to the pool strategy.
	ExternalData Flags = 1 << 0
)

// Buf is a network buffer. Its zero value is not usable; buffers only come
// from a Pool.
type Buf struct {
	Simple

	node     slist.SNode[Buf]
	frags    *Buf
	ref      uint8
	flags    Flags
	pool     *Pool
	id       int
	block    []byte
	userData []byte
}

func (b *Buf) SNode() *slist.SNode[Buf] {
	return &b.node
}

// Pool returns the pool b was allocated from.
func (b *Buf) Pool() *Pool {
	return b.pool
}

func (b *Buf) Flags() Flags {
	return b.flags
}

func (b *Buf) RefCount() int {
	return int(b.ref)
}

// UserData returns the user data area of the buffer.
func (b *Buf) UserData() []byte {
	return b.userData
}

// Frags returns the next fragment.
func (b *Buf) Frags() *Buf {
	return b.frags
}

// CopyUserData copies the user data of src into b. It fails with EINVAL
// when b has the smaller area.
func (b *Buf) CopyUserData(src *Buf) error {
	if b == src {
		return nil
	}
	if len(b.userData) < len(src.userData) {
		return blecore.Wrapf(blecore.EINVAL, "buf.CopyUserData", "%d bytes can't hold %d", len(b.userData), len(src.userData))
	}
	copy(b.userData, src.userData)
	return nil
}

// Reset empties the data region of an unchained buffer.
func (b *Buf) Reset() {
	blecore.Assert(b.flags == 0, "buf: reset of buffer with flags %#x", b.flags)
	blecore.Assert(b.frags == nil, "buf: reset of chained buffer")
	b.Simple.Reset()
}

// Ref takes another reference on b.
func (b *Buf) Ref() *Buf {
	blecore.Assert(b.ref > 0, "buf: ref of free buffer")
	blecore.Assert(b.ref < 0xff, "buf: ref count overflow on buf %d", b.id)
	if b.pool.trace {
		b.pool.log.Debugf("%s: ref buf %d (old) ref %d", blecore.Caller(1), b.id, b.ref)
	}
	b.ref++
	return b
}

// Unref drops a reference on b. When the last one goes the data region is
// released and b returns to its pool, and the walk continues with the next
// fragment.
func (b *Buf) Unref() {
	blecore.Assert(b != nil, "buf: unref of nil buffer")

	where := ""
	if b.pool.trace {
		where = blecore.Caller(1)
	}

	for b != nil {
		frags := b.frags
		pool := b.pool

		blecore.Assert(b.ref > 0, "buf: double free of buf %d in pool %s", b.id, pool.name)
		if pool.trace {
			pool.log.Debugf("%s: unref buf %d ref %d frags %v", where, b.id, b.ref, frags != nil)
		}

		b.ref--
		if b.ref > 0 {
			return
		}

		b.Simple.Reset()
		b.frags = nil

		if pool.destroy != nil {
			pool.destroy(b)
		} else {
			b.Destroy()
		}

		b = frags
	}
}

// Destroy releases the data region and puts b on its pool's free list.
// Only destroy hooks call it directly.
func (b *Buf) Destroy() {
	pool := b.pool
	if b.block != nil {
		if b.flags&ExternalData == 0 {
			pool.alloc.Unref(b, b.block)
		}
	}
	b.block = nil
	b.Simple = Simple{}
	pool.free.Put(b)
}
