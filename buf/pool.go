package buf

import (
	"sort"
	"sync"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
	"github.com/rigado/blecore/queue"
)

// DestroyFunc replaces the return of a freed buffer to its pool. It must
// eventually call Buf.Destroy.
type DestroyFunc func(b *Buf)

// PoolOption configures a Pool.
type PoolOption func(*Pool) error

// WithDestroy installs a destroy hook.
func WithDestroy(fn DestroyFunc) PoolOption {
	return func(p *Pool) error {
		p.destroy = fn
		return nil
	}
}

// WithUserData sets the user data area size of every buffer.
func WithUserData(size int) PoolOption {
	return func(p *Pool) error {
		if size < 0 {
			return blecore.Wrapf(blecore.EINVAL, "buf.WithUserData", "negative size %d", size)
		}
		p.userDataSize = size
		return nil
	}
}

// Stats is a snapshot of pool occupancy. Count == Free + Uninit + InUse.
type Stats struct {
	Count  int
	Free   int
	Uninit int
	InUse  int
}

// Pool is a fixed set of buffer slots. Slots are handed out first from the
// never used tail of the set, then from a LIFO of freed buffers.
type Pool struct {
	name         string
	bufs         []Buf
	userDataSize int
	userArena    []byte
	alloc        DataAllocator
	destroy      DestroyFunc

	mu     osdep.Mutex
	free   *queue.LIFO[Buf, *Buf]
	uninit int

	trace bool
	log   blecore.Logger
}

var (
	poolsMu sync.Mutex
	pools   = map[string]*Pool{}
)

// NewPool creates a pool of count buffers whose data comes from alloc.
func NewPool(name string, count int, alloc DataAllocator, opts ...PoolOption) (*Pool, error) {
	if count <= 0 || count > 0xffff {
		return nil, blecore.Wrapf(blecore.EINVAL, "buf.NewPool", "bad buffer count %d", count)
	}
	if alloc == nil {
		return nil, blecore.Wrapf(blecore.EINVAL, "buf.NewPool", "nil data allocator")
	}

	p := &Pool{
		name:   name,
		bufs:   make([]Buf, count),
		alloc:  alloc,
		mu:     osdep.NewMutex(),
		free:   queue.NewLIFO[Buf](),
		uninit: count,
		trace:  blecore.CurrentConfig().BufLog,
		log:    blecore.PkgLogger("buf").ChildLogger(map[string]interface{}{"pool": name}),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.userArena = make([]byte, count*p.userDataSize)

	if name != "" {
		poolsMu.Lock()
		pools[name] = p
		poolsMu.Unlock()
	}
	return p, nil
}

// NewFixedPool creates a pool of count buffers with size data bytes each.
func NewFixedPool(name string, count, size int, opts ...PoolOption) (*Pool, error) {
	if size <= 0 {
		return nil, blecore.Wrapf(blecore.EINVAL, "buf.NewFixedPool", "bad data size %d", size)
	}
	return NewPool(name, count, NewFixed(count, size), opts...)
}

// NewHeapPool creates a pool whose data comes from the heap strategy, with
// the budget set by the HeapDataPool config option.
func NewHeapPool(name string, count int, opts ...PoolOption) (*Pool, error) {
	h, err := NewHeap(blecore.CurrentConfig().HeapDataPool)
	if err != nil {
		return nil, err
	}
	return NewPool(name, count, h, opts...)
}

// Lookup returns the pool registered under name.
func Lookup(name string) (*Pool, bool) {
	poolsMu.Lock()
	defer poolsMu.Unlock()
	p, ok := pools[name]
	return p, ok
}

// PoolNames lists the registered pools.
func PoolNames() []string {
	poolsMu.Lock()
	defer poolsMu.Unlock()
	names := make([]string, 0, len(pools))
	for n := range pools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) Count() int {
	return len(p.bufs)
}

func (p *Pool) Allocator() DataAllocator {
	return p.alloc
}

// ID returns the slot index of b.
func (p *Pool) ID(b *Buf) int {
	blecore.Assert(b.pool == p, "buf: buffer of pool %s checked against %s", b.pool.name, p.name)
	return b.id
}

// Stats returns the current occupancy.
func (p *Pool) Stats() Stats {
	osdep.MustLock(p.mu)
	defer osdep.MustUnlock(p.mu)
	s := Stats{Count: len(p.bufs), Free: p.free.Len(), Uninit: p.uninit}
	s.InUse = s.Count - s.Free - s.Uninit
	return s
}

// getUninit hands out the slot for the given uninit count.
func (p *Pool) getUninit(uninit int) *Buf {
	id := len(p.bufs) - uninit
	b := &p.bufs[id]
	b.pool = p
	b.id = id
	b.userData = p.userArena[id*p.userDataSize : (id+1)*p.userDataSize : (id+1)*p.userDataSize]
	return b
}

// AllocLen allocates a buffer with at least size data bytes, waiting up to
// t for a free slot. It fails with ENOMEM.
func (p *Pool) AllocLen(size int, t osdep.Timeout) (*Buf, error) {
	return p.allocLen(size, t, 2)
}

func (p *Pool) allocLen(size int, t osdep.Timeout, skip int) (*Buf, error) {
	where := ""
	if p.trace {
		where = blecore.Caller(skip)
		p.log.Debugf("%s: alloc size %d", where, size)
	}
	if size < 0 {
		return nil, blecore.Wrapf(blecore.EINVAL, "buf.Alloc", "negative size %d", size)
	}

	var b *Buf
	osdep.MustLock(p.mu)
	if p.uninit > 0 {
		// not the first allocation, so a freed buffer may be waiting
		if p.uninit < len(p.bufs) {
			b = p.free.Get(osdep.NoWait)
		}
		if b == nil {
			b = p.getUninit(p.uninit)
			p.uninit--
		}
		osdep.MustUnlock(p.mu)
	} else {
		osdep.MustUnlock(p.mu)
		b = p.free.Get(t)
		if b == nil {
			if p.trace {
				p.log.Debugf("%s: failed to get free buffer", where)
			}
			return nil, blecore.Wrapf(blecore.ENOMEM, "buf.Alloc", "pool %s exhausted", p.name)
		}
	}

	b.block = nil
	b.Simple = Simple{}
	if size > 0 {
		block, data, err := p.alloc.Alloc(b, size, dataTimeout(p.alloc, t))
		if err != nil {
			if p.trace {
				p.log.Debugf("%s: failed to allocate data: %v", where, err)
			}
			b.Destroy()
			return nil, blecore.WrapErr(err, blecore.ENOMEM, "buf.Alloc")
		}
		blecore.Assert(len(data) >= size, "buf: strategy returned %d of %d bytes", len(data), size)
		b.block = block
		b.Simple.raw = data
	}

	b.ref = 1
	b.flags = 0
	b.frags = nil
	for i := range b.userData {
		b.userData[i] = 0
	}
	b.Reset()

	if p.trace {
		p.log.Debugf("%s: allocated buf %d", where, b.id)
	}
	return b, nil
}

// Alloc allocates a buffer with the pool's maximum data size.
func (p *Pool) Alloc(t osdep.Timeout) (*Buf, error) {
	return p.allocLen(p.alloc.MaxAllocSize(), t, 2)
}

// AllocFixed is Alloc. It exists for callers that name the fixed size
// explicitly.
func (p *Pool) AllocFixed(t osdep.Timeout) (*Buf, error) {
	return p.allocLen(p.alloc.MaxAllocSize(), t, 2)
}

// AllocWithData allocates a buffer over the caller's data. All of data is
// content and is never released by the pool.
func (p *Pool) AllocWithData(data []byte, t osdep.Timeout) (*Buf, error) {
	b, err := p.allocLen(0, t, 2)
	if err != nil {
		return nil, err
	}
	b.Simple.InitWithData(data)
	b.flags = ExternalData
	return b, nil
}

// Clone returns a new buffer with the content and user data of b. The data
// region is shared when the strategy supports it.
func (b *Buf) Clone(t osdep.Timeout) (*Buf, error) {
	pool := b.pool
	c, err := pool.allocLen(0, t, 2)
	if err != nil {
		return nil, err
	}

	if r, ok := pool.alloc.(DataRefer); ok && b.flags&ExternalData == 0 {
		if b.block != nil {
			r.Ref(b, b.block)
		}
		c.block = b.block
		c.Simple = b.Simple
	} else {
		block, data, err := pool.alloc.Alloc(c, b.Size(), dataTimeout(pool.alloc, t))
		if err != nil || len(data) < b.Size() {
			c.Destroy()
			if err == nil {
				err = blecore.NewError("buf.Clone", blecore.ENOMEM)
			}
			return nil, blecore.WrapErr(err, blecore.ENOMEM, "buf.Clone")
		}
		c.block = block
		c.Simple.raw = data
		c.Simple.off = b.Headroom()
		c.AddMem(b.Data())
	}

	copy(c.userData, b.userData)
	return c, nil
}
