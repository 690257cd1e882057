package buf

import (
	"sync"
	"unsafe"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/mempool"
	"github.com/rigado/blecore/osdep"
)

// ptrAlign is the minimum spacing between a data header and the data.
const ptrAlign = int(unsafe.Sizeof(uintptr(0)))

// DataAllocator is the data strategy of a pool. Alloc returns the block it
// owns and the data region handed to the buffer; the region may be larger
// than size. Strategies that cannot block fail at once whatever t is.
type DataAllocator interface {
	Alloc(b *Buf, size int, t osdep.Timeout) (block, data []byte, err error)
	Unref(b *Buf, block []byte)
	// MaxAllocSize bounds a single data region; 0 means unbounded.
	MaxAllocSize() int
	Alignment() int
}

// DataRefer is implemented by strategies whose data regions can be shared
// between buffers. Clone uses it instead of copying.
type DataRefer interface {
	Ref(b *Buf, block []byte)
}

// blocker is implemented by strategies that can wait for data.
type blocker interface {
	blocks() bool
}

// dataTimeout is the timeout handed to a strategy for a slot allocation
// made with t. Strategies that block get the caller's timeout; the rest
// only learn whether the caller may wait.
func dataTimeout(a DataAllocator, t osdep.Timeout) osdep.Timeout {
	if b, ok := a.(blocker); ok && b.blocks() {
		return t
	}
	if t.IsNoWait() {
		return osdep.NoWait
	}
	return osdep.Forever
}

func headerSize(a DataAllocator) int {
	if n := a.Alignment(); n > ptrAlign {
		return n
	}
	return ptrAlign
}

// Fixed gives every buffer slot its own region of the same size.
type Fixed struct {
	size  int
	arena []byte
}

// NewFixed carves count regions of size bytes.
func NewFixed(count, size int) *Fixed {
	return &Fixed{size: size, arena: make([]byte, count*size)}
}

func (f *Fixed) Alloc(b *Buf, size int, _ osdep.Timeout) ([]byte, []byte, error) {
	off := f.size * b.id
	region := f.arena[off : off+f.size : off+f.size]
	return region, region, nil
}

func (f *Fixed) Unref(*Buf, []byte) {}

func (f *Fixed) MaxAllocSize() int {
	return f.size
}

func (f *Fixed) Alignment() int {
	return 0
}

// refData manages the leading reference count shared by the heap and
// variable strategies. The count lives in the first byte of the block.
type refData struct {
	mu sync.Mutex
}

func (r *refData) ref(block []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	blecore.Assert(block[0] > 0 && block[0] < 0xff, "buf: data ref count %d", block[0])
	block[0]++
}

// unref reports whether the last reference was dropped.
func (r *refData) unref(block []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	blecore.Assert(block[0] > 0, "buf: data ref count underflow")
	block[0]--
	return block[0] == 0
}

// Heap allocates data regions from the Go heap within a byte budget.
type Heap struct {
	refData
	budget int
	used   int
}

// NewHeap returns a heap strategy that may hold up to budget bytes,
// headers included.
func NewHeap(budget int) (*Heap, error) {
	if budget <= 0 {
		return nil, blecore.Wrapf(blecore.ENOTSUP, "buf.NewHeap", "heap data pool disabled")
	}
	return &Heap{budget: budget}, nil
}

func (h *Heap) Alloc(b *Buf, size int, _ osdep.Timeout) ([]byte, []byte, error) {
	hdr := headerSize(h)
	n := hdr + size

	h.mu.Lock()
	if h.used+n > h.budget {
		h.mu.Unlock()
		return nil, nil, blecore.Wrapf(blecore.ENOMEM, "buf.Heap", "%d of %d bytes in use", h.used, h.budget)
	}
	h.used += n
	h.mu.Unlock()

	block := make([]byte, n)
	block[0] = 1
	return block, block[hdr:n:n], nil
}

func (h *Heap) Ref(_ *Buf, block []byte) {
	h.ref(block)
}

func (h *Heap) Unref(_ *Buf, block []byte) {
	if !h.unref(block) {
		return
	}
	h.mu.Lock()
	h.used -= len(block)
	h.mu.Unlock()
}

// Used returns the bytes currently charged to the budget.
func (h *Heap) Used() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.used
}

func (h *Heap) MaxAllocSize() int {
	return 0
}

func (h *Heap) Alignment() int {
	return 0
}

// Variable draws data regions from a fixed-block memory pool. A region
// can be at most one block minus the reference count header.
type Variable struct {
	refData
	pool *mempool.Pool
}

func NewVariable(p *mempool.Pool) *Variable {
	return &Variable{pool: p}
}

func (v *Variable) Alloc(b *Buf, size int, t osdep.Timeout) ([]byte, []byte, error) {
	hdr := headerSize(v)
	if size > v.MaxAllocSize() {
		return nil, nil, blecore.Wrapf(blecore.ENOMEM, "buf.Variable", "%d bytes exceeds block", size)
	}
	block, err := v.pool.Alloc(t)
	if err != nil {
		return nil, nil, err
	}
	block[0] = 1
	return block, block[hdr : hdr+size : hdr+size], nil
}

func (v *Variable) blocks() bool {
	return true
}

func (v *Variable) Ref(_ *Buf, block []byte) {
	v.ref(block)
}

func (v *Variable) Unref(_ *Buf, block []byte) {
	if v.unref(block) {
		v.pool.Free(block)
	}
}

func (v *Variable) MaxAllocSize() int {
	return v.pool.Info().BlockSize - headerSize(v)
}

func (v *Variable) Alignment() int {
	return 0
}
