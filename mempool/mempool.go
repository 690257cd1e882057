// Package mempool is a fixed-block allocator over one arena. Free blocks are
// chained through their first word, so the pool needs no side storage.
package mempool

import (
	"encoding/binary"
	"unsafe"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

// wordSize is the alignment of every block and the size of a free link.
const wordSize = int(unsafe.Sizeof(uintptr(0)))

// noBlock terminates the free list.
const noBlock = 0

// Info describes a pool.
type Info struct {
	NumBlocks int
	BlockSize int
	NumUsed   int
}

// Pool hands out equal sized blocks of its arena.
type Pool struct {
	name  string
	arena []byte
	info  Info
	free  uint64 // 1-based block index, noBlock when empty

	mu   osdep.Mutex
	wait osdep.Sem
	log  blecore.Logger
}

// WordAlign rounds n up to a multiple of the machine word.
func WordAlign(n int) int {
	return (n + wordSize - 1) &^ (wordSize - 1)
}

// New carves a pool of numBlocks blocks of at least blockSize bytes.
func New(name string, blockSize, numBlocks int) (*Pool, error) {
	if blockSize <= 0 || numBlocks <= 0 {
		return nil, blecore.Wrapf(blecore.EINVAL, "mempool.New", "bad geometry %dx%d", numBlocks, blockSize)
	}
	bs := WordAlign(blockSize)
	return Init(name, make([]byte, bs*numBlocks), bs, numBlocks)
}

// Init builds a pool over a caller supplied buffer. The buffer and block
// size must be word aligned.
func Init(name string, buffer []byte, blockSize, numBlocks int) (*Pool, error) {
	if blockSize < 8 || numBlocks <= 0 || len(buffer) < blockSize*numBlocks {
		return nil, blecore.Wrapf(blecore.EINVAL, "mempool.Init", "buffer of %d bytes can't hold %dx%d", len(buffer), numBlocks, blockSize)
	}
	if (blockSize|int(uintptr(unsafe.Pointer(unsafe.SliceData(buffer)))))&(wordSize-1) != 0 {
		return nil, blecore.Wrapf(blecore.EINVAL, "mempool.Init", "blocks must be word aligned")
	}

	wait, err := osdep.NewSem(0, 1)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		name:  name,
		arena: buffer[:blockSize*numBlocks],
		info:  Info{NumBlocks: numBlocks, BlockSize: blockSize},
		mu:    osdep.NewMutex(),
		wait:  wait,
		log:   blecore.PkgLogger("mempool").ChildLogger(map[string]interface{}{"pool": name}),
	}

	// thread the free list from the last block back to the first
	for i := numBlocks - 1; i >= 0; i-- {
		p.setLink(i, p.free)
		p.free = uint64(i + 1)
	}
	return p, nil
}

func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) block(i int) []byte {
	off := i * p.info.BlockSize
	return p.arena[off : off+p.info.BlockSize : off+p.info.BlockSize]
}

func (p *Pool) setLink(i int, next uint64) {
	binary.LittleEndian.PutUint64(p.block(i)[:8], next)
}

func (p *Pool) link(i int) uint64 {
	return binary.LittleEndian.Uint64(p.block(i)[:8])
}

// pop takes the head block. It must be called with mu held.
func (p *Pool) pop() ([]byte, bool) {
	if p.free == noBlock {
		return nil, false
	}
	i := int(p.free - 1)
	p.free = p.link(i)
	p.info.NumUsed++
	return p.block(i), true
}

// Alloc returns a free block, waiting up to t for one to be released.
// It fails with ENOMEM when the pool stays exhausted.
func (p *Pool) Alloc(t osdep.Timeout) ([]byte, error) {
	start := osdep.NowMs()
	for {
		osdep.MustLock(p.mu)
		b, ok := p.pop()
		more := p.free != noBlock
		osdep.MustUnlock(p.mu)

		if ok {
			if more {
				// pass the wakeup on to the next waiter
				_ = p.wait.Give()
			}
			return b, nil
		}

		rem := t.Remaining(start, osdep.NowMs())
		if rem.IsNoWait() {
			p.log.Debugf("exhausted, %d blocks in use", p.info.NumUsed)
			return nil, blecore.NewError("mempool.Alloc", blecore.ENOMEM)
		}
		if err := p.wait.Take(rem); err != nil {
			return nil, blecore.WrapErr(err, blecore.ENOMEM, "mempool.Alloc")
		}
	}
}

// index maps a block back to its slot. Anything that is not the start of
// a block of this pool is a contract violation.
func (p *Pool) index(b []byte) int {
	blecore.Assert(len(b) > 0, "mempool %s: free of empty block", p.name)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(p.arena)))
	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	blecore.Assert(ptr >= base && ptr < base+uintptr(len(p.arena)), "mempool %s: foreign block", p.name)
	off := int(ptr - base)
	blecore.Assert(off%p.info.BlockSize == 0, "mempool %s: misaligned block", p.name)
	return off / p.info.BlockSize
}

// Free returns b to the pool and wakes one waiter.
func (p *Pool) Free(b []byte) {
	i := p.index(b)

	osdep.MustLock(p.mu)
	blecore.Assert(p.info.NumUsed > 0, "mempool %s: free with no block in use", p.name)
	p.setLink(i, p.free)
	p.free = uint64(i + 1)
	p.info.NumUsed--
	osdep.MustUnlock(p.mu)

	_ = p.wait.Give()
}

// Info returns a snapshot of the pool geometry and usage.
func (p *Pool) Info() Info {
	osdep.MustLock(p.mu)
	defer osdep.MustUnlock(p.mu)
	return p.info
}

// FreeLen walks the free list.
func (p *Pool) FreeLen() int {
	osdep.MustLock(p.mu)
	defer osdep.MustUnlock(p.mu)
	n := 0
	for it := p.free; it != noBlock; it = p.link(int(it - 1)) {
		n++
	}
	return n
}
