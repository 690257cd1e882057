// Package atomic provides sequentially consistent word and pointer atomics
// and flat bit arrays over atomic words. A nil target is tolerated: reads
// return zero and writes are dropped.
package atomic

import (
	"sync/atomic"
)

// WordBits is the number of bits in a Word.
const WordBits = 64

// Word is an atomically accessed machine word.
type Word struct {
	v atomic.Int64
}

func (w *Word) Get() int64 {
	if w == nil {
		return 0
	}
	return w.v.Load()
}

// Set stores val and returns the previous value.
func (w *Word) Set(val int64) int64 {
	if w == nil {
		return 0
	}
	return w.v.Swap(val)
}

// Inc adds one and returns the previous value.
func (w *Word) Inc() int64 {
	if w == nil {
		return 0
	}
	return w.v.Add(1) - 1
}

// Dec subtracts one and returns the previous value.
func (w *Word) Dec() int64 {
	if w == nil {
		return 0
	}
	return w.v.Add(-1) + 1
}

func (w *Word) Add(val int64) {
	if w == nil {
		return
	}
	w.v.Add(val)
}

func (w *Word) Sub(val int64) {
	if w == nil {
		return
	}
	w.v.Add(-val)
}

// CAS stores desired if the word holds expected.
func (w *Word) CAS(expected, desired int64) bool {
	if w == nil {
		return false
	}
	return w.v.CompareAndSwap(expected, desired)
}

// Or sets mask and returns the previous value.
func (w *Word) Or(mask int64) int64 {
	if w == nil {
		return 0
	}
	return w.v.Or(mask)
}

// And keeps mask and returns the previous value.
func (w *Word) And(mask int64) int64 {
	if w == nil {
		return 0
	}
	return w.v.And(mask)
}

// TestBit reports whether bit is set in a single word.
func (w *Word) TestBit(bit int) bool {
	if bit < 0 || bit >= WordBits {
		return false
	}
	return w.Get()&(1<<uint(bit)) != 0
}

func (w *Word) SetBit(bit int) {
	if bit < 0 || bit >= WordBits {
		return
	}
	w.Or(1 << uint(bit))
}

func (w *Word) ClearBit(bit int) {
	if bit < 0 || bit >= WordBits {
		return
	}
	w.And(^(1 << uint(bit)))
}

func (w *Word) SetBitTo(bit int, val bool) {
	if val {
		w.SetBit(bit)
	} else {
		w.ClearBit(bit)
	}
}

// TestAndSetBit sets bit and reports whether it was already set.
func (w *Word) TestAndSetBit(bit int) bool {
	if bit < 0 || bit >= WordBits {
		return false
	}
	m := int64(1) << uint(bit)
	return w.Or(m)&m != 0
}

// TestAndClearBit clears bit and reports whether it was set.
func (w *Word) TestAndClearBit(bit int) bool {
	if bit < 0 || bit >= WordBits {
		return false
	}
	m := int64(1) << uint(bit)
	return w.And(^m)&m != 0
}

// Ptr is an atomic pointer.
type Ptr[T any] struct {
	p atomic.Pointer[T]
}

func (p *Ptr[T]) Get() *T {
	if p == nil {
		return nil
	}
	return p.p.Load()
}

// Set stores val and returns the previous pointer.
func (p *Ptr[T]) Set(val *T) *T {
	if p == nil {
		return nil
	}
	return p.p.Swap(val)
}

// Clear stores nil and returns the previous pointer.
func (p *Ptr[T]) Clear() *T {
	return p.Set(nil)
}

func (p *Ptr[T]) CAS(expected, desired *T) bool {
	if p == nil {
		return false
	}
	return p.p.CompareAndSwap(expected, desired)
}
