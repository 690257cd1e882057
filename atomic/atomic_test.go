package atomic

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordOps(t *testing.T) {
	var w Word
	assert.EqualValues(t, 0, w.Set(5))
	assert.EqualValues(t, 5, w.Inc())
	assert.EqualValues(t, 6, w.Dec())
	w.Add(10)
	w.Sub(3)
	assert.EqualValues(t, 12, w.Get())
	assert.False(t, w.CAS(1, 2))
	assert.True(t, w.CAS(12, 2))
	assert.EqualValues(t, 2, w.Get())
}

func TestNilTargets(t *testing.T) {
	var w *Word
	assert.EqualValues(t, 0, w.Get())
	assert.EqualValues(t, 0, w.Inc())
	assert.False(t, w.CAS(0, 1))
	assert.False(t, w.TestAndSetBit(3))

	var p *Ptr[int]
	assert.Nil(t, p.Get())
	assert.False(t, p.CAS(nil, nil))
}

func TestWordBits(t *testing.T) {
	var w Word
	assert.False(t, w.TestAndSetBit(3))
	assert.True(t, w.TestAndSetBit(3))
	assert.True(t, w.TestBit(3))
	w.SetBitTo(63, true)
	assert.True(t, w.TestBit(63))
	assert.True(t, w.TestAndClearBit(3))
	assert.False(t, w.TestAndClearBit(3))
	assert.False(t, w.TestBit(64))
	assert.False(t, w.TestBit(-1))
}

func TestBitmap(t *testing.T) {
	b := NewBitmap(130)
	assert.Equal(t, 192, b.Len())

	b.SetBit(0)
	b.SetBit(64)
	b.SetBit(129)
	assert.True(t, b.TestBit(64))
	assert.False(t, b.TestBit(65))
	assert.True(t, b.TestAndClearBit(129))
	assert.False(t, b.TestBit(129))
	assert.False(t, b.TestAndSetBit(500))

	b.Clear()
	assert.False(t, b.TestBit(0))
}

func TestWordConcurrentInc(t *testing.T) {
	var w Word
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				w.Inc()
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 8000, w.Get())
}

func TestPtr(t *testing.T) {
	var p Ptr[int]
	a, b := 1, 2
	assert.Nil(t, p.Set(&a))
	assert.True(t, p.CAS(&a, &b))
	assert.Equal(t, &b, p.Clear())
	assert.Nil(t, p.Get())
}
