package buf

import (
	"errors"
	"testing"
	"time"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/mempool"
	"github.com/rigado/blecore/osdep"
	_ "github.com/rigado/blecore/osdep/posix"
	"github.com/rigado/blecore/slist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixed(t *testing.T, count, size int, opts ...PoolOption) *Pool {
	p, err := NewFixedPool(t.Name(), count, size, opts...)
	require.NoError(t, err)
	return p
}

func withHeapBudget(t *testing.T, budget int) {
	prev := blecore.CurrentConfig()
	c := prev
	c.HeapDataPool = budget
	require.NoError(t, blecore.SetConfig(c))
	t.Cleanup(func() { require.NoError(t, blecore.SetConfig(prev)) })
}

// assertConserved checks that every slot is free, never used or one of
// live.
func assertConserved(t *testing.T, p *Pool, live ...*Buf) {
	t.Helper()
	s := p.Stats()
	assert.Equal(t, len(live), s.InUse)
	assert.Equal(t, s.Count, s.Free+s.Uninit+len(live))
	for _, b := range live {
		assert.Positive(t, b.RefCount())
	}
}

func TestFragmentedLinearize(t *testing.T) {
	p := newFixed(t, 8, 64)

	h, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	h.AddMem([]byte{1, 2, 3})
	f1, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	f1.AddMem([]byte{4, 5})
	f2, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	f2.AddMem([]byte{6, 7, 8})

	assert.Equal(t, h, FragAdd(h, f1))
	h.FragLast().FragInsert(f2)

	out := make([]byte, 16)
	n := Linearize(out, h, 0, 16)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, out[:n])
	assert.Equal(t, 3, DataMatch(h, 4, []byte{5, 6, 7}))
	assert.Equal(t, 1, DataMatch(h, 4, []byte{5, 0, 7}))
	assert.Equal(t, 8, h.FragsLen())

	n = Linearize(out, h, 2, 3)
	assert.Equal(t, []byte{3, 4, 5}, out[:n])
	assert.Equal(t, 0, Linearize(out, h, 8, 4))
	assert.Equal(t, 2, Linearize(out[:2], h, 0, 16))

	assertConserved(t, p, h, f1, f2)
	h.Unref()
	s := p.Stats()
	assert.Equal(t, 0, s.InUse)
	assert.Equal(t, 3, s.Free)
	assert.Equal(t, 5, s.Uninit)
}

func TestFragInsertSplices(t *testing.T) {
	p := newFixed(t, 4, 8)
	mk := func(v byte) *Buf {
		b, err := p.Alloc(osdep.NoWait)
		require.NoError(t, err)
		b.AddU8(v)
		return b
	}
	a, b, c := mk(1), mk(2), mk(3)
	FragAdd(a, c)
	a.FragInsert(b)

	out := make([]byte, 3)
	Linearize(out, a, 0, 3)
	assert.Equal(t, []byte{1, 2, 3}, out)

	assert.Equal(t, c, FragDel(a, b))
	assert.Equal(t, 2, a.FragsLen())
	assert.Panics(t, func() { FragDel(a, b) })
	a.Unref()
	assert.Equal(t, 0, p.Stats().InUse)
}

func TestFragAddNilHead(t *testing.T) {
	p := newFixed(t, 1, 8)
	b, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)

	assert.Equal(t, b, FragAdd(nil, b))
	assert.Equal(t, 2, b.RefCount())
	b.Unref()
	b.Unref()
}

func TestAppendBytesFixed(t *testing.T) {
	p := newFixed(t, 4, 64)
	b, err := p.AllocLen(8, osdep.Forever)
	require.NoError(t, err)
	assert.Equal(t, 64, b.Tailroom())

	data := make([]byte, 24)
	for i := range data {
		data[i] = byte(i)
	}
	assert.Equal(t, 24, b.AppendBytes(data, osdep.Forever, nil, nil))
	assert.Equal(t, 24, b.FragsLen())
	assert.Nil(t, b.Frags())
	b.Unref()
}

func TestAppendBytesAcrossFragments(t *testing.T) {
	withHeapBudget(t, 1024)
	p, err := NewHeapPool(t.Name(), 4)
	require.NoError(t, err)

	b, err := p.AllocLen(8, osdep.Forever)
	require.NoError(t, err)

	data := make([]byte, 24)
	for i := range data {
		data[i] = byte(i)
	}
	assert.Equal(t, 24, b.AppendBytes(data, osdep.Forever, nil, nil))
	assert.Equal(t, 24, b.FragsLen())
	assert.Equal(t, 8, b.Len())
	require.NotNil(t, b.Frags())
	assert.Equal(t, data[8:], b.Frags().Data())

	out := make([]byte, 24)
	assert.Equal(t, 24, Linearize(out, b, 0, b.FragsLen()))
	assert.Equal(t, data, out)
	b.Unref()
	assert.Equal(t, 0, p.Allocator().(*Heap).Used())
}

func TestAppendBytesShort(t *testing.T) {
	p := newFixed(t, 1, 4)
	b, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)

	n := b.AppendBytes([]byte{1, 2, 3, 4, 5, 6}, osdep.NoWait, nil, nil)
	assert.Equal(t, 4, n)

	var calls int
	n = b.AppendBytes([]byte{7}, osdep.NoWait, func(osdep.Timeout, interface{}) *Buf {
		calls++
		return nil
	}, nil)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, calls)
	b.Unref()
}

func TestRefcountSafety(t *testing.T) {
	p := newFixed(t, 1, 16)
	b, err := p.AllocFixed(osdep.NoWait)
	require.NoError(t, err)

	b.Ref()
	b.Unref()
	assert.Equal(t, 1, p.Stats().InUse)
	b.Unref()
	assert.Equal(t, 1, p.Stats().Free)

	again, err := p.AllocFixed(osdep.NoWait)
	require.NoError(t, err)
	assert.Equal(t, b, again)
	assert.Equal(t, 1, again.RefCount())

	again.Unref()
	assert.Panics(t, func() { again.Unref() })
}

func TestRefCountSaturates(t *testing.T) {
	p := newFixed(t, 1, 8)
	b, err := p.AllocFixed(osdep.NoWait)
	require.NoError(t, err)

	for b.RefCount() < 0xff {
		b.Ref()
	}
	assert.Panics(t, func() { b.Ref() })
	assert.Equal(t, 0xff, b.RefCount())

	for b.RefCount() > 0 {
		b.Unref()
	}
	assert.Equal(t, 1, p.Stats().Free)
}

func TestPoolExhaustion(t *testing.T) {
	p := newFixed(t, 2, 8)
	a, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	b, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID(a), p.ID(b))

	_, err = p.Alloc(osdep.NoWait)
	assert.True(t, errors.Is(err, blecore.ENOMEM), "got %v", err)

	start := time.Now()
	_, err = p.Alloc(osdep.Millis(30))
	assert.True(t, errors.Is(err, blecore.ENOMEM), "got %v", err)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		a.Unref()
	}()
	c, err := p.Alloc(osdep.Forever)
	require.NoError(t, err)
	assert.Equal(t, a, c)

	assertConserved(t, p, b, c)
	b.Unref()
	c.Unref()
}

func TestUserData(t *testing.T) {
	p := newFixed(t, 2, 8, WithUserData(4))
	a, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, a.UserData())
	copy(a.UserData(), []byte{1, 2, 3, 4})

	b, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	require.NoError(t, b.CopyUserData(a))
	assert.Equal(t, []byte{1, 2, 3, 4}, b.UserData())
	b.Unref()

	// user data is cleared on reuse
	b, err = p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, b.UserData())

	small := newFixed(t, 1, 8)
	s, err := small.Alloc(osdep.NoWait)
	require.NoError(t, err)
	assert.True(t, errors.Is(s.CopyUserData(a), blecore.EINVAL))
}

func TestCloneCopiesFixedData(t *testing.T) {
	p := newFixed(t, 2, 16, WithUserData(1))
	b, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	b.Reserve(4)
	b.AddMem([]byte{1, 2, 3})
	b.UserData()[0] = 0xaa

	c, err := b.Clone(osdep.NoWait)
	require.NoError(t, err)
	assert.Equal(t, b.Data(), c.Data())
	assert.Equal(t, 4, c.Headroom())
	assert.Equal(t, byte(0xaa), c.UserData()[0])

	c.Data()[0] = 9
	assert.Equal(t, byte(1), b.Data()[0])
	b.Unref()
	c.Unref()
}

func TestCloneSharesHeapData(t *testing.T) {
	withHeapBudget(t, 256)
	p, err := NewHeapPool(t.Name(), 2)
	require.NoError(t, err)
	h := p.Allocator().(*Heap)

	b, err := p.AllocLen(16, osdep.NoWait)
	require.NoError(t, err)
	b.AddMem([]byte{1, 2})
	used := h.Used()

	c, err := b.Clone(osdep.NoWait)
	require.NoError(t, err)
	assert.Equal(t, used, h.Used())
	c.Data()[0] = 7
	assert.Equal(t, byte(7), b.Data()[0])

	b.Unref()
	assert.Equal(t, used, h.Used())
	c.Unref()
	assert.Equal(t, 0, h.Used())
}

func TestHeapBudget(t *testing.T) {
	withHeapBudget(t, 0)
	_, err := NewHeapPool(t.Name(), 1)
	assert.True(t, errors.Is(err, blecore.ENOTSUP), "got %v", err)

	withHeapBudget(t, 32)
	p, err := NewHeapPool(t.Name(), 2)
	require.NoError(t, err)
	b, err := p.AllocLen(16, osdep.Forever)
	require.NoError(t, err)

	// heap data never blocks, even with a forever timeout
	_, err = p.AllocLen(16, osdep.Forever)
	assert.True(t, errors.Is(err, blecore.ENOMEM), "got %v", err)
	assert.Equal(t, 1, p.Stats().InUse)
	b.Unref()
}

func TestVariableStrategy(t *testing.T) {
	mp, err := mempool.New(t.Name(), 32, 2)
	require.NoError(t, err)
	p, err := NewPool(t.Name(), 4, NewVariable(mp))
	require.NoError(t, err)

	a, err := p.AllocLen(10, osdep.NoWait)
	require.NoError(t, err)
	assert.Equal(t, 10, a.Tailroom())
	b, err := p.AllocLen(20, osdep.NoWait)
	require.NoError(t, err)

	_, err = p.AllocLen(4, osdep.NoWait)
	assert.True(t, errors.Is(err, blecore.ENOMEM), "got %v", err)
	_, err = p.AllocLen(64, osdep.NoWait)
	assert.True(t, errors.Is(err, blecore.ENOMEM), "got %v", err)
	assert.Equal(t, 2, p.Stats().InUse)

	c, err := a.Clone(osdep.NoWait)
	require.NoError(t, err)
	a.Unref()
	assert.Equal(t, 2, mp.Info().NumUsed)
	c.Unref()
	assert.Equal(t, 1, mp.Info().NumUsed)

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Unref()
	}()
	a, err = p.AllocLen(20, osdep.Seconds(1))
	require.NoError(t, err)
	a.Unref()
	assert.Equal(t, 0, mp.Info().NumUsed)
}

func TestAllocWithData(t *testing.T) {
	mp, err := mempool.New(t.Name(), 32, 1)
	require.NoError(t, err)
	p, err := NewPool(t.Name(), 2, NewVariable(mp))
	require.NoError(t, err)

	ext := []byte{1, 2, 3, 4}
	b, err := p.AllocWithData(ext, osdep.NoWait)
	require.NoError(t, err)
	assert.Equal(t, ExternalData, b.Flags())
	assert.Equal(t, ext, b.Data())
	assert.Equal(t, 0, mp.Info().NumUsed)

	// external data is copied, not shared
	c, err := b.Clone(osdep.NoWait)
	require.NoError(t, err)
	assert.Equal(t, ext, c.Data())
	assert.Equal(t, 1, mp.Info().NumUsed)

	b.Unref()
	assert.Equal(t, []byte{1, 2, 3, 4}, ext)
	assert.Equal(t, 1, mp.Info().NumUsed)
	c.Unref()
	assert.Equal(t, 0, mp.Info().NumUsed)
}

func TestDestroyHook(t *testing.T) {
	var destroyed []*Buf
	p := newFixed(t, 2, 8, WithDestroy(func(b *Buf) {
		destroyed = append(destroyed, b)
		b.Destroy()
	}))

	b, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	f, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	FragAdd(b, f)

	b.Unref()
	assert.Equal(t, []*Buf{b, f}, destroyed)
	assert.Equal(t, 2, p.Stats().Free)
}

func TestSkip(t *testing.T) {
	p := newFixed(t, 3, 4)
	mk := func(data ...byte) *Buf {
		b, err := p.Alloc(osdep.NoWait)
		require.NoError(t, err)
		b.AddMem(data)
		return b
	}
	h := mk(1, 2)
	FragAdd(h, mk(3, 4, 5))
	FragAdd(h, mk(6))

	h = h.Skip(3)
	require.NotNil(t, h)
	assert.Equal(t, []byte{4, 5}, h.Data())
	assert.Equal(t, 2, p.Stats().InUse)

	assert.Nil(t, h.Skip(10))
	assert.Equal(t, 0, p.Stats().InUse)
}

func TestReset(t *testing.T) {
	p := newFixed(t, 1, 8)
	b, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	b.Reserve(2)
	b.AddMem([]byte{1, 2})

	b.Reset()
	once := b.Simple
	b.Reset()
	assert.Equal(t, once, b.Simple)
	assert.Equal(t, 0, b.Headroom())
	assert.Equal(t, 8, b.Tailroom())
	b.Unref()
}

func TestLookup(t *testing.T) {
	p := newFixed(t, 1, 8)
	got, ok := Lookup(t.Name())
	assert.True(t, ok)
	assert.Equal(t, p, got)
	assert.Contains(t, PoolNames(), t.Name())

	_, ok = Lookup("missing")
	assert.False(t, ok)
}

func TestBufLogTrace(t *testing.T) {
	prev := blecore.CurrentConfig()
	c := prev
	c.BufLog = true
	require.NoError(t, blecore.SetConfig(c))
	defer func() { require.NoError(t, blecore.SetConfig(prev)) }()

	p := newFixed(t, 1, 8)
	b, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	b.Ref().Unref()
	b.Unref()
	_, err = p.Alloc(osdep.NoWait)
	require.NoError(t, err)
}

func TestSListHandoff(t *testing.T) {
	p := newFixed(t, 2, 8)
	var l slist.SList[Buf, *Buf]

	a, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	b, err := p.Alloc(osdep.NoWait)
	require.NoError(t, err)
	SListPut(&l, a)
	SListPut(&l, b)
	assert.Equal(t, a, SListGet(&l))
	assert.Equal(t, b, SListGet(&l))
	assert.Nil(t, SListGet(&l))
}
