package queue

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rigado/blecore/osdep"
	_ "github.com/rigado/blecore/osdep/posix"
	"github.com/rigado/blecore/poll"
	"github.com/rigado/blecore/slist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type item struct {
	node slist.SNode[item]
	v    int
}

func (i *item) SNode() *slist.SNode[item] {
	return &i.node
}

func TestFIFOOrder(t *testing.T) {
	f := NewFIFO[item]()
	items := []*item{{v: 1}, {v: 2}, {v: 3}}
	for _, it := range items {
		f.Put(it)
	}
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, 1, f.PeekHead().v)
	assert.Equal(t, 3, f.PeekTail().v)

	for _, want := range []int{1, 2, 3} {
		got := f.Get(osdep.NoWait)
		require.NotNil(t, got)
		assert.Equal(t, want, got.v)
	}
	assert.Nil(t, f.Get(osdep.NoWait))
	assert.True(t, f.IsEmpty())
}

func TestLIFOOrder(t *testing.T) {
	l := NewLIFO[item]()
	for i := 1; i <= 3; i++ {
		l.Put(&item{v: i})
	}
	for _, want := range []int{3, 2, 1} {
		got := l.Get(osdep.NoWait)
		require.NotNil(t, got)
		assert.Equal(t, want, got.v)
	}
}

func TestUniqueAppendRemove(t *testing.T) {
	q := New[item]()
	a, b := &item{v: 1}, &item{v: 2}
	assert.True(t, q.UniqueAppend(a))
	assert.False(t, q.UniqueAppend(a))
	q.Prepend(b)
	assert.Equal(t, 2, q.Len())

	assert.True(t, q.Remove(a))
	assert.False(t, q.Remove(a))
	assert.Equal(t, b, q.Get(osdep.NoWait))
}

func TestAppendList(t *testing.T) {
	f := NewFIFO[item]()
	f.Put(&item{v: 0})

	var l slist.SList[item, *item]
	l.Append(&item{v: 1})
	l.Append(&item{v: 2})
	f.PutList(&l)
	assert.True(t, l.IsEmpty())

	for want := 0; want < 3; want++ {
		assert.Equal(t, want, f.Get(osdep.NoWait).v)
	}
}

func TestGetTimeout(t *testing.T) {
	f := NewFIFO[item]()
	start := time.Now()
	assert.Nil(t, f.Get(osdep.Millis(30)))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestOneWaiterPerPut(t *testing.T) {
	f := NewFIFO[item]()
	var got int32

	var g errgroup.Group
	for i := 0; i < 3; i++ {
		g.Go(func() error {
			if f.Get(osdep.Millis(300)) != nil {
				atomic.AddInt32(&got, 1)
			}
			return nil
		})
	}

	time.Sleep(20 * time.Millisecond)
	f.Put(&item{v: 1})
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, atomic.LoadInt32(&got))
}

func TestCancelWait(t *testing.T) {
	f := NewFIFO[item]()
	res := make(chan *item, 1)
	go func() { res <- f.Get(osdep.Forever) }()

	time.Sleep(20 * time.Millisecond)
	f.CancelWait()
	select {
	case it := <-res:
		assert.Nil(t, it)
	case <-time.After(time.Second):
		t.Fatal("waiter not cancelled")
	}

	// no waiter, so the cancel is not remembered
	f.CancelWait()
	f.Put(&item{v: 5})
	it := f.Get(osdep.NoWait)
	require.NotNil(t, it)
	assert.Equal(t, 5, it.v)
}

func TestCancelWaitRacingAppend(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := NewFIFO[item]()
		res := make(chan *item, 1)
		go func() { res <- f.Get(osdep.Forever) }()
		require.Eventually(t, func() bool {
			f.q.lock()
			defer f.q.unlock()
			return f.q.waiters == 1
		}, time.Second, time.Millisecond)

		f.CancelWait()
		f.Put(&item{v: round})

		select {
		case it := <-res:
			if it == nil {
				// the cancel won, the item is still queued
				require.NotNil(t, f.Get(osdep.NoWait))
			}
		case <-time.After(time.Second):
			t.Fatal("waiter not released")
		}

		start := time.Now()
		assert.Nil(t, f.Get(osdep.Millis(50)))
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond, "round %d", round)
	}
}

func TestPollDataAvailable(t *testing.T) {
	f := NewFIFO[item]()
	e, err := poll.NewEvent(poll.TypeDataAvailable, f)
	require.NoError(t, err)

	err = poll.Poll([]*poll.Event{e}, osdep.NoWait)
	assert.Error(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		f.Put(&item{v: 9})
	}()
	require.NoError(t, poll.Poll([]*poll.Event{e}, osdep.Seconds(2)))
	assert.Equal(t, poll.StateDataAvailable, e.State())
	assert.Equal(t, 9, f.Get(osdep.NoWait).v)

	// already non-empty
	f.Put(&item{v: 10})
	require.NoError(t, poll.Poll([]*poll.Event{e}, osdep.NoWait))
}
