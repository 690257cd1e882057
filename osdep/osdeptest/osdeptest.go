// Package osdeptest holds the behaviour every osdep backend must show. Each
// backend runs it from its own tests.
package osdeptest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes the conformance cases against b.
func Run(t *testing.T, b osdep.Backend) {
	t.Run("SemSaturates", func(t *testing.T) { testSemSaturates(t, b) })
	t.Run("SemTake", func(t *testing.T) { testSemTake(t, b) })
	t.Run("SemWakesTaker", func(t *testing.T) { testSemWakesTaker(t, b) })
	t.Run("Mutex", func(t *testing.T) { testMutex(t, b) })
	t.Run("CondTimeout", func(t *testing.T) { testCondTimeout(t, b) })
	t.Run("CondSignal", func(t *testing.T) { testCondSignal(t, b) })
	t.Run("CondBroadcast", func(t *testing.T) { testCondBroadcast(t, b) })
	t.Run("Thread", func(t *testing.T) { testThread(t, b) })
	t.Run("ThreadCancel", func(t *testing.T) { testThreadCancel(t, b) })
	t.Run("Timer", func(t *testing.T) { testTimer(t, b) })
	t.Run("TimerStop", func(t *testing.T) { testTimerStop(t, b) })
	t.Run("Clock", func(t *testing.T) { testClock(t, b) })
}

func testSemSaturates(t *testing.T, b osdep.Backend) {
	s, err := b.NewSem(0, 2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Give())
	}
	assert.EqualValues(t, 2, s.Count())

	require.NoError(t, s.Take(osdep.NoWait))
	require.NoError(t, s.Take(osdep.NoWait))
	assert.True(t, errors.Is(s.Take(osdep.NoWait), blecore.ETIMEDOUT))

	require.NoError(t, s.Give())
	require.NoError(t, s.Reset())
	assert.EqualValues(t, 0, s.Count())

	_, err = b.NewSem(3, 2)
	assert.True(t, errors.Is(err, blecore.EINVAL))
}

func testSemTake(t *testing.T, b osdep.Backend) {
	s, err := b.NewSem(0, 1)
	require.NoError(t, err)

	start := time.Now()
	err = s.Take(osdep.Millis(30))
	assert.True(t, errors.Is(err, blecore.ETIMEDOUT), "got %v", err)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func testSemWakesTaker(t *testing.T, b osdep.Backend) {
	s, err := b.NewSem(0, 1)
	require.NoError(t, err)

	got := make(chan error, 1)
	go func() { got <- s.Take(osdep.Forever) }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Give())

	select {
	case err := <-got:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("taker not woken")
	}
	assert.EqualValues(t, 0, s.Count())
}

func testMutex(t *testing.T, b osdep.Backend) {
	m := b.NewMutex()
	require.NoError(t, m.Lock(osdep.Forever))
	assert.False(t, osdep.TryLock(m))

	start := time.Now()
	err := m.Lock(osdep.Millis(20))
	assert.True(t, errors.Is(err, blecore.ETIMEDOUT), "got %v", err)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	require.NoError(t, m.Unlock())
	assert.Error(t, m.Unlock())
	assert.True(t, osdep.TryLock(m))
	require.NoError(t, m.Unlock())
}

func testCondTimeout(t *testing.T, b osdep.Backend) {
	m := b.NewMutex()
	c := b.NewCond()

	require.NoError(t, m.Lock(osdep.Forever))
	assert.True(t, errors.Is(c.Wait(m, osdep.NoWait), blecore.ETIMEDOUT))
	assert.True(t, errors.Is(c.Wait(m, osdep.Millis(20)), blecore.ETIMEDOUT))

	// the mutex is held again after a timed out wait
	assert.False(t, osdep.TryLock(m))
	require.NoError(t, m.Unlock())
}

func testCondSignal(t *testing.T, b osdep.Backend) {
	m := b.NewMutex()
	c := b.NewCond()
	var ready int32

	done := make(chan struct{})
	go func() {
		defer close(done)
		osdep.MustLock(m)
		for atomic.LoadInt32(&ready) == 0 {
			if err := c.Wait(m, osdep.Seconds(2)); err != nil {
				break
			}
		}
		osdep.MustUnlock(m)
	}()

	time.Sleep(10 * time.Millisecond)
	osdep.MustLock(m)
	atomic.StoreInt32(&ready, 1)
	require.NoError(t, c.Signal())
	osdep.MustUnlock(m)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter not signalled")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&ready))
}

func testCondBroadcast(t *testing.T, b osdep.Backend) {
	m := b.NewMutex()
	c := b.NewCond()
	var ready, woken int32

	const n = 3
	for i := 0; i < n; i++ {
		go func() {
			osdep.MustLock(m)
			for atomic.LoadInt32(&ready) == 0 {
				if err := c.Wait(m, osdep.Seconds(2)); err != nil {
					break
				}
			}
			atomic.AddInt32(&woken, 1)
			osdep.MustUnlock(m)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	osdep.MustLock(m)
	atomic.StoreInt32(&ready, 1)
	require.NoError(t, c.Broadcast())
	osdep.MustUnlock(m)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&woken) == n }, time.Second, 5*time.Millisecond)
}

func testThread(t *testing.T, b osdep.Backend) {
	release := make(chan struct{})
	var inside int32

	var th osdep.Thread
	started := make(chan struct{})
	th, err := b.NewThread(func(ctx context.Context) {
		<-started
		if th.IsCurrent() && b.Self() == th.ID() {
			atomic.StoreInt32(&inside, 1)
		}
		<-release
	}, osdep.ThreadAttr{Name: "conformance", Priority: b.Priority(0), StackSize: 2048})
	require.NoError(t, err)
	close(started)

	require.NoError(t, th.Start())
	assert.Equal(t, "conformance", th.Name())
	assert.False(t, th.IsCurrent())
	assert.True(t, errors.Is(th.Join(osdep.Millis(20)), blecore.ETIMEDOUT))

	close(release)
	require.NoError(t, th.Join(osdep.Seconds(1)))
	assert.EqualValues(t, 1, atomic.LoadInt32(&inside))

	_, err = b.NewThread(nil, osdep.ThreadAttr{})
	assert.True(t, errors.Is(err, blecore.EINVAL))
}

func testThreadCancel(t *testing.T, b osdep.Backend) {
	th, err := b.NewThread(func(ctx context.Context) {
		<-ctx.Done()
	}, osdep.ThreadAttr{Name: "cancel"})
	require.NoError(t, err)

	require.NoError(t, th.Cancel())
	require.NoError(t, th.Join(osdep.Seconds(1)))
	select {
	case <-th.Done():
	default:
		t.Fatal("done not closed after join")
	}
}

func testTimer(t *testing.T, b osdep.Backend) {
	fired := make(chan interface{}, 2)
	var tm osdep.Timer
	tm, err := b.NewTimer(func(got osdep.Timer, arg interface{}) {
		fired <- arg
	}, "arg")
	require.NoError(t, err)

	require.NoError(t, tm.Start(100))
	rem := tm.RemainingMs()
	assert.True(t, rem > 50 && rem <= 100, "remaining %d", rem)

	// re-arming moves the deadline
	require.NoError(t, tm.Start(20))
	select {
	case arg := <-fired:
		assert.Equal(t, "arg", arg)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.EqualValues(t, 0, tm.RemainingMs())

	select {
	case <-fired:
		t.Fatal("one-shot timer fired twice")
	case <-time.After(150 * time.Millisecond):
	}
	require.NoError(t, tm.Delete())
	assert.Error(t, tm.Start(10))
}

func testTimerStop(t *testing.T, b osdep.Backend) {
	var n int32
	tm, err := b.NewTimer(func(osdep.Timer, interface{}) { atomic.AddInt32(&n, 1) }, nil)
	require.NoError(t, err)

	require.NoError(t, tm.Start(30))
	require.NoError(t, tm.Stop())
	assert.EqualValues(t, 0, tm.RemainingMs())
	time.Sleep(80 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&n))
}

func testClock(t *testing.T, b osdep.Backend) {
	t0 := b.NowMs()
	b.Sleep(20)
	t1 := b.NowMs()
	assert.GreaterOrEqual(t, t1-t0, uint64(19))
	b.Yield()
	assert.GreaterOrEqual(t, b.NowMs(), t1)
}
