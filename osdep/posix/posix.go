//go:build linux

// Package posix is the POSIX flavoured OS backend. Threads are goroutines
// bound to their own kernel thread, the clock is CLOCK_MONOTONIC and timers
// run their callback on a fresh goroutine the way SIGEV_THREAD timers do.
package posix

import (
	"time"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
	"golang.org/x/sys/unix"
)

// Name is the registry name of this backend.
const Name = blecore.BackendPOSIX

// basePriority offsets stack priorities into the pthread range.
const basePriority = 100

func init() {
	osdep.Register(Name, func() osdep.Backend { return New() })
}

// Backend implements osdep.Backend.
type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string {
	return Name
}

func (b *Backend) NewSem(initial, limit uint32) (osdep.Sem, error) {
	return newSem(initial, limit)
}

func (b *Backend) NewMutex() osdep.Mutex {
	return newMutex()
}

func (b *Backend) NewCond() osdep.Cond {
	return newCond()
}

func (b *Backend) NewThread(fn osdep.ThreadFunc, attr osdep.ThreadAttr) (osdep.Thread, error) {
	return newThread(fn, attr)
}

func (b *Backend) NewTimer(cb osdep.TimerFunc, arg interface{}) (osdep.Timer, error) {
	return newTimer(cb, arg)
}

func (b *Backend) Self() osdep.ThreadID {
	return osdep.CurrentThreadID()
}

func (b *Backend) Yield() {
	osdep.YieldThread()
}

func (b *Backend) Sleep(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (b *Backend) NowMs() uint64 {
	return nowMs()
}

func (b *Backend) Priority(prio int) int {
	return basePriority + prio
}

func nowMs() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		blecore.Assert(false, "clock_gettime: %v", err)
	}
	return uint64(ts.Sec)*1000 + uint64(ts.Nsec)/1000000
}

// after returns a channel that fires after a finite timeout, plus its stop
// function.
func after(t osdep.Timeout) (<-chan time.Time, func() bool) {
	tm := time.NewTimer(t.Duration())
	return tm.C, tm.Stop
}
