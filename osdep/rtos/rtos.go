// Package rtos is the RTOS flavoured OS backend. It models a small kernel:
// a tick clock, counting semaphores with ordered waiter lists, mutexes built
// on binary semaphores, event groups standing in for condition variables,
// and a timer service task that runs every software timer callback.
package rtos

import (
	"sync"
	"time"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

// Name is the registry name of this backend.
const Name = blecore.BackendRTOS

const (
	// MaxPriorities bounds task priorities, as configMAX_PRIORITIES does.
	MaxPriorities = 32
	// TickPeriod is the kernel tick.
	TickPeriod = time.Millisecond
	// MinimalStackSize is used for tasks created without a stack size.
	MinimalStackSize = 512
)

func init() {
	osdep.Register(Name, func() osdep.Backend { return New() })
}

// Kernel implements osdep.Backend. Each Kernel owns its own tick base and
// timer service task.
type Kernel struct {
	start time.Time

	svcOnce sync.Once
	svc     *timerService
}

func New() *Kernel {
	return &Kernel{start: time.Now()}
}

func (k *Kernel) Name() string {
	return Name
}

func (k *Kernel) NewSem(initial, limit uint32) (osdep.Sem, error) {
	return newSem(initial, limit)
}

func (k *Kernel) NewMutex() osdep.Mutex {
	return newMutex()
}

func (k *Kernel) NewCond() osdep.Cond {
	return newCond()
}

func (k *Kernel) NewThread(fn osdep.ThreadFunc, attr osdep.ThreadAttr) (osdep.Thread, error) {
	return newTask(k, fn, attr)
}

func (k *Kernel) NewTimer(cb osdep.TimerFunc, arg interface{}) (osdep.Timer, error) {
	if cb == nil {
		return nil, blecore.Wrapf(blecore.EINVAL, "timer create", "nil callback")
	}
	return k.timers().newTimer(cb, arg), nil
}

func (k *Kernel) Self() osdep.ThreadID {
	return osdep.CurrentThreadID()
}

func (k *Kernel) Yield() {
	osdep.YieldThread()
}

// Sleep blocks for ms rounded up to whole ticks.
func (k *Kernel) Sleep(ms uint32) {
	time.Sleep(ticksToDuration(msToTicks(osdep.Timeout(ms))))
}

// NowMs is the tick count since the kernel started, in milliseconds.
func (k *Kernel) NowMs() uint64 {
	return k.ticks() * uint64(TickPeriod/time.Millisecond)
}

func (k *Kernel) Priority(prio int) int {
	if prio >= MaxPriorities {
		return MaxPriorities - 1
	}
	return prio
}

func (k *Kernel) ticks() uint64 {
	return uint64(time.Since(k.start) / TickPeriod)
}

func (k *Kernel) timers() *timerService {
	k.svcOnce.Do(func() {
		k.svc = startTimerService(k)
	})
	return k.svc
}

// msToTicks converts a finite timeout, rounding up.
func msToTicks(t osdep.Timeout) uint64 {
	if t <= 0 {
		return 0
	}
	d := time.Duration(t) * time.Millisecond
	return uint64((d + TickPeriod - 1) / TickPeriod)
}

func ticksToDuration(ticks uint64) time.Duration {
	return time.Duration(ticks) * TickPeriod
}

// wait blocks on ch for up to t. It reports whether ch fired.
func wait(ch <-chan struct{}, t osdep.Timeout) bool {
	if t.IsForever() {
		<-ch
		return true
	}
	if t.IsNoWait() {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}

	tm := time.NewTimer(ticksToDuration(msToTicks(t)))
	defer tm.Stop()
	select {
	case <-ch:
		return true
	case <-tm.C:
		return false
	}
}
