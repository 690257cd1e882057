//go:build linux

package posix

import (
	"sync"
	"time"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

type timer struct {
	mu       sync.Mutex
	cb       osdep.TimerFunc
	arg      interface{}
	t        *time.Timer
	deadline uint64 // CLOCK_MONOTONIC ms, 0 when disarmed
	deleted  bool
}

func newTimer(cb osdep.TimerFunc, arg interface{}) (*timer, error) {
	if cb == nil {
		return nil, blecore.Wrapf(blecore.EINVAL, "timer create", "nil callback")
	}
	return &timer{cb: cb, arg: arg}, nil
}

// Start arms the timer. Start(0) fires as soon as possible.
func (tm *timer) Start(ms uint32) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.deleted {
		return blecore.Wrapf(blecore.EINVAL, "timer start", "timer deleted")
	}

	if tm.t != nil {
		tm.t.Stop()
	}
	tm.deadline = nowMs() + uint64(ms)

	var t *time.Timer
	t = time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
		tm.mu.Lock()
		if tm.t != t || tm.deleted {
			// re-armed or stopped after this expiry was scheduled
			tm.mu.Unlock()
			return
		}
		tm.t = nil
		tm.deadline = 0
		tm.mu.Unlock()

		tm.cb(tm, tm.arg)
	})
	tm.t = t
	return nil
}

func (tm *timer) Stop() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.t != nil {
		tm.t.Stop()
		tm.t = nil
	}
	tm.deadline = 0
	return nil
}

func (tm *timer) Delete() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.deleted {
		return blecore.Wrapf(blecore.EINVAL, "timer delete", "timer already deleted")
	}
	if tm.t != nil {
		tm.t.Stop()
		tm.t = nil
	}
	tm.deadline = 0
	tm.deleted = true
	return nil
}

func (tm *timer) RemainingMs() uint64 {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.deadline == 0 {
		return 0
	}
	now := nowMs()
	if now >= tm.deadline {
		return 0
	}
	return tm.deadline - now
}
