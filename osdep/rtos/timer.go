package rtos

import (
	"sync"
	"time"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

// timerService is the daemon task that owns every software timer of a
// kernel. Callbacks run on the daemon, one at a time, in expiry order.
type timerService struct {
	k    *Kernel
	mu   sync.Mutex
	set  map[*swTimer]struct{}
	kick chan struct{}
}

type swTimer struct {
	svc     *timerService
	cb      osdep.TimerFunc
	arg     interface{}
	expiry  uint64 // tick, valid while active
	active  bool
	deleted bool
}

func startTimerService(k *Kernel) *timerService {
	s := &timerService{
		k:    k,
		set:  map[*swTimer]struct{}{},
		kick: make(chan struct{}, 1),
	}
	go s.run()
	return s
}

func (s *timerService) newTimer(cb osdep.TimerFunc, arg interface{}) *swTimer {
	return &swTimer{svc: s, cb: cb, arg: arg}
}

func (s *timerService) wake() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *timerService) run() {
	osdep.BindThread()
	tm := time.NewTimer(time.Hour)
	for {
		fired := s.expire()
		for _, t := range fired {
			t.cb(t, t.arg)
		}

		next, ok := s.next()
		d := time.Hour
		if ok {
			now := s.k.ticks()
			d = 0
			if next > now {
				d = ticksToDuration(next - now)
			}
		}
		if !tm.Stop() {
			select {
			case <-tm.C:
			default:
			}
		}
		tm.Reset(d)

		select {
		case <-tm.C:
		case <-s.kick:
		}
	}
}

// expire deactivates due timers and returns them ordered by expiry.
func (s *timerService) expire() []*swTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.k.ticks()
	var fired []*swTimer
	for t := range s.set {
		if t.expiry <= now {
			t.active = false
			delete(s.set, t)
			fired = append(fired, t)
		}
	}
	for i := 1; i < len(fired); i++ {
		for j := i; j > 0 && fired[j].expiry < fired[j-1].expiry; j-- {
			fired[j], fired[j-1] = fired[j-1], fired[j]
		}
	}
	return fired
}

func (s *timerService) next() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next uint64
	ok := false
	for t := range s.set {
		if !ok || t.expiry < next {
			next, ok = t.expiry, true
		}
	}
	return next, ok
}

// Start arms the timer for ms milliseconds, rounded up to ticks. A period
// of zero expires on the next service pass.
func (t *swTimer) Start(ms uint32) error {
	s := t.svc
	s.mu.Lock()
	if t.deleted {
		s.mu.Unlock()
		return blecore.Wrapf(blecore.EINVAL, "timer start", "timer deleted")
	}
	t.expiry = s.k.ticks() + msToTicks(osdep.Timeout(ms))
	t.active = true
	s.set[t] = struct{}{}
	s.mu.Unlock()

	s.wake()
	return nil
}

func (t *swTimer) Stop() error {
	s := t.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	t.active = false
	delete(s.set, t)
	return nil
}

func (t *swTimer) Delete() error {
	s := t.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.deleted {
		return blecore.Wrapf(blecore.EINVAL, "timer delete", "timer already deleted")
	}
	t.active = false
	t.deleted = true
	delete(s.set, t)
	return nil
}

func (t *swTimer) RemainingMs() uint64 {
	s := t.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.active {
		return 0
	}
	now := s.k.ticks()
	if t.expiry <= now {
		return 0
	}
	return (t.expiry - now) * uint64(TickPeriod/time.Millisecond)
}
