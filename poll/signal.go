package poll

import (
	"github.com/rigado/blecore/osdep"
)

// Signal is a raisable flag with a result code. It stays signaled until
// Reset, so every poll that looks at it after Raise sees it ready.
type Signal struct {
	mu       osdep.Mutex
	signaled bool
	result   int
	events   EventList
}

func NewSignal() *Signal {
	s := &Signal{}
	s.Init()
	return s
}

func (s *Signal) Init() {
	*s = Signal{mu: osdep.NewMutex()}
}

// Raise sets the signal with result and wakes one registered poller.
func (s *Signal) Raise(result int) {
	osdep.MustLock(s.mu)
	defer osdep.MustUnlock(s.mu)
	s.signaled = true
	s.result = result
	HandleObjEvents(&s.events, StateSignaled)
}

func (s *Signal) Reset() {
	osdep.MustLock(s.mu)
	defer osdep.MustUnlock(s.mu)
	s.signaled = false
}

// Check returns whether the signal is raised and its result.
func (s *Signal) Check() (bool, int) {
	osdep.MustLock(s.mu)
	defer osdep.MustUnlock(s.mu)
	return s.signaled, s.result
}

func (s *Signal) PollRegister(e *Event) bool {
	osdep.MustLock(s.mu)
	defer osdep.MustUnlock(s.mu)
	if s.signaled {
		MarkReady(e, StateSignaled)
		return true
	}
	s.events.Append(e)
	return false
}

func (s *Signal) PollUnregister(e *Event) {
	osdep.MustLock(s.mu)
	defer osdep.MustUnlock(s.mu)
	s.events.Remove(e)
}
