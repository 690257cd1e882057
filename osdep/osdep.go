// Package osdep is the platform surface of the stack: semaphores, mutexes,
// condition variables, threads, one-shot timers and a monotonic clock.
//
// Backends register themselves by name (see posix and rtos) and the stack
// picks one at bring-up. The package level helpers forward to the current
// backend.
package osdep

import (
	"context"
	"sort"
	"sync"

	"github.com/rigado/blecore"
)

// SemMaxLimit is used when a semaphore is created with a zero limit.
const SemMaxLimit = ^uint32(0)

// ThreadID identifies an OS thread.
type ThreadID uint64

// Sem is a counting semaphore whose Give saturates at the creation limit.
type Sem interface {
	// Take decrements the count, waiting up to t. It fails with ETIMEDOUT.
	Take(t Timeout) error
	// Give increments the count. Gives at the limit are dropped.
	Give() error
	Count() uint32
	// Reset drains the count to zero.
	Reset() error
}

// Mutex is a non-recursive lock that supports try and timed acquisition.
type Mutex interface {
	// Lock acquires the mutex. NoWait is a trylock; expiry yields ETIMEDOUT.
	Lock(t Timeout) error
	Unlock() error
}

// Cond is a condition variable paired with a Mutex held by the caller.
// Wait may return early; callers re-check their predicate.
type Cond interface {
	Wait(m Mutex, t Timeout) error
	Signal() error
	Broadcast() error
}

// ThreadAttr describes a thread to create.
type ThreadAttr struct {
	Name      string
	Priority  int
	StackSize int
}

// ThreadFunc is a thread body. ctx is cancelled by Thread.Cancel.
type ThreadFunc func(ctx context.Context)

// Thread is a running thread of execution.
type Thread interface {
	ID() ThreadID
	Name() string
	SetName(name string) error
	Priority() int
	// Start is a no-op: threads run from creation.
	Start() error
	// Cancel requests the thread body to stop by cancelling its context.
	Cancel() error
	// Join waits up to t for the thread body to return.
	Join(t Timeout) error
	IsCurrent() bool
	Done() <-chan struct{}
}

// TimerFunc runs when a one-shot timer expires.
type TimerFunc func(t Timer, arg interface{})

// Timer is a one-shot timer.
type Timer interface {
	// Start (re)arms the timer to fire ms milliseconds from now.
	Start(ms uint32) error
	Stop() error
	Delete() error
	RemainingMs() uint64
}

// Backend constructs the primitives of one platform.
type Backend interface {
	Name() string

	NewSem(initial, limit uint32) (Sem, error)
	NewMutex() Mutex
	NewCond() Cond
	NewThread(fn ThreadFunc, attr ThreadAttr) (Thread, error)
	NewTimer(cb TimerFunc, arg interface{}) (Timer, error)

	Self() ThreadID
	Yield()
	Sleep(ms uint32)
	// NowMs is a monotonic clock in milliseconds.
	NowMs() uint64
	// Priority maps a stack relative priority onto the platform range.
	Priority(prio int) int
}

var (
	mu        sync.Mutex
	factories = map[string]func() Backend{}
	current   Backend
)

// Register makes a backend available by name. It is called from the init
// function of each backend package.
func Register(name string, f func() Backend) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// Backends lists the registered backend names.
func Backends() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Use instantiates the named backend and makes it current.
func Use(name string) error {
	mu.Lock()
	defer mu.Unlock()
	f, ok := factories[name]
	if !ok {
		return blecore.Wrapf(blecore.ENODEV, "osdep.Use", "backend %q not registered", name)
	}
	current = f()
	return nil
}

// SetBackend makes b current.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	current = b
}

// Current returns the active backend. Without an explicit choice it falls
// back to the posix backend, then to any registered one.
func Current() Backend {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		return current
	}
	if f, ok := factories[blecore.BackendPOSIX]; ok {
		current = f()
		return current
	}
	for _, f := range factories {
		current = f()
		return current
	}
	blecore.Assert(false, "no os backend registered")
	return nil
}

func NewSem(initial, limit uint32) (Sem, error) {
	return Current().NewSem(initial, limit)
}

func NewMutex() Mutex {
	return Current().NewMutex()
}

func NewCond() Cond {
	return Current().NewCond()
}

func NewThread(fn ThreadFunc, attr ThreadAttr) (Thread, error) {
	return Current().NewThread(fn, attr)
}

func NewTimer(cb TimerFunc, arg interface{}) (Timer, error) {
	return Current().NewTimer(cb, arg)
}

func Self() ThreadID {
	return Current().Self()
}

func Yield() {
	Current().Yield()
}

func Sleep(ms uint32) {
	Current().Sleep(ms)
}

func NowMs() uint64 {
	return Current().NowMs()
}

func Priority(prio int) int {
	return Current().Priority(prio)
}

// TryLock acquires m without waiting.
func TryLock(m Mutex) bool {
	return m.Lock(NoWait) == nil
}

// MustLock acquires m forever. A failure here is a contract violation.
func MustLock(m Mutex) {
	err := m.Lock(Forever)
	blecore.Assert(err == nil, "mutex lock: %v", err)
}

// MustUnlock releases m. A failure here is a contract violation.
func MustUnlock(m Mutex) {
	err := m.Unlock()
	blecore.Assert(err == nil, "mutex unlock: %v", err)
}
