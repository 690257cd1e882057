//go:build linux

package posix

import (
	"context"
	"sync"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

type thread struct {
	mu   sync.Mutex
	id   osdep.ThreadID
	name string
	prio int
	attr osdep.ThreadAttr

	cancel context.CancelFunc
	done   chan struct{}
}

func newThread(fn osdep.ThreadFunc, attr osdep.ThreadAttr) (*thread, error) {
	if fn == nil {
		return nil, blecore.Wrapf(blecore.EINVAL, "thread create", "nil thread function")
	}

	ctx, cancel := context.WithCancel(context.Background())
	th := &thread{
		name:   attr.Name,
		prio:   attr.Priority,
		attr:   attr,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	ready := make(chan osdep.ThreadID)
	go func() {
		// the goroutine keeps the kernel thread; it is torn down on return
		id := osdep.BindThread()
		if th.name != "" {
			if err := osdep.SetThreadName(th.name); err != nil {
				blecore.PkgLogger("posix").Debugf("can't name thread %q: %v", th.name, err)
			}
		}
		ready <- id

		defer close(th.done)
		defer cancel()
		fn(ctx)
	}()

	th.id = <-ready
	return th, nil
}

func (th *thread) ID() osdep.ThreadID {
	return th.id
}

func (th *thread) Name() string {
	th.mu.Lock()
	defer th.mu.Unlock()
	return th.name
}

// SetName records the new name. The kernel name can only be changed from
// the thread itself, so it is applied only when called on th.
func (th *thread) SetName(name string) error {
	th.mu.Lock()
	th.name = name
	th.mu.Unlock()

	if th.IsCurrent() {
		return osdep.SetThreadName(name)
	}
	return nil
}

func (th *thread) Priority() int {
	return th.prio
}

func (th *thread) Start() error {
	return nil
}

func (th *thread) Cancel() error {
	select {
	case <-th.done:
		return blecore.Wrapf(blecore.EINVAL, "thread cancel", "thread %q already exited", th.Name())
	default:
	}
	th.cancel()
	return nil
}

func (th *thread) Join(t osdep.Timeout) error {
	switch {
	case t.IsNoWait():
		select {
		case <-th.done:
			return nil
		default:
			return blecore.ETIMEDOUT
		}

	case t.IsForever():
		<-th.done
		return nil
	}

	c, stop := after(t)
	defer stop()
	select {
	case <-th.done:
		return nil
	case <-c:
		return blecore.ETIMEDOUT
	}
}

func (th *thread) IsCurrent() bool {
	return th.id == osdep.CurrentThreadID()
}

func (th *thread) Done() <-chan struct{} {
	return th.done
}
