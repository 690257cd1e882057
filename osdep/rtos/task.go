package rtos

import (
	"context"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

const joinBit EventBits = 0x01

// task is a kernel task. Its join group gets joinBit when the body returns.
type task struct {
	id        osdep.ThreadID
	name      string
	prio      int
	stackSize int

	cancel context.CancelFunc
	join   *EventGroup
	done   chan struct{}
}

func newTask(k *Kernel, fn osdep.ThreadFunc, attr osdep.ThreadAttr) (*task, error) {
	if fn == nil {
		return nil, blecore.Wrapf(blecore.EINVAL, "task create", "nil task function")
	}

	prio := attr.Priority
	if prio < 0 {
		prio = 0
	}
	stack := attr.StackSize
	if stack <= 0 {
		stack = MinimalStackSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	tk := &task{
		name:      attr.Name,
		prio:      k.Priority(prio),
		stackSize: stack,
		cancel:    cancel,
		join:      NewEventGroup(),
		done:      make(chan struct{}),
	}

	ready := make(chan osdep.ThreadID)
	go func() {
		ready <- osdep.BindThread()
		defer func() {
			cancel()
			close(tk.done)
			tk.join.SetBits(joinBit)
		}()
		fn(ctx)
	}()
	tk.id = <-ready
	return tk, nil
}

func (tk *task) ID() osdep.ThreadID {
	return tk.id
}

func (tk *task) Name() string {
	return tk.name
}

// SetName is accepted and ignored: task names are fixed at creation.
func (tk *task) SetName(name string) error {
	return nil
}

func (tk *task) Priority() int {
	return tk.prio
}

func (tk *task) Start() error {
	return nil
}

func (tk *task) Cancel() error {
	select {
	case <-tk.done:
		return blecore.Wrapf(blecore.EINVAL, "task cancel", "task %q already deleted", tk.name)
	default:
	}
	tk.cancel()
	return nil
}

func (tk *task) Join(t osdep.Timeout) error {
	if tk.join.WaitBits(joinBit, false, false, t)&joinBit == 0 {
		return blecore.ETIMEDOUT
	}
	return nil
}

func (tk *task) IsCurrent() bool {
	return tk.id == osdep.CurrentThreadID()
}

func (tk *task) Done() <-chan struct{} {
	return tk.done
}
