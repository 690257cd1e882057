package work

import (
	"context"
	"time"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/atomic"
	"github.com/rigado/blecore/osdep"
	"github.com/rigado/blecore/slist"
)

// Queue state bits.
const (
	queueStartedBit = 0
	queueBusyBit    = 1
	queueDrainBit   = 2
	queuePluggedBit = 3
	queueStopBit    = 4
	queueNoYieldBit = 8
)

// QueueConfig tunes a queue at start.
type QueueConfig struct {
	Name string
	// NoYield keeps the thread from yielding between work items.
	NoYield bool
}

// Queue is a thread that runs submitted work in order, one item at a time.
type Queue struct {
	name     string
	thread   osdep.Thread
	threadID osdep.ThreadID
	pending  slist.SList[Work, *Work]
	notifyq  osdep.Sem
	drainq   osdep.Sem
	drainers int
	flags    atomic.Word
	exited   chan struct{}
}

func NewQueue() *Queue {
	q := &Queue{}
	q.Init()
	return q
}

// Init resets q to a stopped queue.
func (q *Queue) Init() {
	q.name = ""
	q.thread = nil
	q.threadID = 0
	q.pending.Init()
	q.flags.Set(0)
}

func (q *Queue) Name() string {
	return q.name
}

// ThreadID returns the thread running the queue loop.
func (q *Queue) ThreadID() osdep.ThreadID {
	coreLock()
	defer coreUnlock()
	return q.threadID
}

func (q *Queue) IsStarted() bool {
	coreLock()
	defer coreUnlock()
	return q.flags.TestBit(queueStartedBit)
}

func (q *Queue) notifyLocked() {
	if q != nil {
		_ = q.notifyq.Give()
	}
}

// enqueueLocked appends w when the queue accepts submissions. The checks
// run in priority order: not started, draining and not chained, plugged.
func (q *Queue) enqueueLocked(w *Work) error {
	if q == nil {
		return blecore.Wrapf(blecore.EINVAL, "work.Submit", "no queue")
	}

	chained := osdep.Self() == q.threadID
	draining := q.flags.TestBit(queueDrainBit)
	plugged := q.flags.TestBit(queuePluggedBit)

	switch {
	case !q.flags.TestBit(queueStartedBit):
		return blecore.Wrapf(blecore.ENODEV, "work.Submit", "queue %q not started", q.name)
	case draining && !chained:
		return blecore.Wrapf(blecore.EBUSY, "work.Submit", "queue %q draining", q.name)
	case plugged && !draining:
		return blecore.Wrapf(blecore.EBUSY, "work.Submit", "queue %q plugged", q.name)
	}

	q.pending.Append(w)
	q.notifyLocked()
	return nil
}

// Submit queues w on q, see submitLocked for the result values.
func (q *Queue) Submit(w *Work) (int, error) {
	blecore.Assert(w != nil && w.handler != nil, "work: submit of uninitialised work")

	coreLock()
	ret, err := submitLocked(w, &q)
	coreUnlock()

	if ret > 0 {
		osdep.Yield()
	}
	return ret, err
}

func (q *Queue) prepare(cfg *QueueConfig) {
	flags := int64(1 << queueStartedBit)
	if cfg != nil && cfg.NoYield {
		flags |= 1 << queueNoYieldBit
	}
	if cfg != nil {
		q.name = cfg.Name
	}

	q.pending.Init()
	q.notifyq = newSem()
	q.drainq = newCountingSem()
	q.drainers = 0
	q.exited = make(chan struct{})
	q.flags.Set(flags)
}

// Start runs the queue on a new thread.
func (q *Queue) Start(stackSize, prio int, cfg *QueueConfig) error {
	coreLock()
	blecore.Assert(!q.flags.TestBit(queueStartedBit), "work: queue %q already started", q.name)
	// submissions are accepted from here on; the thread picks them up
	q.prepare(cfg)
	coreUnlock()

	th, err := osdep.NewThread(func(context.Context) {
		q.loop()
	}, osdep.ThreadAttr{Name: q.name, Priority: prio, StackSize: stackSize})
	if err != nil {
		coreLock()
		q.flags.Set(0)
		coreUnlock()
		return blecore.WrapErr(err, blecore.ErrnoOf(err), "work.Start")
	}

	coreLock()
	q.thread = th
	coreUnlock()
	_ = th.Start()

	log.Debugf("queue %q started, prio %d stack %d", q.name, prio, stackSize)
	return nil
}

// Run turns the calling goroutine into the queue thread. It returns once
// the queue is stopped.
func (q *Queue) Run(cfg *QueueConfig) {
	coreLock()
	blecore.Assert(!q.flags.TestBit(queueStartedBit), "work: queue %q already started", q.name)
	q.prepare(cfg)
	coreUnlock()

	osdep.BindThread()
	if cfg != nil && cfg.Name != "" {
		_ = osdep.SetThreadName(cfg.Name)
	}
	q.loop()
}

func (q *Queue) loop() {
	tid := osdep.Self()
	coreLock()
	q.threadID = tid
	coreUnlock()
	defer close(q.exited)

	for {
		coreLock()

		w := q.pending.Get()
		switch {
		case w != nil:
			q.flags.SetBit(queueBusyBit)
			w.flags.SetBit(runningBit)
			w.flags.ClearBit(queuedBit)
		case q.flags.TestAndClearBit(queueDrainBit):
			// PLUGGED is left alone, so the queue may still refuse work
			for ; q.drainers > 0; q.drainers-- {
				_ = q.drainq.Give()
			}
		case q.flags.TestBit(queueStopBit):
			q.flags.Set(0)
			q.threadID = 0
			coreUnlock()
			log.Debugf("queue %q stopped", q.name)
			return
		}

		if w == nil {
			coreUnlock()
			_ = q.notifyq.Take(osdep.Forever)
			continue
		}

		h := w.handler
		coreUnlock()

		blecore.Assert(h != nil, "work: queued item without handler")
		h(w)

		coreLock()
		w.flags.ClearBit(runningBit)
		if w.flags.TestBit(flushingBit) {
			finalizeFlushLocked(w)
		} else if w.flags.TestBit(cancelingBit) {
			finalizeCancelLocked(w)
		}
		q.flags.ClearBit(queueBusyBit)
		yield := !q.flags.TestBit(queueNoYieldBit)
		coreUnlock()

		if yield {
			osdep.Yield()
		}
	}
}

// Drain waits until q has no pending or running work. With plug set the
// queue then refuses submissions from other threads until Unplug.
func (q *Queue) Drain(plug bool) error {
	coreLock()
	busy := q.flags.Get()&(1<<queueBusyBit|1<<queueDrainBit) != 0
	if busy || plug || !q.pending.IsEmpty() {
		q.flags.SetBit(queueDrainBit)
		if plug {
			q.flags.SetBit(queuePluggedBit)
		}
		q.drainers++
		q.notifyLocked()
		coreUnlock()
		_ = q.drainq.Take(osdep.Forever)
		return nil
	}
	coreUnlock()
	return nil
}

// Unplug lets q accept submissions again. It fails with EALREADY when q
// was not plugged.
func (q *Queue) Unplug() error {
	coreLock()
	defer coreUnlock()
	if !q.flags.TestAndClearBit(queuePluggedBit) {
		return blecore.Wrapf(blecore.EALREADY, "work.Unplug", "queue %q not plugged", q.name)
	}
	return nil
}

// Stop ends a plugged queue and waits up to t for its thread to exit.
func (q *Queue) Stop(t osdep.Timeout) error {
	coreLock()
	if !q.flags.TestBit(queueStartedBit) {
		coreUnlock()
		return blecore.Wrapf(blecore.EALREADY, "work.Stop", "queue %q not started", q.name)
	}
	if !q.flags.TestBit(queuePluggedBit) {
		coreUnlock()
		return blecore.Wrapf(blecore.EBUSY, "work.Stop", "queue %q not plugged", q.name)
	}
	q.flags.SetBit(queueStopBit)
	q.notifyLocked()
	th, exited := q.thread, q.exited
	coreUnlock()

	var err error
	if th != nil {
		err = th.Join(t)
	} else {
		err = waitClosed(exited, t)
	}
	if err != nil {
		coreLock()
		q.flags.ClearBit(queueStopBit)
		coreUnlock()
		return blecore.Wrapf(blecore.ETIMEDOUT, "work.Stop", "queue %q did not exit", q.name)
	}

	coreLock()
	q.thread = nil
	coreUnlock()
	return nil
}

func waitClosed(ch <-chan struct{}, t osdep.Timeout) error {
	if t.IsForever() {
		<-ch
		return nil
	}
	timer := time.NewTimer(t.Duration())
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-timer.C:
		return blecore.ETIMEDOUT
	}
}
