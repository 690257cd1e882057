// Package work runs deferred handlers on dedicated queue threads. A work
// item is queued at most once at a time and its handler never runs on two
// queues at once. All work and queue state is guarded by one core lock.
package work

import (
	"sync"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/atomic"
	"github.com/rigado/blecore/osdep"
	"github.com/rigado/blecore/slist"
)

// Work item state bits, reported by BusyGet.
const (
	Running   = 1 << runningBit
	Canceling = 1 << cancelingBit
	Queued    = 1 << queuedBit
	Delayed   = 1 << delayedBit
	Flushing  = 1 << flushingBit

	busyMask = Running | Canceling | Queued | Delayed | Flushing
)

const (
	runningBit = iota
	cancelingBit
	queuedBit
	delayedBit
	flushingBit

	delayableBit = 8
)

// Handler runs a work item on its queue thread.
type Handler func(w *Work)

// Work is a unit of deferred processing.
type Work struct {
	node    slist.SNode[Work]
	handler Handler
	queue   *Queue
	flags   atomic.Word

	// flush sentinels signal this once reached
	flushed osdep.Sem
	dw      *Delayable
}

func (w *Work) SNode() *slist.SNode[Work] {
	return &w.node
}

// Sync holds the state a caller needs to wait in Flush or CancelSync.
type Sync struct {
	flusher   Work
	canceller canceller
}

type canceller struct {
	node slist.SNode[canceller]
	work *Work
	sem  osdep.Sem
}

func (c *canceller) SNode() *slist.SNode[canceller] {
	return &c.node
}

var (
	lockOnce sync.Once
	lock     osdep.Mutex

	// pendingCancels lists the callers blocked in CancelSync.
	pendingCancels slist.SList[canceller, *canceller]

	log = blecore.PkgLogger("work")
)

func coreLock() {
	lockOnce.Do(func() { lock = osdep.NewMutex() })
	osdep.MustLock(lock)
}

func coreUnlock() {
	osdep.MustUnlock(lock)
}

func newSem() osdep.Sem {
	s, err := osdep.NewSem(0, 1)
	blecore.Assert(err == nil, "work: semaphore: %v", err)
	return s
}

// newCountingSem wakes one Take per Give with no upper bound.
func newCountingSem() osdep.Sem {
	s, err := osdep.NewSem(0, 0)
	blecore.Assert(err == nil, "work: semaphore: %v", err)
	return s
}

// NewWork returns a work item running h.
func NewWork(h Handler) *Work {
	w := &Work{}
	w.Init(h)
	return w
}

// Init prepares an idle work item.
func (w *Work) Init(h Handler) {
	blecore.Assert(h != nil, "work: nil handler")
	w.node = slist.SNode[Work]{}
	w.handler = h
	w.queue = nil
	w.flags.Set(0)
	w.flushed = nil
	w.dw = nil
}

// Queue returns the queue w was last submitted to.
func (w *Work) Queue() *Queue {
	coreLock()
	defer coreUnlock()
	return w.queue
}

func (w *Work) busyLocked() int {
	return int(w.flags.Get()) & busyMask
}

// BusyGet returns the Running, Canceling, Queued, Delayed and Flushing
// bits of w.
func (w *Work) BusyGet() int {
	coreLock()
	defer coreUnlock()
	return w.busyLocked()
}

func (w *Work) IsPending() bool {
	return w.BusyGet() != 0
}

func (w *Work) isDelayable() bool {
	return w.flags.TestBit(delayableBit)
}

func handleFlush(*Work) {}

func initFlusher(f *Work) {
	f.Init(handleFlush)
	f.flushed = newSem()
	f.flags.SetBit(flushingBit)
}

func initCanceller(c *canceller, w *Work) {
	*c = canceller{work: w, sem: newSem()}
	pendingCancels.Append(c)
}

func finalizeFlushLocked(w *Work) {
	w.flags.ClearBit(flushingBit)
	_ = w.flushed.Give()
}

func finalizeCancelLocked(w *Work) {
	// cleared first so released waiters do not see it
	w.flags.ClearBit(cancelingBit)

	var prev *canceller
	for c := pendingCancels.PeekHead(); c != nil; c = pendingCancels.PeekNext(c) {
		if c.work == w {
			pendingCancels.Remove(prev, c)
			_ = c.sem.Give()
			return
		}
		prev = c
	}
}

// submitLocked queues w on *qp, or on the queue w is running on. It returns
// 1 when w was queued, 2 when it was queued on its running queue instead of
// the one asked for and 0 when it was already queued.
func submitLocked(w *Work, qp **Queue) (int, error) {
	ret := 0
	var err error

	switch {
	case w.flags.TestBit(cancelingBit):
		err = blecore.Wrapf(blecore.EBUSY, "work.Submit", "work is being cancelled")
	case !w.flags.TestBit(queuedBit):
		ret = 1
		if *qp == nil {
			*qp = w.queue
		}

		// a running handler must not be re-entered on another queue
		if w.flags.TestBit(runningBit) {
			blecore.Assert(w.queue != nil, "work: running without a queue")
			*qp = w.queue
			ret = 2
		}

		if err = (*qp).enqueueLocked(w); err != nil {
			ret = 0
		} else {
			w.flags.SetBit(queuedBit)
			w.queue = *qp
		}
	}

	if ret <= 0 {
		*qp = nil
	}
	return ret, err
}

// Submit queues w on the main queue.
func Submit(w *Work) (int, error) {
	return Main().Submit(w)
}

func flushLocked(w *Work, f *Work) bool {
	if w.flags.Get()&(Queued|Running) == 0 {
		return false
	}
	q := w.queue
	blecore.Assert(q != nil, "work: busy without a queue")

	initFlusher(f)
	if w.flags.TestBit(queuedBit) {
		q.pending.InsertAfter(w, f)
	} else {
		q.pending.Prepend(f)
	}
	f.queue = q
	q.notifyLocked()
	return true
}

// Flush waits until the current queued or running instance of w has
// finished. It reports whether there was anything to wait for.
func (w *Work) Flush(s *Sync) bool {
	blecore.Assert(!w.isDelayable(), "work: Flush of delayable work, use Delayable.Flush")
	blecore.Assert(s != nil, "work: nil sync")

	coreLock()
	need := flushLocked(w, &s.flusher)
	coreUnlock()

	if need {
		_ = s.flusher.flushed.Take(osdep.Forever)
	}
	return need
}

func cancelAsyncLocked(w *Work) int {
	if !w.flags.TestBit(cancelingBit) {
		if w.flags.TestAndClearBit(queuedBit) {
			w.queue.pending.FindAndRemove(w)
		}
	}

	ret := w.busyLocked()
	if ret != 0 {
		w.flags.SetBit(cancelingBit)
		ret = w.busyLocked()
	}
	return ret
}

func cancelSyncLocked(w *Work, c *canceller) bool {
	if !w.flags.TestBit(cancelingBit) {
		return false
	}
	initCanceller(c, w)
	return true
}

// Cancel removes w from its queue. It returns the busy bits left, which
// are non-zero while the handler is still running.
func (w *Work) Cancel() int {
	blecore.Assert(!w.isDelayable(), "work: Cancel of delayable work, use Delayable.Cancel")
	coreLock()
	defer coreUnlock()
	return cancelAsyncLocked(w)
}

// CancelSync cancels w and waits for a running handler to return. It
// reports whether w was pending.
func (w *Work) CancelSync(s *Sync) bool {
	blecore.Assert(!w.isDelayable(), "work: CancelSync of delayable work, use Delayable.CancelSync")
	blecore.Assert(s != nil, "work: nil sync")

	coreLock()
	pending := w.busyLocked() != 0
	wait := false
	if pending {
		cancelAsyncLocked(w)
		wait = cancelSyncLocked(w, &s.canceller)
	}
	coreUnlock()

	if wait {
		_ = s.canceller.sem.Take(osdep.Forever)
	}
	return pending
}
