package work

import (
	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

// Delayable is a work item submitted once its timer expires.
type Delayable struct {
	Work
	timer osdep.Timer
	queue *Queue
}

// NewDelayable returns a delayable work item running h.
func NewDelayable(h Handler) (*Delayable, error) {
	d := &Delayable{}
	if err := d.Init(h); err != nil {
		return nil, err
	}
	return d, nil
}

// Init prepares an idle delayable work item and creates its timer.
func (d *Delayable) Init(h Handler) error {
	d.Work.Init(h)
	d.Work.flags.SetBit(delayableBit)
	d.Work.dw = d
	d.queue = nil

	if d.timer != nil {
		_ = d.timer.Delete()
	}
	t, err := osdep.NewTimer(workTimeout, d)
	if err != nil {
		return blecore.WrapErr(err, blecore.ENOMEM, "work.InitDelayable")
	}
	d.timer = t
	return nil
}

// Release deletes the timer of an idle delayable.
func (d *Delayable) Release() error {
	if d.timer == nil {
		return nil
	}
	err := d.timer.Delete()
	d.timer = nil
	return err
}

// FromWork returns the delayable embedding w, or nil.
func FromWork(w *Work) *Delayable {
	return w.dw
}

func workTimeout(_ osdep.Timer, arg interface{}) {
	d := arg.(*Delayable)

	coreLock()
	defer coreUnlock()

	// a timer re-armed after this expiry fires again later
	if d.timer.RemainingMs() > 0 {
		return
	}

	// no notice is given when the submission fails
	if d.Work.flags.TestAndClearBit(delayedBit) {
		q := d.queue
		if _, err := submitLocked(&d.Work, &q); err != nil {
			log.Debugf("delayed submit dropped: %v", err)
		}
	}
}

func (d *Delayable) BusyGet() int {
	return d.Work.BusyGet()
}

func (d *Delayable) IsPending() bool {
	return d.BusyGet() != 0
}

// RemainingGet returns the milliseconds left before the timer fires.
func (d *Delayable) RemainingGet() uint64 {
	return d.timer.RemainingMs()
}

// ExpiresGet returns the clock value at which the timer fires, or 0 when
// it is not armed.
func (d *Delayable) ExpiresGet() uint64 {
	rem := d.timer.RemainingMs()
	if rem == 0 {
		return 0
	}
	return osdep.NowMs() + rem
}

func scheduleLocked(qp **Queue, d *Delayable, delay osdep.Timeout) (int, error) {
	w := &d.Work
	if delay.IsNoWait() {
		return submitLocked(w, qp)
	}

	w.flags.SetBit(delayedBit)
	d.queue = *qp

	// a forever delay stays pending until cancelled
	if delay.IsForever() {
		return 1, nil
	}
	if err := d.timer.Start(uint32(delay)); err != nil {
		w.flags.ClearBit(delayedBit)
		return 0, blecore.WrapErr(err, blecore.EINVAL, "work.Schedule")
	}
	return 1, nil
}

// unscheduleLocked stops the timer. It reports false when the timer had
// already fired.
func unscheduleLocked(d *Delayable) bool {
	if !d.Work.flags.TestAndClearBit(delayedBit) {
		return false
	}
	return d.timer.Stop() == nil
}

// Schedule submits d to q after delay unless it is already scheduled or
// queued. It returns 0 when nothing was done.
func (q *Queue) Schedule(d *Delayable, delay osdep.Timeout) (int, error) {
	blecore.Assert(q != nil && d != nil, "work: schedule with nil queue or work")

	coreLock()
	defer coreUnlock()
	if d.Work.busyLocked()&^Running != 0 {
		return 0, nil
	}
	return scheduleLocked(&q, d, delay)
}

// Reschedule moves the deadline of d to delay from now, scheduling it if
// needed.
func (q *Queue) Reschedule(d *Delayable, delay osdep.Timeout) (int, error) {
	blecore.Assert(q != nil && d != nil, "work: reschedule with nil queue or work")

	coreLock()
	defer coreUnlock()
	unscheduleLocked(d)
	return scheduleLocked(&q, d, delay)
}

// Schedule schedules d on the main queue.
func Schedule(d *Delayable, delay osdep.Timeout) (int, error) {
	return Main().Schedule(d, delay)
}

// Reschedule reschedules d on the main queue.
func Reschedule(d *Delayable, delay osdep.Timeout) (int, error) {
	return Main().Reschedule(d, delay)
}

func cancelDelayableLocked(d *Delayable) int {
	unscheduleLocked(d)
	return cancelAsyncLocked(&d.Work)
}

// Cancel stops the timer and removes d from its queue. It returns the
// busy bits left.
func (d *Delayable) Cancel() int {
	coreLock()
	defer coreUnlock()
	return cancelDelayableLocked(d)
}

// CancelSync cancels d and waits for a running handler. It reports whether
// d was pending.
func (d *Delayable) CancelSync(s *Sync) bool {
	blecore.Assert(s != nil, "work: nil sync")

	coreLock()
	pending := d.Work.busyLocked() != 0
	wait := false
	if pending {
		cancelDelayableLocked(d)
		wait = cancelSyncLocked(&d.Work, &s.canceller)
	}
	coreUnlock()

	if wait {
		_ = s.canceller.sem.Take(osdep.Forever)
	}
	return pending
}

// Flush submits a scheduled d at once and waits for it to finish. It
// reports whether there was anything to wait for.
func (d *Delayable) Flush(s *Sync) bool {
	blecore.Assert(s != nil, "work: nil sync")
	w := &d.Work

	coreLock()
	if w.busyLocked() == 0 {
		coreUnlock()
		return false
	}

	if unscheduleLocked(d) {
		q := d.queue
		_, _ = submitLocked(w, &q)
	}

	need := flushLocked(w, &s.flusher)
	coreUnlock()

	if need {
		_ = s.flusher.flushed.Take(osdep.Forever)
	}
	return need
}
