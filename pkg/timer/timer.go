package timer

import (
	"time"
)

// Handle cancels one scheduled callback.
type Handle interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was already stopped.
	Stop() bool
}

// Scheduler delivers a callback at or after a requested delay.
type Scheduler interface {
	// Now returns the scheduler's current time.
	Now() time.Time

	// AfterFunc schedules fn to run after d.
	AfterFunc(d time.Duration, fn func()) Handle
}

// Executor is a Scheduler that also runs posted reactions in order.
type Executor interface {
	Scheduler

	// Post queues fn to run as soon as possible.
	Post(fn func())
}

// Timer is a cancellable, re-armable single timeout. It is not safe for
// concurrent use; call it only from reactions of one Executor.
type Timer struct {
	sched    Scheduler
	name     string
	handle   Handle
	gen      uint64
	deadline time.Time
}

// New creates an unarmed timer.
func New(sched Scheduler, name string) *Timer {
	return &Timer{sched: sched, name: name}
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

// Arm schedules fn after d, discarding any previous schedule.
func (t *Timer) Arm(d time.Duration, fn func()) {
	t.Cancel()

	t.gen++
	gen := t.gen
	t.deadline = t.sched.Now().Add(d)
	t.handle = t.sched.AfterFunc(d, func() {
		if t.gen != gen || t.handle == nil {
			return
		}
		t.handle = nil
		fn()
	})
}

// Cancel discards the current schedule. It returns true if a callback was
// pending.
func (t *Timer) Cancel() bool {
	if t.handle == nil {
		return false
	}
	t.handle.Stop()
	t.handle = nil
	t.gen++
	return true
}

// Armed reports whether a callback is pending.
func (t *Timer) Armed() bool {
	return t.handle != nil
}

// Deadline returns when the pending callback is due.
func (t *Timer) Deadline() (time.Time, bool) {
	if t.handle == nil {
		return time.Time{}, false
	}
	return t.deadline, true
}
