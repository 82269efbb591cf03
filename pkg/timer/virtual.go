package timer

import (
	"container/heap"
	"time"
)

// Virtual is a discrete-event scheduler with a simulated clock. Time only
// advances through Step, RunFor and RunUntil. It is single-threaded.
type Virtual struct {
	now     time.Time
	seq     uint64
	queue   eventQueue
	pending int
}

type event struct {
	at        time.Time
	seq       uint64
	fn        func()
	fired     bool
	cancelled bool
	index     int
}

// NewVirtual creates a scheduler whose clock starts at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

// Now returns the simulated time.
func (v *Virtual) Now() time.Time {
	return v.now
}

// AfterFunc schedules fn at Now()+d. Negative delays are treated as zero.
func (v *Virtual) AfterFunc(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	v.seq++
	ev := &event{at: v.now.Add(d), seq: v.seq, fn: fn}
	heap.Push(&v.queue, ev)
	v.pending++
	return &virtualHandle{v: v, ev: ev}
}

// Post schedules fn at the current instant, after everything already due.
func (v *Virtual) Post(fn func()) {
	v.AfterFunc(0, fn)
}

// Pending returns the number of scheduled, uncancelled events.
func (v *Virtual) Pending() int {
	return v.pending
}

// NextAt returns the due time of the next event.
func (v *Virtual) NextAt() (time.Time, bool) {
	for v.queue.Len() > 0 {
		ev := v.queue[0]
		if !ev.cancelled {
			return ev.at, true
		}
		heap.Pop(&v.queue)
	}
	return time.Time{}, false
}

// Step runs the next event, advancing the clock to its due time. It returns
// false when nothing is scheduled.
func (v *Virtual) Step() bool {
	for v.queue.Len() > 0 {
		ev := heap.Pop(&v.queue).(*event)
		if ev.cancelled {
			continue
		}
		if ev.at.After(v.now) {
			v.now = ev.at
		}
		ev.fired = true
		v.pending--
		ev.fn()
		return true
	}
	return false
}

// RunUntil runs every event due at or before t, then sets the clock to t.
// It returns the number of events run.
func (v *Virtual) RunUntil(t time.Time) int {
	n := 0
	for {
		at, ok := v.NextAt()
		if !ok || at.After(t) {
			break
		}
		v.Step()
		n++
	}
	if t.After(v.now) {
		v.now = t
	}
	return n
}

// RunFor runs events for d of simulated time.
func (v *Virtual) RunFor(d time.Duration) int {
	return v.RunUntil(v.now.Add(d))
}

// Drain runs events until none remain or limit events have run.
func (v *Virtual) Drain(limit int) int {
	n := 0
	for n < limit && v.Step() {
		n++
	}
	return n
}

type virtualHandle struct {
	v  *Virtual
	ev *event
}

func (h *virtualHandle) Stop() bool {
	if h.ev.fired || h.ev.cancelled {
		return false
	}
	h.ev.cancelled = true
	h.v.pending--
	return true
}

// eventQueue orders events by due time, then by scheduling order.
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	ev := x.(*event)
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

// Compile-time interface satisfaction check.
var _ Executor = (*Virtual)(nil)
