package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

func TestVirtualOrdersByTimeThenFIFO(t *testing.T) {
	v := NewVirtual(epoch)
	var got []string

	v.AfterFunc(2*time.Millisecond, func() { got = append(got, "b") })
	v.AfterFunc(time.Millisecond, func() { got = append(got, "a") })
	v.AfterFunc(2*time.Millisecond, func() { got = append(got, "c") })
	v.Post(func() { got = append(got, "now") })

	assert.Equal(t, 4, v.Drain(100))
	assert.Equal(t, []string{"now", "a", "b", "c"}, got)
	assert.Equal(t, epoch.Add(2*time.Millisecond), v.Now())
}

func TestVirtualRunUntil(t *testing.T) {
	v := NewVirtual(epoch)
	fired := 0
	v.AfterFunc(time.Second, func() { fired++ })
	v.AfterFunc(3*time.Second, func() { fired++ })

	n := v.RunFor(2 * time.Second)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, fired)
	assert.Equal(t, epoch.Add(2*time.Second), v.Now())
	assert.Equal(t, 1, v.Pending())

	v.RunFor(time.Second)
	assert.Equal(t, 2, fired)
	assert.Equal(t, 0, v.Pending())
}

func TestVirtualEventsScheduledDuringRun(t *testing.T) {
	v := NewVirtual(epoch)
	var got []time.Duration
	v.AfterFunc(time.Second, func() {
		got = append(got, v.Now().Sub(epoch))
		v.AfterFunc(time.Second, func() {
			got = append(got, v.Now().Sub(epoch))
		})
	})

	v.RunFor(5 * time.Second)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, got)
}

func TestVirtualHandleStop(t *testing.T) {
	v := NewVirtual(epoch)
	fired := false
	h := v.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, h.Stop())
	assert.False(t, h.Stop())
	assert.Equal(t, 0, v.Pending())

	v.RunFor(2 * time.Second)
	assert.False(t, fired)

	h2 := v.AfterFunc(0, func() {})
	v.Step()
	assert.False(t, h2.Stop(), "stop after fire")
}

func TestVirtualNegativeDelay(t *testing.T) {
	v := NewVirtual(epoch)
	v.AfterFunc(-time.Second, func() {})
	at, ok := v.NextAt()
	require.True(t, ok)
	assert.Equal(t, epoch, at)
}

func TestTimerRearmDiscardsPrevious(t *testing.T) {
	v := NewVirtual(epoch)
	tm := New(v, "timeout")
	var got []string

	tm.Arm(time.Second, func() { got = append(got, "first") })
	tm.Arm(2*time.Second, func() { got = append(got, "second") })

	deadline, ok := tm.Deadline()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(2*time.Second), deadline)

	v.RunFor(3 * time.Second)
	assert.Equal(t, []string{"second"}, got)
	assert.False(t, tm.Armed())
}

func TestTimerCancel(t *testing.T) {
	v := NewVirtual(epoch)
	tm := New(v, "retry")
	fired := false

	assert.False(t, tm.Cancel())
	tm.Arm(time.Second, func() { fired = true })
	assert.True(t, tm.Armed())
	assert.True(t, tm.Cancel())
	assert.False(t, tm.Armed())

	v.RunFor(2 * time.Second)
	assert.False(t, fired)
	assert.Equal(t, "retry", tm.Name())
}

func TestTimerCancelInsideSameInstant(t *testing.T) {
	// Two events due at the same instant: the first cancels the second.
	v := NewVirtual(epoch)
	tm := New(v, "timeout")
	fired := false

	v.AfterFunc(time.Second, func() { tm.Cancel() })
	tm.Arm(time.Second, func() { fired = true })

	v.RunFor(time.Second)
	assert.False(t, fired)
}

// staleScheduler never drops callbacks, so a Timer must guard against them.
type staleScheduler struct {
	*Virtual
}

type noStop struct{}

func (noStop) Stop() bool { return false }

func (s staleScheduler) AfterFunc(d time.Duration, fn func()) Handle {
	s.Virtual.AfterFunc(d, fn)
	return noStop{}
}

func TestTimerIgnoresStaleCallback(t *testing.T) {
	v := NewVirtual(epoch)
	tm := New(staleScheduler{v}, "timeout")
	count := 0

	tm.Arm(time.Second, func() { count++ })
	tm.Cancel()
	tm.Arm(2*time.Second, func() { count += 10 })

	v.RunFor(3 * time.Second)
	assert.Equal(t, 10, count)
}

func TestLoopSerializesInOrder(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var mu sync.Mutex
	var got []int
	finished := make(chan struct{})
	for i := 0; i < 10; i++ {
		l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 9 {
				close(finished)
			}
		})
	}

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not run posted functions")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestLoopAfterFunc(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestLoopStoppedHandleDoesNotFire(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	fired := make(chan struct{}, 1)
	h := l.AfterFunc(20*time.Millisecond, func() { fired <- struct{}{} })
	assert.True(t, h.Stop())
	assert.False(t, h.Stop())

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLoopPostFromReaction(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	done := make(chan struct{})
	l.Post(func() {
		l.Post(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested post did not run")
	}
}
