package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a real-time Executor. Posted functions and timer callbacks run on
// the goroutine that calls Run, one at a time, in arrival order.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
}

// NewLoop creates a loop. Call Run to start processing.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Now returns the wall clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Post queues fn. Functions posted after Run returned are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc schedules fn to be posted after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Handle {
	h := &loopHandle{}
	h.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if h.stopped.Load() {
				return
			}
			h.fired.Store(true)
			fn()
		})
	})
	return h
}

// Run processes reactions until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn()
		}

		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

type loopHandle struct {
	t       *time.Timer
	stopped atomic.Bool
	fired   atomic.Bool
}

func (h *loopHandle) Stop() bool {
	if h.fired.Load() {
		return false
	}
	wasStopped := h.stopped.Swap(true)
	h.t.Stop()
	return !wasStopped
}

// Compile-time interface satisfaction check.
var _ Executor = (*Loop)(nil)
