// Package sched provides a shared scheduler for recurring animation
// ticks. Callbacks fire on background goroutines; cancellation is
// non-blocking and tolerates one already-dispatched invocation, so
// callers must re-validate their own state inside the callback.
package sched

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Schedule after the scheduler has shut down.
var ErrClosed = errors.New("sched: scheduler closed")

// Task is a cancellable recurring callback registration.
type Task interface {
	// Cancel stops future invocations. It does not wait: one invocation
	// already in flight may still complete after Cancel returns, but it
	// will observe the cancelled token and any state the caller guards.
	Cancel()
}

// Scheduler owns the shared tick facility. The zero value is not usable;
// call New.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[*task]struct{}
	closed bool
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{tasks: make(map[*task]struct{})}
}

type task struct {
	sched     *Scheduler
	stop      chan struct{}
	cancelled atomic.Bool
	stopOnce  sync.Once
}

// Schedule registers fn to run every interval until the returned Task is
// cancelled or the scheduler closes. fn must not block.
func (s *Scheduler) Schedule(interval time.Duration, fn func()) (Task, error) {
	if interval <= 0 {
		return nil, errors.New("sched: interval must be positive")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	t := &task{sched: s, stop: make(chan struct{})}
	s.tasks[t] = struct{}{}
	s.mu.Unlock()

	go t.loop(interval, fn)
	return t, nil
}

func (t *task) loop(interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			// A cancel racing this dispatch is allowed to lose: fn is
			// required to re-check its own liveness. The token check here
			// only trims the common case.
			if t.cancelled.Load() {
				return
			}
			fn()
		}
	}
}

// Cancel implements Task.
func (t *task) Cancel() {
	// Invalidate the token before releasing the loop so a concurrent
	// dispatch observes it.
	t.cancelled.Store(true)
	t.stopOnce.Do(func() { close(t.stop) })

	t.sched.mu.Lock()
	delete(t.sched.tasks, t)
	t.sched.mu.Unlock()
}

// Close cancels every outstanding task and rejects further Schedule
// calls. Idempotent.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := make([]*task, 0, len(s.tasks))
	for t := range s.tasks {
		pending = append(pending, t)
	}
	s.tasks = make(map[*task]struct{})
	s.mu.Unlock()

	for _, t := range pending {
		t.cancelled.Store(true)
		t.stopOnce.Do(func() { close(t.stop) })
	}
}

// Len reports the number of live tasks. Used by shutdown diagnostics and
// tests.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
