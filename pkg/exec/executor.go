package exec

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
)

// MaxTasks is the number of tasks an Executor can hold, one bit each
// in the wake mask.
const MaxTasks = 64

// AllTasks is the wake mask selecting every task.
const AllTasks = ^uint64(0)

var (
	// ErrTooManyTasks is the panic value of Add beyond MaxTasks.
	ErrTooManyTasks = errors.New("too many tasks")
	// ErrTimeout is returned by WithTimeout when the deadline wins.
	ErrTimeout = errors.New("timeout")
)

type taskEntry struct {
	name     string
	fut      Task
	done     bool
	err      error
	deadline time.Time
	polls    int
}

// Executor polls a fixed set of tasks cooperatively on one goroutine.
//
// Each task owns one bit of the wake mask. A round snapshots and clears
// the mask, then polls every task whose bit was set in registration
// order. Wake-ups requested during a round take effect in the next one.
type Executor struct {
	Clock clock.Clock
	// PollInterval is the minimum duration of a round which was scheduled
	// only by wake-ups. Zero means busy rounds run back to back.
	PollInterval time.Duration

	tasks     []*taskEntry
	mask      uint64
	now       time.Time
	remaining int
	rounds    int

	lock     sync.Mutex
	external uint64
	wakeUpCh chan struct{}
}

// New creates an Executor using clk as time source, nil for wall time.
func New(clk clock.Clock) *Executor {
	if clk == nil {
		clk = clock.New()
	}
	return &Executor{
		Clock:    clk,
		mask:     AllTasks,
		wakeUpCh: make(chan struct{}, 1),
	}
}

// Add registers a task. It panics with ErrTooManyTasks when MaxTasks
// tasks are already registered.
func (e *Executor) Add(name string, task Task) *Executor {
	if len(e.tasks) >= MaxTasks {
		panic(ErrTooManyTasks)
	}
	e.tasks = append(e.tasks, &taskEntry{name: name, fut: task})
	e.remaining++
	return e
}

// Wake marks the tasks in mask runnable. It is safe to call from other
// goroutines.
func (e *Executor) Wake(mask uint64) {
	e.lock.Lock()
	e.external |= mask
	e.lock.Unlock()
	select {
	case e.wakeUpCh <- struct{}{}:
	default:
	}
}

// Step runs one round and reports whether any task was polled.
func (e *Executor) Step() bool {
	e.now = e.Clock.Now()
	e.lock.Lock()
	e.rounds++
	e.mask |= e.external
	e.external = 0
	e.lock.Unlock()
	for i, t := range e.tasks {
		if !t.done && !t.deadline.IsZero() && !e.now.Before(t.deadline) {
			e.mask |= taskBit(i)
		}
	}

	mask := e.mask
	e.mask = 0
	polled := false
	for i, t := range e.tasks {
		if mask&taskBit(i) == 0 || t.done {
			continue
		}
		polled = true
		t.deadline = time.Time{}
		e.lock.Lock()
		t.polls++
		e.lock.Unlock()
		cx := Context{ex: e, task: i}
		r := t.fut.Poll(&cx)
		if !r.Done {
			continue
		}
		e.lock.Lock()
		t.done, t.err = true, r.Err
		e.lock.Unlock()
		t.deadline = time.Time{}
		e.remaining--
		if r.Err != nil {
			glog.Errorf("task[%s] failed: %v", t.name, r.Err)
		} else {
			glog.V(2).Infof("task[%s] completed", t.name)
		}
	}
	return polled
}

// Run runs rounds until every task completed or ctx is done. Between
// rounds it idles until the earliest timer, an external Wake, or a
// pending wake-up.
func (e *Executor) Run(ctx context.Context) error {
	for e.remaining > 0 {
		start := e.Clock.Now()
		e.Step()
		if e.remaining == 0 {
			break
		}

		var wait time.Duration
		switch {
		case e.mask != 0:
			if wait = e.PollInterval - e.Clock.Since(start); wait < 0 {
				wait = 0
			}
		default:
			deadline, ok := e.nextDeadline()
			if !ok {
				wait = -1
			} else if wait = deadline.Sub(e.Clock.Now()); wait <= 0 {
				wait = 0
			}
		}
		if err := e.idle(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

// RunOrFail is intended to be used in main to simply run the executor.
func (e *Executor) RunOrFail() {
	if err := e.Run(context.Background()); err != nil {
		glog.Fatalln(err)
	}
}

// idle waits for d, forever when d is negative.
func (e *Executor) idle(ctx context.Context, d time.Duration) error {
	if d == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	var timeCh <-chan time.Time
	if d > 0 {
		timer := e.Clock.Timer(d)
		defer timer.Stop()
		timeCh = timer.C
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timeCh:
	case <-e.wakeUpCh:
	}
	return nil
}

func (e *Executor) nextDeadline() (deadline time.Time, ok bool) {
	for _, t := range e.tasks {
		if t.done || t.deadline.IsZero() {
			continue
		}
		if !ok || t.deadline.Before(deadline) {
			deadline, ok = t.deadline, true
		}
	}
	return
}

// Done tells whether every task has completed.
func (e *Executor) Done() bool {
	return e.remaining == 0
}

// Rounds returns the number of rounds run so far.
func (e *Executor) Rounds() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.rounds
}

// TaskStatus describes a task for diagnostics.
type TaskStatus struct {
	Name  string
	Done  bool
	Err   error
	Polls int
}

// Tasks returns the status of every task in registration order. It's
// safe to call while the executor runs, once all tasks are added.
func (e *Executor) Tasks() []TaskStatus {
	e.lock.Lock()
	defer e.lock.Unlock()
	st := make([]TaskStatus, len(e.tasks))
	for i, t := range e.tasks {
		st[i] = TaskStatus{Name: t.name, Done: t.done, Err: t.err, Polls: t.polls}
	}
	return st
}

func taskBit(i int) uint64 {
	return uint64(1) << uint(i)
}

// Context is handed to Future.Poll and identifies the polling task.
type Context struct {
	ex   *Executor
	task int
}

// Now returns the time sampled at the start of the current round.
func (cx *Context) Now() time.Time {
	return cx.ex.now
}

// Waker returns a Waker for the polling task.
func (cx *Context) Waker() Waker {
	return Waker{ex: cx.ex, mask: taskBit(cx.task)}
}

// WakeSelf schedules the polling task for the next round. Operations
// busy-polling hardware use it when they return Pending.
func (cx *Context) WakeSelf() {
	cx.ex.mask |= taskBit(cx.task)
}

// WakeAt schedules the polling task for the first round at or after t.
func (cx *Context) WakeAt(t time.Time) {
	entry := cx.ex.tasks[cx.task]
	if entry.deadline.IsZero() || t.Before(entry.deadline) {
		entry.deadline = t
	}
}

// TaskName returns the name of the polling task.
func (cx *Context) TaskName() string {
	return cx.ex.tasks[cx.task].name
}

// Waker marks a set of tasks runnable. It must only be used on the
// executor's goroutine, use Executor.Wake elsewhere.
type Waker struct {
	ex   *Executor
	mask uint64
}

// Wake marks the tasks runnable.
func (w Waker) Wake() {
	if w.ex != nil {
		w.ex.mask |= w.mask
	}
}

// Handle records the outcome of a Future spawned as a task.
type Handle[T any] struct {
	fut    Future[T]
	result Result[T]
	polls  int
}

// Spawn adds f as a task of e and returns a Handle to its outcome.
func Spawn[T any](e *Executor, name string, f Future[T]) *Handle[T] {
	h := &Handle[T]{fut: f}
	e.Add(name, h)
	return h
}

// Poll implements Future.
func (h *Handle[T]) Poll(cx *Context) Result[struct{}] {
	if h.result.Done {
		return Ready(struct{}{})
	}
	h.polls++
	h.result = h.fut.Poll(cx)
	if !h.result.Done {
		return Pending[struct{}]()
	}
	return Result[struct{}]{Done: true, Err: h.result.Err}
}

// Done tells whether the Future resolved.
func (h *Handle[T]) Done() bool {
	return h.result.Done
}

// Result returns the latest poll result.
func (h *Handle[T]) Result() Result[T] {
	return h.result
}

// Polls returns how many times the Future was polled.
func (h *Handle[T]) Polls() int {
	return h.polls
}
