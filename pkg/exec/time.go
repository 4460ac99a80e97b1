package exec

import "time"

// SleepOp resolves once its deadline has passed.
type SleepOp struct {
	d        time.Duration
	deadline time.Time
	armed    bool
}

// Sleep resolves d after its first poll.
func Sleep(d time.Duration) *SleepOp {
	return &SleepOp{d: d}
}

// SleepUntil resolves at or after t.
func SleepUntil(t time.Time) *SleepOp {
	return &SleepOp{deadline: t, armed: true}
}

// Poll implements Future.
func (op *SleepOp) Poll(cx *Context) Result[struct{}] {
	if !op.armed {
		op.deadline, op.armed = cx.Now().Add(op.d), true
	}
	if !cx.Now().Before(op.deadline) {
		return Ready(struct{}{})
	}
	cx.WakeAt(op.deadline)
	return Pending[struct{}]()
}

// Yield returns Pending once so other runnable tasks get polled.
func Yield() Task {
	yielded := false
	return FutureFunc[struct{}](func(cx *Context) Result[struct{}] {
		if yielded {
			return Ready(struct{}{})
		}
		yielded = true
		cx.WakeSelf()
		return Pending[struct{}]()
	})
}

// TimeoutOp races a Future against a deadline.
type TimeoutOp[T any] struct {
	inner    Future[T]
	d        time.Duration
	deadline time.Time
	armed    bool
	result   Result[T]
}

// WithTimeout races f against a deadline d after the first poll.
//
// f is polled before the deadline is checked in every poll, so when
// both are ready in the same round f wins. When the deadline wins the
// operation fails with ErrTimeout and f is never polled again.
func WithTimeout[T any](d time.Duration, f Future[T]) *TimeoutOp[T] {
	return &TimeoutOp[T]{inner: f, d: d}
}

// Poll implements Future.
func (op *TimeoutOp[T]) Poll(cx *Context) Result[T] {
	if op.result.Done {
		return op.result
	}
	if !op.armed {
		op.deadline, op.armed = cx.Now().Add(op.d), true
	}
	if r := op.inner.Poll(cx); r.Done {
		op.result = r
		return r
	}
	if !cx.Now().Before(op.deadline) {
		op.result = Failed[T](ErrTimeout)
		return op.result
	}
	cx.WakeAt(op.deadline)
	return Pending[T]()
}
