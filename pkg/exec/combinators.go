package exec

type thenOp[A, B any] struct {
	first  Future[A]
	next   func(A) Future[B]
	second Future[B]
	err    error
}

// Then runs next with the value of f once f succeeded. An error from f
// is passed through without calling next.
func Then[A, B any](f Future[A], next func(A) Future[B]) Future[B] {
	return &thenOp[A, B]{first: f, next: next}
}

func (op *thenOp[A, B]) Poll(cx *Context) Result[B] {
	if op.err != nil {
		return Failed[B](op.err)
	}
	if op.second == nil {
		r := op.first.Poll(cx)
		if !r.Done {
			return Pending[B]()
		}
		if r.Err != nil {
			op.err = r.Err
			return Failed[B](r.Err)
		}
		op.second = op.next(r.Value)
	}
	return op.second.Poll(cx)
}

// Map converts the value of f with fn.
func Map[A, B any](f Future[A], fn func(A) B) Future[B] {
	return FutureFunc[B](func(cx *Context) Result[B] {
		r := f.Poll(cx)
		if !r.Done {
			return Pending[B]()
		}
		if r.Err != nil {
			return Failed[B](r.Err)
		}
		return Ready(fn(r.Value))
	})
}

// Discard drops the value of f.
func Discard[T any](f Future[T]) Task {
	return Map(f, func(T) struct{} { return struct{}{} })
}

// Value resolves immediately with v.
func Value[T any](v T) Future[T] {
	return FutureFunc[T](func(*Context) Result[T] { return Ready(v) })
}

// Fail resolves immediately with err.
func Fail[T any](err error) Future[T] {
	return FutureFunc[T](func(*Context) Result[T] { return Failed[T](err) })
}

// Do runs fn once on first poll and resolves with its error.
func Do(fn func() error) Task {
	var (
		done bool
		err  error
	)
	return FutureFunc[struct{}](func(*Context) Result[struct{}] {
		if !done {
			done, err = true, fn()
		}
		return Result[struct{}]{Done: true, Err: err}
	})
}

type seqOp struct {
	steps []Task
	cur   int
	err   error
}

// Seq runs tasks one after another and stops at the first failure.
func Seq(steps ...Task) Task {
	return &seqOp{steps: steps}
}

func (op *seqOp) Poll(cx *Context) Result[struct{}] {
	if op.err != nil {
		return Failed[struct{}](op.err)
	}
	for op.cur < len(op.steps) {
		r := op.steps[op.cur].Poll(cx)
		if !r.Done {
			return Pending[struct{}]()
		}
		if r.Err != nil {
			op.err = r.Err
			return Failed[struct{}](r.Err)
		}
		op.cur++
	}
	return Ready(struct{}{})
}

type loopOp struct {
	body func() Task
	cur  Task
	err  error
}

// Loop repeats the Task built by body forever. It only resolves when an
// iteration fails. A completed iteration yields to the other tasks
// before the next one starts.
func Loop(body func() Task) Task {
	return &loopOp{body: body}
}

func (op *loopOp) Poll(cx *Context) Result[struct{}] {
	if op.err != nil {
		return Failed[struct{}](op.err)
	}
	if op.cur == nil {
		op.cur = op.body()
	}
	r := op.cur.Poll(cx)
	if !r.Done {
		return Pending[struct{}]()
	}
	if r.Err != nil {
		op.err = r.Err
		return Failed[struct{}](r.Err)
	}
	op.cur = nil
	cx.WakeSelf()
	return Pending[struct{}]()
}
