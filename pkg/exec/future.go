package exec

// Result is the outcome of polling a Future once.
type Result[T any] struct {
	// Done is false while the operation is still in progress.
	Done  bool
	Value T
	Err   error
}

// Pending is the result of an operation which can't progress yet.
func Pending[T any]() Result[T] {
	return Result[T]{}
}

// Ready is the result of a successfully completed operation.
func Ready[T any](v T) Result[T] {
	return Result[T]{Done: true, Value: v}
}

// Failed is the result of a failed operation.
func Failed[T any](err error) Result[T] {
	return Result[T]{Done: true, Err: err}
}

// Ok tells whether the operation completed without an error.
func (r Result[T]) Ok() bool {
	return r.Done && r.Err == nil
}

// Future is an operation that progresses only when polled.
//
// Poll never waits. A Pending result must be accompanied by a wake-up
// registration on cx (WakeSelf, WakeAt, or a Notify subscription),
// otherwise the task is never polled again. Once a Future resolved,
// further polls keep returning the same outcome.
type Future[T any] interface {
	Poll(cx *Context) Result[T]
}

// FutureFunc is the func form of Future.
type FutureFunc[T any] func(cx *Context) Result[T]

// Poll implements Future.
func (f FutureFunc[T]) Poll(cx *Context) Result[T] {
	return f(cx)
}

// Task is the top level Future run by an Executor.
type Task = Future[struct{}]
