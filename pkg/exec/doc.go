// Package exec provides a single-threaded cooperative executor and the
// poll-based Future model used by the bus adapters.
//
// There are no coroutines: every suspendable operation is an explicit
// state machine implementing Future. The executor only polls a task
// after its wake bit was set, by the task itself (busy-polling), by a
// timer, by a Notify, or by Executor.Wake from another goroutine.
package exec
