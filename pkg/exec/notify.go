package exec

// Notify is a wait list of tasks sharing one executor.
//
// Waiters subscribe on every Pending poll; NotifyAll wakes them all and
// empties the list. A stale subscription only causes a spurious poll.
type Notify struct {
	waiters Waker
}

// Subscribe adds the polling task to the wait list.
func (n *Notify) Subscribe(cx *Context) {
	w := cx.Waker()
	n.waiters.ex = w.ex
	n.waiters.mask |= w.mask
}

// NotifyAll wakes every subscribed task.
func (n *Notify) NotifyAll() {
	w := n.waiters
	n.waiters = Waker{}
	w.Wake()
}

// Until resolves once cond holds, checking it each time n is notified.
func (n *Notify) Until(cond func() bool) Task {
	return FutureFunc[struct{}](func(cx *Context) Result[struct{}] {
		if cond() {
			return Ready(struct{}{})
		}
		n.Subscribe(cx)
		return Pending[struct{}]()
	})
}
