// Package handoff provides a single-slot rendezvous between one
// producer task and one consumer task on the same executor.
package handoff

import (
	"errors"

	"github.com/robotalks/wonder.go/pkg/exec"
)

var (
	// ErrSplit is the panic value of a second Split.
	ErrSplit = errors.New("handoff already split")
	// ErrFull is returned by TryPush while the slot is occupied.
	ErrFull = errors.New("handoff full")
	// ErrEmpty is returned by TryPop while the slot is empty.
	ErrEmpty = errors.New("handoff empty")
)

// Handoff is a slot holding at most one value.
//
// All access happens on the executor goroutine, so the slot is checked
// and updated without synchronization.
type Handoff[T any] struct {
	value T
	full  bool
	split bool

	filled  exec.Notify
	emptied exec.Notify
}

// New creates an empty Handoff.
func New[T any]() *Handoff[T] {
	return &Handoff[T]{}
}

// Split returns the producer and consumer capabilities. It panics with
// ErrSplit when called again.
func (h *Handoff[T]) Split() (*Pusher[T], *Popper[T]) {
	if h.split {
		panic(ErrSplit)
	}
	h.split = true
	return &Pusher[T]{h: h}, &Popper[T]{h: h}
}

// Pusher is the producer side of a Handoff.
type Pusher[T any] struct {
	h *Handoff[T]
}

// Push stores v once the slot is empty and wakes the consumer.
func (p *Pusher[T]) Push(v T) exec.Task {
	done := false
	return exec.FutureFunc[struct{}](func(cx *exec.Context) exec.Result[struct{}] {
		if !done {
			if err := p.TryPush(v); err != nil {
				p.h.emptied.Subscribe(cx)
				return exec.Pending[struct{}]()
			}
			done = true
		}
		return exec.Ready(struct{}{})
	})
}

// TryPush stores v if the slot is empty.
func (p *Pusher[T]) TryPush(v T) error {
	h := p.h
	if h.full {
		return ErrFull
	}
	h.value, h.full = v, true
	h.filled.NotifyAll()
	return nil
}

// Popper is the consumer side of a Handoff.
type Popper[T any] struct {
	h *Handoff[T]
}

// Pop takes the value once the slot is full and wakes the producer.
func (p *Popper[T]) Pop() exec.Future[T] {
	var (
		done  bool
		value T
	)
	return exec.FutureFunc[T](func(cx *exec.Context) exec.Result[T] {
		if !done {
			v, err := p.TryPop()
			if err != nil {
				p.h.filled.Subscribe(cx)
				return exec.Pending[T]()
			}
			done, value = true, v
		}
		return exec.Ready(value)
	})
}

// TryPop takes the value if the slot is full.
func (p *Popper[T]) TryPop() (T, error) {
	h := p.h
	var zero T
	if !h.full {
		return zero, ErrEmpty
	}
	v := h.value
	h.value, h.full = zero, false
	h.emptied.NotifyAll()
	return v, nil
}
