// Package button provides a digital push button with press debouncing.
package button

import (
	"errors"
	"time"

	"github.com/robotalks/wonder.go/pkg/exec"
	"github.com/robotalks/wonder.go/pkg/hal"
)

// DefaultDebounceTimeout is how long a press must be held to count.
const DefaultDebounceTimeout = 200 * time.Millisecond

// Polarity is the pin level of a pressed button.
type Polarity int

// Polarities.
const (
	ActiveHigh Polarity = iota
	ActiveLow
)

// Button is a push button on an input pin.
type Button struct {
	pin      hal.InputPin
	polarity Polarity
}

// New creates a Button.
func New(pin hal.InputPin, polarity Polarity) *Button {
	return &Button{pin: pin, polarity: polarity}
}

// IsPressed samples the pin.
func (b *Button) IsPressed() bool {
	return b.pin.Get() == (b.polarity == ActiveHigh)
}

// WaitForPress resolves once the button reads pressed.
func (b *Button) WaitForPress() exec.Task {
	return b.waitFor(true)
}

// WaitForRelease resolves once the button reads released.
func (b *Button) WaitForRelease() exec.Task {
	return b.waitFor(false)
}

func (b *Button) waitFor(pressed bool) exec.Task {
	return exec.FutureFunc[struct{}](func(cx *exec.Context) exec.Result[struct{}] {
		if b.IsPressed() == pressed {
			return exec.Ready(struct{}{})
		}
		cx.WakeSelf()
		return exec.Pending[struct{}]()
	})
}

type debounceState int

const (
	debounceWaitPress debounceState = iota
	debounceRacing
	debounceDone
)

// DebounceOp waits for a press and tells whether it lasted.
type DebounceOp struct {
	button  *Button
	timeout time.Duration
	state   debounceState
	race    *exec.TimeoutOp[struct{}]
	valid   bool
}

// DebouncedPress waits for a press, then races its release against
// timeout. It resolves true when the button is still pressed at the
// timeout, false when it was released first. A release observed in the
// same round as the timeout counts as released first.
func DebouncedPress(b *Button, timeout time.Duration) *DebounceOp {
	return &DebounceOp{button: b, timeout: timeout}
}

// Poll implements exec.Future.
func (op *DebounceOp) Poll(cx *exec.Context) exec.Result[bool] {
	switch op.state {
	case debounceWaitPress:
		if !op.button.IsPressed() {
			cx.WakeSelf()
			return exec.Pending[bool]()
		}
		op.race = exec.WithTimeout(op.timeout, op.button.WaitForRelease())
		op.state = debounceRacing
		fallthrough
	case debounceRacing:
		r := op.race.Poll(cx)
		if !r.Done {
			return exec.Pending[bool]()
		}
		op.valid = errors.Is(r.Err, exec.ErrTimeout)
		op.state, op.race = debounceDone, nil
	}
	return exec.Ready(op.valid)
}
