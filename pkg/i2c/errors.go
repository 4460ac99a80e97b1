package i2c

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy indicates another transaction is open on the bus.
	ErrBusy = errors.New("i2c: transaction in progress")
	// ErrEmpty indicates a zero-length transfer.
	ErrEmpty = errors.New("i2c: empty transfer")
	// ErrTooLong indicates a transfer longer than one transaction allows.
	ErrTooLong = errors.New("i2c: transfer too long")
	// ErrNotHeld indicates a continuation of a transfer which didn't
	// complete with the bus held.
	ErrNotHeld = errors.New("i2c: bus not held")
)

// Fault is a communication fault reported by the controller.
type Fault int

// Faults.
const (
	// FaultArbitrationLost means another controller won the bus.
	FaultArbitrationLost Fault = iota + 1
	// FaultBusError means a misplaced start or stop condition.
	FaultBusError
	// FaultNack means the target didn't acknowledge.
	FaultNack
)

// Error implements error.
func (f Fault) Error() string {
	switch f {
	case FaultArbitrationLost:
		return "i2c: arbitration lost"
	case FaultBusError:
		return "i2c: bus error"
	case FaultNack:
		return "i2c: not acknowledged"
	}
	return fmt.Sprintf("i2c: fault %d", int(f))
}
