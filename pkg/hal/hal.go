// Package hal defines the peripheral capabilities consumed by the
// non-blocking bus adapters.
//
// Implementations are expected to be try-once: every method returns
// immediately and never waits for the hardware.
package hal

import "errors"

// ErrWouldBlock is returned by try-once primitives when the peripheral
// is not ready yet. It is never surfaced to callers of the adapters.
var ErrWouldBlock = errors.New("would block")

// FullDuplex is a byte-oriented bus which exchanges one byte per
// direction per attempt.
type FullDuplex interface {
	// TrySend attempts to put one byte on the bus.
	TrySend(b byte) error
	// TryReceive attempts to take one received byte.
	TryReceive() (byte, error)
}

// InputPin is a digital input.
type InputPin interface {
	Get() bool
}

// OutputPin is a digital output.
type OutputPin interface {
	Set(high bool)
}

// I2CDirection is the transfer direction of an I2C transaction.
type I2CDirection uint8

// I2C directions.
const (
	I2CWrite I2CDirection = iota
	I2CRead
)

func (d I2CDirection) String() string {
	if d == I2CRead {
		return "read"
	}
	return "write"
}

// StopMode selects whether the controller ends a transaction with a
// stop condition automatically.
type StopMode uint8

const (
	// AutoStop generates a stop condition after the last byte.
	AutoStop StopMode = iota
	// HoldBus keeps the bus after the last byte so a repeated start
	// can follow.
	HoldBus
)

// I2CStatus is the set of latched status flags of an I2C controller.
type I2CStatus uint32

// Status flags.
const (
	// I2CTxReady means the transmit data register is empty.
	I2CTxReady I2CStatus = 1 << iota
	// I2CRxReady means a byte has been received.
	I2CRxReady
	// I2CTransferComplete means a HoldBus transfer has finished and
	// the bus is held.
	I2CTransferComplete
	// I2CArbitrationLost is latched when another controller won the bus.
	I2CArbitrationLost
	// I2CBusError is latched on a misplaced start/stop condition.
	I2CBusError
	// I2CNack is latched when the target did not acknowledge.
	I2CNack
	// I2CStop is latched when a stop condition has been completed.
	I2CStop
)

// Has tests whether all flags in f are set.
func (s I2CStatus) Has(f I2CStatus) bool {
	return s&f == f
}

// I2CController is the register-level surface of a multi-byte bus
// controller with byte-level status flags.
type I2CController interface {
	// Start programs address, direction, byte count (at most 255) and
	// stop mode, then issues a (repeated) start condition.
	Start(addr uint8, dir I2CDirection, n int, mode StopMode)
	// Status reads the status flags.
	Status() I2CStatus
	// Transmit writes the next byte to send.
	Transmit(b byte)
	// Receive reads the last received byte.
	Receive() byte
	// Clear clears the latched flags in f.
	Clear(f I2CStatus)
	// Stop issues a stop condition on a held bus.
	Stop()
}

// MaxI2CTransfer is the maximum number of bytes in one transaction.
const MaxI2CTransfer = 255
