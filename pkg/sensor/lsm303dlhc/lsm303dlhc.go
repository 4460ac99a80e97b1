// Package lsm303dlhc drives the magnetometer of an LSM303DLHC over I2C.
package lsm303dlhc

import (
	"encoding/binary"
	"fmt"

	"github.com/robotalks/wonder.go/pkg/exec"
	"github.com/robotalks/wonder.go/pkg/i2c"
)

// Addr is the I2C address of the magnetometer.
const Addr = 0x1e

const (
	regCRA    = 0x00
	regMR     = 0x02
	regOutXHi = 0x03

	// 15Hz output rate.
	rate15Hz = 0x08
	// continuous-conversion mode.
	modeContinuous = 0x00
)

// Error is a failed magnetometer operation.
type Error struct {
	Op  string
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("lsm303dlhc %s: %v", e.Op, e.Err)
}

// Unwrap returns the bus error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Orientation is a magnetic field reading.
type Orientation struct {
	X, Y, Z int16
}

// Device is the magnetometer.
type Device struct {
	bus *i2c.Bus
}

// New creates a Device on bus.
func New(bus *i2c.Bus) *Device {
	return &Device{bus: bus}
}

// Setup selects continuous conversion at 15Hz.
func (d *Device) Setup() exec.Task {
	return wrap("setup", exec.Seq(
		exec.Discard[int](d.bus.Write([]byte{regMR, modeContinuous}, false)),
		exec.Discard[int](d.bus.Write([]byte{regCRA, rate15Hz}, false)),
	))
}

// Orientation reads the field strength on all three axes.
func (d *Device) Orientation() exec.Future[Orientation] {
	op := d.bus.WriteRead([]byte{regOutXHi}, make([]byte, 6))
	return wrap("orientation", exec.Map[[]byte, Orientation](op, func(buf []byte) Orientation {
		// registers are ordered X, Z, Y.
		return Orientation{
			X: int16(binary.BigEndian.Uint16(buf[0:])),
			Z: int16(binary.BigEndian.Uint16(buf[2:])),
			Y: int16(binary.BigEndian.Uint16(buf[4:])),
		}
	}))
}

func wrap[T any](op string, f exec.Future[T]) exec.Future[T] {
	return exec.FutureFunc[T](func(cx *exec.Context) exec.Result[T] {
		r := f.Poll(cx)
		if r.Done && r.Err != nil {
			r.Err = &Error{Op: op, Err: r.Err}
		}
		return r
	})
}
