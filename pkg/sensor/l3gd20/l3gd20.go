// Package l3gd20 drives an L3GD20 gyroscope over a byte bus.
package l3gd20

import (
	"encoding/binary"

	"github.com/robotalks/wonder.go/pkg/exec"
	"github.com/robotalks/wonder.go/pkg/hal"
	"github.com/robotalks/wonder.go/pkg/spi"
)

const (
	// bit 7 read, bit 6 auto-increment, from CTRL_REG1.
	cmdReadBlock  = 0xe0
	cmdWriteCtrl1 = 0x20
	// power on, X/Y/Z enabled.
	ctrl1Enable = 0x0f

	blockLen = 14
)

// Sample is one reading of angular rates and temperature.
type Sample struct {
	X, Y, Z int16
	Temp    int8
}

// Device is an L3GD20 with an active-low chip select.
type Device struct {
	bus *spi.Bus
	cs  hal.OutputPin
}

// New creates a Device. The chip select is released.
func New(bus *spi.Bus, cs hal.OutputPin) *Device {
	cs.Set(true)
	return &Device{bus: bus, cs: cs}
}

// Enable powers on the sensor with all axes enabled.
func (d *Device) Enable() exec.Task {
	return exec.Discard(selected[[]byte](d.cs, d.bus.Transfer([]byte{cmdWriteCtrl1, ctrl1Enable})))
}

// ReadValues reads the output registers in one burst.
func (d *Device) ReadValues() exec.Future[Sample] {
	buf := make([]byte, blockLen)
	return selected(d.cs, exec.Then[struct{}, Sample](d.bus.Write(cmdReadBlock), func(struct{}) exec.Future[Sample] {
		return exec.Then[byte, Sample](d.bus.Read(), func(byte) exec.Future[Sample] {
			return exec.Map[[]byte, Sample](d.bus.Transfer(buf), decode)
		})
	}))
}

// decode reads a block starting at CTRL_REG1: OUT_TEMP at 6, then
// OUT_X_L..OUT_Z_H at 8.
func decode(buf []byte) Sample {
	return Sample{
		X:    int16(binary.LittleEndian.Uint16(buf[8:])),
		Y:    int16(binary.LittleEndian.Uint16(buf[10:])),
		Z:    int16(binary.LittleEndian.Uint16(buf[12:])),
		Temp: int8(buf[6]),
	}
}

// selected asserts cs while f runs and releases it when f resolves,
// successfully or not.
func selected[T any](cs hal.OutputPin, f exec.Future[T]) exec.Future[T] {
	asserted := false
	return exec.FutureFunc[T](func(cx *exec.Context) exec.Result[T] {
		if !asserted {
			cs.Set(false)
			asserted = true
		}
		r := f.Poll(cx)
		if r.Done {
			cs.Set(true)
		}
		return r
	})
}
