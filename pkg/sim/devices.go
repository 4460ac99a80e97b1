package sim

import (
	"encoding/binary"
	"sync"
)

// Gyro models an L3GD20 style gyroscope on a byte bus. The first byte
// after select is a command: bit 7 read, bit 6 auto-increment, bits 5-0
// register address.
type Gyro struct {
	regs     [64]byte
	selected bool
	command  bool
	read     bool
	incr     bool
	addr     byte
	lock     sync.Mutex
}

// NewGyro creates a gyroscope model.
func NewGyro() *Gyro {
	g := &Gyro{}
	g.regs[0x0f] = 0xd4
	return g
}

// Select asserts or releases chip select.
func (g *Gyro) Select(active bool) {
	g.lock.Lock()
	g.selected, g.command = active, active
	g.lock.Unlock()
}

// ChipSelect returns a pin wired to the active-low chip select.
func (g *Gyro) ChipSelect() *Pin {
	return NewPin(true).OnChange(func(high bool) { g.Select(!high) })
}

// Exchange implements SPIDevice.
func (g *Gyro) Exchange(out byte) byte {
	g.lock.Lock()
	defer g.lock.Unlock()
	if !g.selected {
		return 0xff
	}
	if g.command {
		g.command = false
		g.read, g.incr, g.addr = out&0x80 != 0, out&0x40 != 0, out&0x3f
		return 0
	}
	var in byte
	if g.read {
		in = g.regs[g.addr]
	} else {
		g.regs[g.addr] = out
	}
	if g.incr {
		g.addr = (g.addr + 1) & 0x3f
	}
	return in
}

// SetRates stores angular rates in the output registers.
func (g *Gyro) SetRates(x, y, z int16) {
	g.lock.Lock()
	binary.LittleEndian.PutUint16(g.regs[0x28:], uint16(x))
	binary.LittleEndian.PutUint16(g.regs[0x2a:], uint16(y))
	binary.LittleEndian.PutUint16(g.regs[0x2c:], uint16(z))
	g.lock.Unlock()
}

// SetTemperature stores the temperature register.
func (g *Gyro) SetTemperature(t int8) {
	g.lock.Lock()
	g.regs[0x26] = byte(t)
	g.lock.Unlock()
}

// Register reads a register.
func (g *Gyro) Register(addr byte) byte {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.regs[addr&0x3f]
}

// Enabled tells whether power and all three axes are switched on.
func (g *Gyro) Enabled() bool {
	return g.Register(0x20)&0x0f == 0x0f
}

// Magnetometer models the magnetic part of an LSM303DLHC.
type Magnetometer struct {
	Registers
}

// NewMagnetometer creates a magnetometer model in sleep mode.
func NewMagnetometer() *Magnetometer {
	m := &Magnetometer{}
	m.Set(0x02, 0x03)
	return m
}

// SetField stores the field strength in the output registers, which
// are ordered X, Z, Y, big-endian.
func (m *Magnetometer) SetField(x, y, z int16) {
	var buf [6]byte
	binary.BigEndian.PutUint16(buf[0:], uint16(x))
	binary.BigEndian.PutUint16(buf[2:], uint16(z))
	binary.BigEndian.PutUint16(buf[4:], uint16(y))
	m.Set(0x03, buf[:]...)
}

// Continuous tells whether continuous-conversion mode is selected.
func (m *Magnetometer) Continuous() bool {
	return m.Get(0x02)&0x03 == 0
}
