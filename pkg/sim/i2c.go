package sim

import (
	"fmt"
	"sync"

	"github.com/robotalks/wonder.go/pkg/hal"
)

// I2CTarget is a device attached to a simulated I2C controller.
type I2CTarget interface {
	// Begin is called when the target is addressed.
	Begin(dir hal.I2CDirection)
	// Accept receives one byte and reports the acknowledge.
	Accept(b byte) bool
	// Supply returns the next byte to send to the controller.
	Supply() byte
	// End is called when the transaction ends with a stop condition
	// or is aborted.
	End()
}

// I2CEventKind classifies an I2CEvent.
type I2CEventKind int

// Bus conditions recorded by I2C.
const (
	I2CEventStart I2CEventKind = iota
	I2CEventStop
)

// I2CEvent is a recorded bus condition.
type I2CEvent struct {
	Kind I2CEventKind
	Addr uint8
	Dir  hal.I2CDirection
	N    int
	Mode hal.StopMode
}

func (e I2CEvent) String() string {
	if e.Kind == I2CEventStop {
		return "stop"
	}
	return fmt.Sprintf("start(0x%02x %s %d)", e.Addr, e.Dir, e.N)
}

// I2C is a simulated I2C controller implementing hal.I2CController.
type I2C struct {
	// Latency is the number of status reads before each byte slot
	// becomes ready, emulating clock stretching.
	Latency int
	// StopDelay is the number of status reads between a not-acknowledge
	// and the completion of the stop condition.
	StopDelay int

	targets map[uint8]I2CTarget

	status    hal.I2CStatus
	active    bool
	held      bool
	target    I2CTarget
	dir       hal.I2CDirection
	mode      hal.StopMode
	remaining int
	wait      int
	rxByte    byte

	stopPending bool
	stopWait    int

	fault  hal.I2CStatus
	events []I2CEvent
	lock   sync.Mutex
}

// NewI2C creates a controller without targets.
func NewI2C() *I2C {
	return &I2C{targets: make(map[uint8]I2CTarget)}
}

// Attach puts target on the bus at addr.
func (c *I2C) Attach(addr uint8, target I2CTarget) *I2C {
	c.lock.Lock()
	c.targets[addr] = target
	c.lock.Unlock()
	return c
}

// InjectFault latches one of hal.I2CArbitrationLost, hal.I2CBusError or
// hal.I2CNack during the current or next transaction.
func (c *I2C) InjectFault(f hal.I2CStatus) {
	c.lock.Lock()
	c.fault = f
	c.lock.Unlock()
}

// Events returns the recorded bus conditions.
func (c *I2C) Events() []I2CEvent {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]I2CEvent(nil), c.events...)
}

// Count returns how many events of kind have been recorded.
func (c *I2C) Count(kind I2CEventKind) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Held tells whether a transfer ended with the bus held.
func (c *I2C) Held() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.held
}

// Start implements hal.I2CController.
func (c *I2C) Start(addr uint8, dir hal.I2CDirection, n int, mode hal.StopMode) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.stopPending {
		// the stop after a nack goes out ahead of the new start condition.
		c.stopPending = false
		c.stop()
		c.status &^= hal.I2CStop
	}
	c.events = append(c.events, I2CEvent{Kind: I2CEventStart, Addr: addr, Dir: dir, N: n, Mode: mode})
	c.held = false
	c.status &^= hal.I2CTransferComplete | hal.I2CTxReady | hal.I2CRxReady
	target, ok := c.targets[addr]
	if !ok {
		c.nack()
		return
	}
	if c.target != nil && c.target != target {
		c.target.End()
	}
	target.Begin(dir)
	c.target, c.active = target, true
	c.dir, c.mode, c.remaining, c.wait = dir, mode, n, c.Latency
}

// Status implements hal.I2CController.
func (c *I2C) Status() hal.I2CStatus {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.active && c.fault != 0 {
		c.applyFault()
	}
	if c.stopPending {
		if c.stopWait > 0 {
			c.stopWait--
		} else {
			c.stopPending = false
			c.stop()
		}
	}
	if c.active && c.status&(hal.I2CTxReady|hal.I2CRxReady) == 0 {
		if c.wait > 0 {
			c.wait--
		} else if c.dir == hal.I2CWrite {
			c.status |= hal.I2CTxReady
		} else {
			c.rxByte = c.target.Supply()
			c.status |= hal.I2CRxReady
		}
	}
	return c.status
}

// Transmit implements hal.I2CController.
func (c *I2C) Transmit(b byte) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.active || c.status&hal.I2CTxReady == 0 {
		return
	}
	c.status &^= hal.I2CTxReady
	c.remaining--
	if !c.target.Accept(b) {
		c.nack()
		return
	}
	c.advance()
}

// Receive implements hal.I2CController.
func (c *I2C) Receive() byte {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.active || c.status&hal.I2CRxReady == 0 {
		return c.rxByte
	}
	c.status &^= hal.I2CRxReady
	c.remaining--
	c.advance()
	return c.rxByte
}

// Clear implements hal.I2CController.
func (c *I2C) Clear(f hal.I2CStatus) {
	c.lock.Lock()
	c.status &^= f
	c.lock.Unlock()
}

// Stop implements hal.I2CController.
func (c *I2C) Stop() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.held {
		return
	}
	c.held = false
	c.status &^= hal.I2CTransferComplete
	c.stop()
}

func (c *I2C) advance() {
	if c.remaining > 0 {
		c.wait = c.Latency
		return
	}
	c.active = false
	if c.mode == hal.AutoStop {
		c.stop()
		return
	}
	c.held = true
	c.status |= hal.I2CTransferComplete
}

func (c *I2C) nack() {
	c.active = false
	c.status |= hal.I2CNack
	c.stopPending, c.stopWait = true, c.StopDelay
}

func (c *I2C) stop() {
	c.status |= hal.I2CStop
	c.events = append(c.events, I2CEvent{Kind: I2CEventStop})
	if c.target != nil {
		c.target.End()
		c.target = nil
	}
}

func (c *I2C) applyFault() {
	f := c.fault
	c.fault = 0
	if f == hal.I2CNack {
		c.nack()
		return
	}
	c.active = false
	c.status |= f
	if c.target != nil {
		c.target.End()
		c.target = nil
	}
}

// Registers is an I2C target exposing a register file. The first byte
// of a write sets the register pointer, which auto-increments.
type Registers struct {
	// RefuseWrites makes the target not acknowledge data bytes.
	RefuseWrites bool

	regs    [256]byte
	ptr     byte
	pointer bool
	lock    sync.Mutex
}

// Begin implements I2CTarget.
func (r *Registers) Begin(dir hal.I2CDirection) {
	r.lock.Lock()
	r.pointer = dir == hal.I2CWrite
	r.lock.Unlock()
}

// Accept implements I2CTarget.
func (r *Registers) Accept(b byte) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.pointer {
		r.ptr, r.pointer = b, false
		return true
	}
	if r.RefuseWrites {
		return false
	}
	r.regs[r.ptr] = b
	r.ptr++
	return true
}

// Supply implements I2CTarget.
func (r *Registers) Supply() byte {
	r.lock.Lock()
	defer r.lock.Unlock()
	b := r.regs[r.ptr]
	r.ptr++
	return b
}

// End implements I2CTarget.
func (r *Registers) End() {}

// Set stores vals starting at register reg.
func (r *Registers) Set(reg byte, vals ...byte) {
	r.lock.Lock()
	for _, v := range vals {
		r.regs[reg] = v
		reg++
	}
	r.lock.Unlock()
}

// Get reads register reg.
func (r *Registers) Get(reg byte) byte {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.regs[reg]
}
