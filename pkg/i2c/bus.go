// Package i2c adapts a flag-driven I2C controller into suspendable
// transactions.
//
// A transaction is started on its first poll and advances at most one
// byte per poll, as the controller raises its byte-ready flags. Faults
// are classified from the latched flags and cleared before the
// transaction resolves, so the bus is usable afterwards.
package i2c

import (
	"github.com/golang/glog"

	"github.com/robotalks/wonder.go/pkg/exec"
	"github.com/robotalks/wonder.go/pkg/hal"
)

// Bus is a handle to one target on an I2C controller.
type Bus struct {
	ctl  hal.I2CController
	addr uint8

	open *Transfer
	held bool
}

// NewBus creates a handle for the target at addr.
func NewBus(ctl hal.I2CController, addr uint8) *Bus {
	return &Bus{ctl: ctl, addr: addr}
}

// Addr returns the target address.
func (b *Bus) Addr() uint8 {
	return b.addr
}

// Held tells whether the last transfer left the bus held.
func (b *Bus) Held() bool {
	return b.held
}

// Write sends buf. With hold, the bus is kept after the last byte so
// the transfer can be continued with a repeated start.
func (b *Bus) Write(buf []byte, hold bool) *Transfer {
	mode := hal.AutoStop
	if hold {
		mode = hal.HoldBus
	}
	return &Transfer{bus: b, dir: hal.I2CWrite, mode: mode, buf: buf}
}

// Read fills buf and ends with a stop condition.
func (b *Bus) Read(buf []byte) *Transfer {
	return &Transfer{bus: b, dir: hal.I2CRead, mode: hal.AutoStop, buf: buf}
}

// WriteRead writes w keeping the bus, then reads into r with a repeated
// start. It resolves with r.
func (b *Bus) WriteRead(w, r []byte) *WriteReadOp {
	return &WriteReadOp{write: b.Write(w, true), rbuf: r}
}

// Release ends a held bus with a stop condition.
func (b *Bus) Release() {
	if b.held {
		b.held = false
		b.ctl.Stop()
	}
}

type state int

const (
	stateIdle state = iota
	stateTransmitting
	stateReceiving
	stateAwaitStop
	stateDone
	stateFailed
)

// Transfer is one I2C transaction.
type Transfer struct {
	bus  *Bus
	dir  hal.I2CDirection
	mode hal.StopMode
	buf  []byte

	pos   int
	state state
	err   error
}

// Poll implements exec.Future.
func (t *Transfer) Poll(cx *exec.Context) exec.Result[int] {
	if t.state == stateIdle {
		if err := t.begin(); err != nil {
			t.state, t.err = stateFailed, err
		}
	}
	switch t.state {
	case stateTransmitting, stateReceiving:
		t.step()
	case stateAwaitStop:
		t.awaitStop()
	}
	switch t.state {
	case stateDone:
		return exec.Ready(t.pos)
	case stateFailed:
		return exec.Failed[int](t.err)
	}
	cx.WakeSelf()
	return exec.Pending[int]()
}

// Transferred returns the number of bytes transferred so far.
func (t *Transfer) Transferred() int {
	return t.pos
}

// ContinueWithRead continues a completed hold-bus write with a read
// into buf after a repeated start. Any other use fails with ErrNotHeld.
func (t *Transfer) ContinueWithRead(buf []byte) *Transfer {
	next := t.bus.Read(buf)
	if !t.continuable() {
		next.state, next.err = stateFailed, ErrNotHeld
	}
	return next
}

// ContinueWithWrite is ContinueWithRead for another write.
func (t *Transfer) ContinueWithWrite(buf []byte, hold bool) *Transfer {
	next := t.bus.Write(buf, hold)
	if !t.continuable() {
		next.state, next.err = stateFailed, ErrNotHeld
	}
	return next
}

func (t *Transfer) continuable() bool {
	return t.state == stateDone && t.mode == hal.HoldBus && t.bus.held
}

func (t *Transfer) begin() error {
	switch {
	case t.bus.open != nil:
		return ErrBusy
	case len(t.buf) == 0:
		return ErrEmpty
	case len(t.buf) > hal.MaxI2CTransfer:
		return ErrTooLong
	}
	t.bus.open, t.bus.held = t, false
	// latches left by an earlier transaction belong to it, not to this one.
	// A nack on a final byte is only latched after that transfer resolved.
	t.bus.ctl.Clear(hal.I2CNack | hal.I2CArbitrationLost | hal.I2CBusError | hal.I2CStop)
	t.bus.ctl.Start(t.bus.addr, t.dir, len(t.buf), t.mode)
	if t.dir == hal.I2CWrite {
		t.state = stateTransmitting
	} else {
		t.state = stateReceiving
	}
	return nil
}

func (t *Transfer) step() {
	ctl := t.bus.ctl
	st := ctl.Status()
	switch {
	case t.state == stateTransmitting && st.Has(hal.I2CTxReady):
		ctl.Transmit(t.buf[t.pos])
		t.advance()
	case t.state == stateReceiving && st.Has(hal.I2CRxReady):
		t.buf[t.pos] = ctl.Receive()
		t.advance()
	case st.Has(hal.I2CArbitrationLost):
		ctl.Clear(hal.I2CArbitrationLost)
		t.fail(FaultArbitrationLost)
	case st.Has(hal.I2CBusError):
		ctl.Clear(hal.I2CBusError)
		t.fail(FaultBusError)
	case st.Has(hal.I2CNack):
		t.state = stateAwaitStop
		t.checkStop(st)
	}
}

func (t *Transfer) awaitStop() {
	t.checkStop(t.bus.ctl.Status())
}

func (t *Transfer) checkStop(st hal.I2CStatus) {
	if st.Has(hal.I2CStop) {
		t.bus.ctl.Clear(hal.I2CNack | hal.I2CStop)
		t.fail(FaultNack)
	}
}

func (t *Transfer) advance() {
	if t.pos++; t.pos < len(t.buf) {
		return
	}
	t.state = stateDone
	t.bus.open = nil
	t.bus.held = t.mode == hal.HoldBus
}

func (t *Transfer) fail(f Fault) {
	glog.V(2).Infof("i2c 0x%02x %s after %d/%d bytes: %v", t.bus.addr, t.dir, t.pos, len(t.buf), f)
	t.state, t.err = stateFailed, f
	t.bus.open, t.bus.held = nil, false
}

// WriteReadOp is a write keeping the bus followed by a read.
type WriteReadOp struct {
	write *Transfer
	read  *Transfer
	rbuf  []byte
}

// Poll implements exec.Future.
func (op *WriteReadOp) Poll(cx *exec.Context) exec.Result[[]byte] {
	if op.read == nil {
		r := op.write.Poll(cx)
		if !r.Done {
			return exec.Pending[[]byte]()
		}
		if r.Err != nil {
			return exec.Failed[[]byte](r.Err)
		}
		op.read = op.write.ContinueWithRead(op.rbuf)
	}
	r := op.read.Poll(cx)
	if !r.Done {
		return exec.Pending[[]byte]()
	}
	if r.Err != nil {
		return exec.Failed[[]byte](r.Err)
	}
	return exec.Ready(op.rbuf)
}
