// Package spi adapts a try-once full-duplex byte bus into suspendable
// operations.
package spi

import (
	"errors"

	"github.com/robotalks/wonder.go/pkg/exec"
	"github.com/robotalks/wonder.go/pkg/hal"
)

// Bus owns exclusive access to a byte bus.
type Bus struct {
	dev hal.FullDuplex
}

// NewBus wraps dev.
func NewBus(dev hal.FullDuplex) *Bus {
	return &Bus{dev: dev}
}

// Read receives one byte.
func (b *Bus) Read() *ReadOp {
	return &ReadOp{dev: b.dev}
}

// Write sends one byte.
func (b *Bus) Write(v byte) *WriteOp {
	return &WriteOp{dev: b.dev, v: v}
}

// Transfer exchanges buf in place: for every position the byte is sent
// then the received byte overwrites it. It resolves with buf.
func (b *Bus) Transfer(buf []byte) *TransferOp {
	return &TransferOp{dev: b.dev, buf: buf}
}

// ReadOp is a pending single byte receive.
type ReadOp struct {
	dev    hal.FullDuplex
	result exec.Result[byte]
}

// Poll implements exec.Future.
func (op *ReadOp) Poll(cx *exec.Context) exec.Result[byte] {
	if op.result.Done {
		return op.result
	}
	v, err := op.dev.TryReceive()
	switch {
	case err == nil:
		op.result = exec.Ready(v)
	case errors.Is(err, hal.ErrWouldBlock):
		cx.WakeSelf()
		return exec.Pending[byte]()
	default:
		op.result = exec.Failed[byte](err)
	}
	return op.result
}

// WriteOp is a pending single byte send.
type WriteOp struct {
	dev    hal.FullDuplex
	v      byte
	result exec.Result[struct{}]
}

// Poll implements exec.Future.
func (op *WriteOp) Poll(cx *exec.Context) exec.Result[struct{}] {
	if op.result.Done {
		return op.result
	}
	err := op.dev.TrySend(op.v)
	switch {
	case err == nil:
		op.result = exec.Ready(struct{}{})
	case errors.Is(err, hal.ErrWouldBlock):
		cx.WakeSelf()
		return exec.Pending[struct{}]()
	default:
		op.result = exec.Failed[struct{}](err)
	}
	return op.result
}

type transferPhase int

const (
	phaseSend transferPhase = iota
	phaseReceive
	phaseDone
	phaseFailed
)

// TransferOp is a pending in-place full-duplex exchange.
type TransferOp struct {
	dev   hal.FullDuplex
	buf   []byte
	pos   int
	phase transferPhase
	err   error
}

// Poll implements exec.Future.
func (op *TransferOp) Poll(cx *exec.Context) exec.Result[[]byte] {
	for op.phase != phaseDone && op.phase != phaseFailed {
		if op.pos >= len(op.buf) {
			op.phase = phaseDone
			break
		}
		var err error
		switch op.phase {
		case phaseSend:
			if err = op.dev.TrySend(op.buf[op.pos]); err == nil {
				op.phase = phaseReceive
			}
		case phaseReceive:
			var v byte
			if v, err = op.dev.TryReceive(); err == nil {
				op.buf[op.pos] = v
				op.pos++
				op.phase = phaseSend
			}
		}
		if errors.Is(err, hal.ErrWouldBlock) {
			cx.WakeSelf()
			return exec.Pending[[]byte]()
		}
		if err != nil {
			op.phase, op.err = phaseFailed, err
		}
	}
	if op.phase == phaseFailed {
		return exec.Failed[[]byte](op.err)
	}
	return exec.Ready(op.buf)
}

// Transferred returns the number of positions exchanged so far.
func (op *TransferOp) Transferred() int {
	return op.pos
}
