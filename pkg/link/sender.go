package link

import (
	"errors"
	"sync/atomic"

	"github.com/robotalks/wonder.go/pkg/exec"
	"github.com/robotalks/wonder.go/pkg/spi"
)

// ErrTooLarge indicates a payload longer than MaxDataLen.
var ErrTooLarge = errors.New("link: payload too large")

// Sender writes packets to a byte bus from a task.
type Sender struct {
	bus  *spi.Bus
	seq  PacketSeq
	sent atomic.Int64
}

// NewSender creates a Sender starting at sequence 1.
func NewSender(bus *spi.Bus) *Sender {
	return &Sender{bus: bus, seq: PacketSeq(1)}
}

// Sent returns the number of packets completely written. It's safe to
// call from other goroutines.
func (s *Sender) Sent() int {
	return int(s.sent.Load())
}

// Send writes one packet byte by byte. The sequence number is assigned
// when Send is called.
func (s *Sender) Send(code byte, data []byte) exec.Task {
	if len(data) > MaxDataLen {
		return exec.Fail[struct{}](ErrTooLarge)
	}
	pkt := &Packet{Seq: s.seq, Code: code, Data: data}
	s.seq = s.seq.Next()
	return &sendOp{sender: s, frame: pkt.Bytes()}
}

type sendOp struct {
	sender *Sender
	frame  []byte
	pos    int
	cur    *spi.WriteOp
	err    error
}

func (op *sendOp) Poll(cx *exec.Context) exec.Result[struct{}] {
	if op.err != nil {
		return exec.Failed[struct{}](op.err)
	}
	for op.pos < len(op.frame) {
		if op.cur == nil {
			op.cur = op.sender.bus.Write(op.frame[op.pos])
		}
		r := op.cur.Poll(cx)
		if !r.Done {
			return exec.Pending[struct{}]()
		}
		if r.Err != nil {
			op.err = r.Err
			return exec.Failed[struct{}](r.Err)
		}
		op.cur = nil
		if op.pos++; op.pos == len(op.frame) {
			op.sender.sent.Add(1)
		}
	}
	return exec.Ready(struct{}{})
}
