package link

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
)

// PacketHandler is called when a packet is received.
type PacketHandler interface {
	HandlePacket(context.Context, *Packet)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(context.Context, *Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// Stats counts what a Receiver has seen.
type Stats struct {
	Packets int
	Lost    int
	Resyncs int
}

// Receiver parses packets from a byte stream on the host side.
type Receiver struct {
	Reader  io.Reader
	Handler PacketHandler
	// Timeout drops a partial frame when the stream stalls.
	Timeout time.Duration
	Clock   clock.Clock

	parser Parser
	stats  Stats
	lock   sync.RWMutex
}

// NewReceiver creates a Receiver.
func NewReceiver(r io.Reader, h PacketHandler) *Receiver {
	return &Receiver{
		Reader:  r,
		Handler: h,
		Timeout: 100 * time.Millisecond,
		Clock:   clock.New(),
	}
}

// Stats returns the counters.
func (r *Receiver) Stats() Stats {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.stats
}

// Run implements framework.Runnable. It returns the error of the
// underlying reader, io.EOF at the end of the stream.
func (r *Receiver) Run(ctx context.Context) error {
	byteCh, errCh := make(chan byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.readLoop(subCtx, byteCh, errCh)

	var timer <-chan time.Time
	for {
		select {
		case b := <-byteCh:
			r.apply(ctx, r.parser.Parse(b))
			if r.parser.Receiving() {
				timer = r.Clock.After(r.Timeout)
			} else {
				timer = nil
			}
		case <-timer:
			r.apply(ctx, r.parser.Timeout())
			timer = nil
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Receiver) readLoop(ctx context.Context, byteCh chan byte, errCh chan error) {
	buf := make([]byte, 64)
	for {
		n, err := r.Reader.Read(buf)
		for _, b := range buf[:n] {
			select {
			case byteCh <- b:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (r *Receiver) apply(ctx context.Context, pr ParseResult) {
	r.lock.Lock()
	if pr.Resync {
		r.stats.Resyncs++
	}
	if pr.Packet != nil {
		r.stats.Packets++
		r.stats.Lost += pr.Lost
	}
	r.lock.Unlock()

	if pr.Resync {
		glog.V(2).Info("link: partial frame dropped")
	}
	if pr.Lost > 0 {
		glog.Warningf("link: %d frames lost before seq %d", pr.Lost, pr.Packet.Seq)
	}
	if pr.Packet != nil && r.Handler != nil {
		r.Handler.HandlePacket(ctx, pr.Packet)
	}
}
