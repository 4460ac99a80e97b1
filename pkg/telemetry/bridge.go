package telemetry

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/robotalks/wonder.go/pkg/link"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// WritePacketFunc is the func form of PacketWriter.
type WritePacketFunc func([]byte) error

// WritePacket implements PacketWriter.
func (f WritePacketFunc) WritePacket(pkt []byte) error {
	return f(pkt)
}

// BridgeStats counts what a Bridge has forwarded.
type BridgeStats struct {
	Samples     int
	Dropped     int
	WriteErrors int
}

// Bridge turns link packets into encoded samples for every writer.
type Bridge struct {
	Board   string
	Writers []PacketWriter
	Clock   clock.Clock

	stats BridgeStats
	lock  sync.Mutex
}

// NewBridge creates a Bridge stamping samples with board.
func NewBridge(board string, writers ...PacketWriter) *Bridge {
	return &Bridge{Board: board, Writers: writers, Clock: clock.New()}
}

// Stats returns the counters.
func (b *Bridge) Stats() BridgeStats {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.stats
}

// HandlePacket implements link.PacketHandler.
func (b *Bridge) HandlePacket(ctx context.Context, pkt *link.Packet) {
	s, err := FromPacket(pkt)
	if err != nil {
		glog.Warningf("drop packet seq %d: %v", pkt.Seq, err)
		b.count(func(st *BridgeStats) { st.Dropped++ })
		return
	}
	s.Board, s.Time = b.Board, b.Clock.Now()
	payload, err := Encode(s)
	if err != nil {
		glog.Errorf("encode sample: %v", err)
		b.count(func(st *BridgeStats) { st.Dropped++ })
		return
	}
	glog.V(3).Info(s)
	for _, w := range b.Writers {
		if err := w.WritePacket(payload); err != nil {
			glog.Errorf("write sample: %v", err)
			b.count(func(st *BridgeStats) { st.WriteErrors++ })
		}
	}
	b.count(func(st *BridgeStats) { st.Samples++ })
}

func (b *Bridge) count(fn func(*BridgeStats)) {
	b.lock.Lock()
	fn(&b.stats)
	b.lock.Unlock()
}
