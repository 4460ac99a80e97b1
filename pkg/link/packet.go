package link

import "io"

// frameSync starts every frame. Sequence numbers never take this value.
const frameSync byte = 0xff

// MaxDataLen is the maximum payload of a packet.
const MaxDataLen = 0x7f

// PacketSeq defines the type of packet sequence number.
type PacketSeq byte

// Next calculates the next sequence number.
func (s PacketSeq) Next() PacketSeq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return PacketSeq(n)
}

// IsValid checks if it's a valid sequence number.
func (s PacketSeq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

// Gap returns the number of sequence numbers skipped between s and a
// following next.
func (s PacketSeq) Gap(next PacketSeq) int {
	const span = 0xef
	return (int(next) - int(s.Next()) + span) % span
}

// Packet is one frame on the link.
type Packet struct {
	Seq  PacketSeq
	Code byte
	Data []byte
}

// Bytes returns the encoded frame.
func (p *Packet) Bytes() []byte {
	l := len(p.Data)
	b := make([]byte, 0, l+4)
	b = append(b, frameSync, byte(p.Seq))
	if l >= 7 {
		b = append(b, p.Code&0x0f|0x70, byte(l))
	} else {
		b = append(b, p.Code&0x0f|byte(l)<<4)
	}
	return append(b, p.Data...)
}

// WriteTo writes the encoded frame.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Bytes())
	return int64(n), err
}
