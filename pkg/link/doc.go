// Package link provides the framed one-way telemetry link between the
// board and the host.
package link

// Frames are sent by board tasks through a byte bus (typically a UART)
// and parsed on the host from a plain io.Reader.
//
// Frame layout:
//
//	0xff | seq | code(bits 0-3) len(bits 4-6) | [len] | data
//
// When data is 7 bytes or longer the len field is 7 and the actual
// length follows in one byte (at most 0x7f).
//
// There is no handshake. Sequence numbers only detect lost frames,
// there's no retransmission and no checksum.
//
// Producer: board tasks (Sender)
// Consumer: host (Receiver)
