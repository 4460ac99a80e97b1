package link

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type parserTestSequence struct {
	in    []byte
	final ParseResult
}

type parserTestSequenceBuilder struct {
	seq []parserTestSequence
}

func parserTestSequences() *parserTestSequenceBuilder {
	return &parserTestSequenceBuilder{}
}

func (b *parserTestSequenceBuilder) on(in ...byte) *parserTestSequenceBuilder {
	b.seq = append(b.seq, parserTestSequence{in: in})
	return b
}

func (b *parserTestSequenceBuilder) timeout() *parserTestSequenceBuilder {
	b.seq = append(b.seq, parserTestSequence{})
	return b
}

func (b *parserTestSequenceBuilder) final(pr ParseResult) *parserTestSequenceBuilder {
	b.seq[len(b.seq)-1].final = pr
	return b
}

func (b *parserTestSequenceBuilder) packet(seq, code byte, data ...byte) *parserTestSequenceBuilder {
	return b.final(ParseResult{Packet: &Packet{Seq: PacketSeq(seq), Code: code, Data: data}})
}

func (b *parserTestSequenceBuilder) lostPacket(lost int, seq, code byte, data ...byte) *parserTestSequenceBuilder {
	return b.final(ParseResult{Lost: lost, Packet: &Packet{Seq: PacketSeq(seq), Code: code, Data: data}})
}

func (b *parserTestSequenceBuilder) resync() *parserTestSequenceBuilder {
	return b.final(ParseResult{Resync: true})
}

func (b *parserTestSequenceBuilder) build() []parserTestSequence {
	return b.seq
}

func TestParser(t *testing.T) {
	testCases := []struct {
		name string
		seq  []parserTestSequence
	}{
		{
			name: "receive",
			seq: parserTestSequences().
				on(0xff, 1, 0x02).packet(1, 2).
				on(0xff, 2, 0x72, 0).packet(2, 2).
				on(0xff, 3, 0x13, 0xff).packet(3, 3, 0xff).
				on(0xff, 4, 0x72, 0x08, 1, 2, 3, 4, 5, 6, 7, 8).packet(4, 2, 1, 2, 3, 4, 5, 6, 7, 8).
				build(),
		},
		{
			name: "skip garbage before sync",
			seq: parserTestSequences().
				on(1, 2, 3, 0x80).
				on(0xff, 0xff, 1, 0x02).packet(1, 2).
				build(),
		},
		{
			name: "invalid seq",
			seq: parserTestSequences().
				on(0xff, 0xf0).resync().
				on(0xff, 1, 0x01).packet(1, 1).
				build(),
		},
		{
			name: "invalid data len",
			seq: parserTestSequences().
				on(0xff, 1, 0x70, 0x80).resync().
				on(1, 2, 3).
				on(0xff, 2, 0x02).packet(2, 2).
				build(),
		},
		{
			name: "timeout drops partial frame",
			seq: parserTestSequences().
				on(0xff, 1, 0x32, 1).
				timeout().resync().
				on(2, 0xff, 2, 0x02).packet(2, 2).
				build(),
		},
		{
			name: "timeout while idle",
			seq: parserTestSequences().
				timeout().
				on(0xff, 1, 0x02).packet(1, 2).
				build(),
		},
		{
			name: "lost frames",
			seq: parserTestSequences().
				on(0xff, 1, 0x02).packet(1, 2).
				on(0xff, 4, 0x02).lostPacket(2, 4, 2).
				on(0xff, 5, 0x02).packet(5, 2).
				build(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var parser Parser
			for n, s := range tc.seq {
				var pr ParseResult
				if l := len(s.in); l == 0 {
					pr = parser.Timeout()
				} else {
					for i, b := range s.in {
						pr = parser.Parse(b)
						if i+1 < l {
							require.Nilf(t, pr.Packet, "seq[%d][%d] unexpected packet", n, i)
						}
					}
				}
				require.Equalf(t, s.final, pr, "seq[%d] final mismatch", n)
			}
		})
	}
}
