package link

// Parser reassembles packets from a byte stream, one byte at a time.
type Parser struct {
	state   parseState
	packet  *Packet
	recvLen byte
	lastSeq PacketSeq
}

// ParseResult indicates the result after one parsing step.
type ParseResult struct {
	Packet *Packet
	// Resync is set when a partial frame was dropped.
	Resync bool
	// Lost is the number of frames skipped before Packet.
	Lost int
}

type parseState int

const (
	stateSync parseState = iota // hunting for frameSync
	stateSeq                    // waiting for frame seq
	stateCode                   // waiting for code and short length
	stateLen                    // waiting for extended length
	stateData                   // waiting for data
)

// Receiving tells whether a frame is partially received.
func (p *Parser) Receiving() bool {
	return p.state != stateSync
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	switch p.state {
	case stateSync:
		if b == frameSync {
			p.state = stateSeq
		}
	case stateSeq:
		if b == frameSync {
			return
		}
		seq := PacketSeq(b)
		if !seq.IsValid() {
			return p.resync()
		}
		p.packet = &Packet{Seq: seq}
		p.state = stateCode
	case stateCode:
		p.packet.Code = b & 0x0f
		switch dataLen := (b >> 4) & 7; dataLen {
		case 0:
			return p.packetReady()
		case 7:
			p.state = stateLen
		default:
			p.packet.Data, p.recvLen = make([]byte, dataLen), 0
			p.state = stateData
		}
	case stateLen:
		if b > MaxDataLen {
			return p.resync()
		}
		if b == 0 {
			return p.packetReady()
		}
		p.packet.Data, p.recvLen = make([]byte, b), 0
		p.state = stateData
	case stateData:
		p.packet.Data[p.recvLen] = b
		p.recvLen++
		if p.recvLen >= byte(len(p.packet.Data)) {
			return p.packetReady()
		}
	}
	return
}

// Timeout drops a partially received frame.
func (p *Parser) Timeout() (pr ParseResult) {
	if p.state != stateSync {
		return p.resync()
	}
	return
}

func (p *Parser) resync() ParseResult {
	p.state, p.packet = stateSync, nil
	return ParseResult{Resync: true}
}

func (p *Parser) packetReady() (pr ParseResult) {
	p.state = stateSync
	pr.Packet, p.packet = p.packet, nil
	if p.lastSeq.IsValid() {
		pr.Lost = p.lastSeq.Gap(pr.Packet.Seq)
	}
	p.lastSeq = pr.Packet.Seq
	return
}
