package frame

import (
	"encoding/binary"

	"github.com/lanternmq/amqp1/amqptype"
)

// Source is the minimal shape the parser needs from the inbound buffer:
// enough to look ahead at a header without consuming it, and to consume
// exactly what a complete frame occupies once it has arrived in full.
type Source interface {
	Peek(n int) ([]byte, error)
	Read(n int) ([]byte, error)
	Readable() int
}

// Frame is a fully framed, but not yet performative-decoded, unit: the
// header plus everything after the extended header, which for most
// frames is just the described performative and for transfer frames is
// the performative followed by message payload.
type Frame struct {
	Header Header
	Body   []byte
}

// Parser turns a byte stream into a sequence of Frames. It is staged as
// HEADER -> FRAME_SIZE -> FRAME_BUFFER (when the buffered bytes fall
// short of the declared size) -> FRAME_BODY, looping back to HEADER for
// the next frame. A fatal error sinks the parser: every subsequent call
// to Next returns ErrSink without touching the source.
type Parser struct {
	maxFrameSize uint32
	failed       bool
}

// NewParser builds a parser that rejects frames over maxFrameSize. A
// maxFrameSize of 0 means no bound is enforced yet (used before
// negotiation completes).
func NewParser(maxFrameSize uint32) *Parser {
	return &Parser{maxFrameSize: maxFrameSize}
}

// SetMaxFrameSize updates the enforced bound, called once open/begin
// negotiation completes.
func (p *Parser) SetMaxFrameSize(n uint32) { p.maxFrameSize = n }

// Next attempts to parse one frame out of src. It returns (nil, nil)
// when src does not yet hold a complete frame ("need more data"); the
// caller should call Next again after the next read from the transport.
func (p *Parser) Next(src Source) (*Frame, error) {
	if p.failed {
		return nil, ErrSink
	}

	if src.Readable() < HeaderSize {
		return nil, nil
	}
	peeked, err := src.Peek(HeaderSize)
	if err != nil {
		return nil, nil
	}

	size := binary.BigEndian.Uint32(peeked[0:4])
	doff := peeked[4]
	typ := peeked[5]
	ch := binary.BigEndian.Uint16(peeked[6:8])

	if size < MinSize {
		p.failed = true
		return nil, ErrFrameTooSmall
	}
	if p.maxFrameSize > 0 && size > p.maxFrameSize {
		p.failed = true
		return nil, ErrFrameTooLarge
	}
	if uint32(doff)*4 < HeaderSize || uint32(doff)*4 > size {
		p.failed = true
		return nil, ErrBadDataOffset
	}

	if src.Readable() < int(size) {
		return nil, nil
	}

	whole, err := src.Read(int(size))
	if err != nil {
		p.failed = true
		return nil, err
	}

	bodyStart := int(doff) * 4
	h := Header{Size: size, DataOffset: doff, Type: amqptype.FrameType(typ), Channel: ch}
	return &Frame{Header: h, Body: whole[bodyStart:]}, nil
}

// Failed reports whether a fatal parse error has sunk the parser.
func (p *Parser) Failed() bool { return p.failed }
