// Package frame implements the AMQP frame layer: the 8-byte header that
// wraps every performative, the 8-byte protocol header exchanged at
// connection start, and the streaming parser that turns a byte stream
// into a sequence of frame bodies.
package frame

import "github.com/lanternmq/amqp1/amqptype"

// MinSize is the smallest legal frame: the header with no extended
// header and no body.
const MinSize = 8

// HeaderSize is the width of the fixed frame header, before any
// extended header bytes named by DOFF.
const HeaderSize = 8

// Header is the 8-byte prefix of every AMQP and SASL frame.
type Header struct {
	Size       uint32
	DataOffset uint8
	Type       amqptype.FrameType
	Channel    uint16
}

type writer interface {
	WriteUint8(v uint8) error
	WriteUint16(v uint16) error
	WriteUint32(v uint32) error
}

type reader interface {
	ReadUint8() (uint8, error)
	ReadUint16() (uint16, error)
	ReadUint32() (uint32, error)
}

// EncodeHeader writes h's wire form.
func EncodeHeader(w writer, h Header) error {
	if err := w.WriteUint32(h.Size); err != nil {
		return err
	}
	if err := w.WriteUint8(h.DataOffset); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(h.Type)); err != nil {
		return err
	}
	return w.WriteUint16(h.Channel)
}

// DecodeHeader reads and validates a frame header. maxFrameSize of 0
// disables the upper bound check (used before negotiation completes).
func DecodeHeader(r reader, maxFrameSize uint32) (Header, error) {
	size, err := r.ReadUint32()
	if err != nil {
		return Header{}, err
	}
	doff, err := r.ReadUint8()
	if err != nil {
		return Header{}, err
	}
	typ, err := r.ReadUint8()
	if err != nil {
		return Header{}, err
	}
	ch, err := r.ReadUint16()
	if err != nil {
		return Header{}, err
	}

	h := Header{Size: size, DataOffset: doff, Type: amqptype.FrameType(typ), Channel: ch}
	if h.Size < MinSize {
		return Header{}, ErrFrameTooSmall
	}
	if maxFrameSize > 0 && h.Size > maxFrameSize {
		return Header{}, ErrFrameTooLarge
	}
	if uint32(h.DataOffset)*4 < HeaderSize || uint32(h.DataOffset)*4 > h.Size {
		return Header{}, ErrBadDataOffset
	}
	return h, nil
}
