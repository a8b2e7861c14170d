package buffer

import (
	"encoding/binary"
	"math"
)

// byteWriter and byteReader are the minimal shape both Buffer and
// CompositeBuffer satisfy; the typed helpers below are written once
// against this shape instead of being duplicated per concrete type.
type byteWriter interface {
	Write(p []byte) error
}

type byteReader interface {
	Read(n int) ([]byte, error)
}

func putUint8(w byteWriter, v uint8) error { return w.Write([]byte{v}) }

func putUint16(w byteWriter, v uint16) error {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return w.Write(tmp[:])
}

func putUint32(w byteWriter, v uint32) error {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return w.Write(tmp[:])
}

func putUint64(w byteWriter, v uint64) error {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return w.Write(tmp[:])
}

func getUint8(r byteReader) (uint8, error) {
	p, err := r.Read(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func getUint16(r byteReader) (uint16, error) {
	p, err := r.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

func getUint32(r byteReader) (uint32, error) {
	p, err := r.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

func getUint64(r byteReader) (uint64, error) {
	p, err := r.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(p), nil
}

// WriteUint8 appends an unsigned 8-bit integer.
func (b *Buffer) WriteUint8(v uint8) error { return putUint8(b, v) }

// WriteInt8 appends a signed 8-bit integer.
func (b *Buffer) WriteInt8(v int8) error { return putUint8(b, uint8(v)) }

// WriteBool appends a single-byte boolean (0x00/0x01).
func (b *Buffer) WriteBool(v bool) error {
	if v {
		return putUint8(b, 1)
	}
	return putUint8(b, 0)
}

// WriteUint16 appends a big-endian unsigned 16-bit integer.
func (b *Buffer) WriteUint16(v uint16) error { return putUint16(b, v) }

// WriteInt16 appends a big-endian signed 16-bit integer.
func (b *Buffer) WriteInt16(v int16) error { return putUint16(b, uint16(v)) }

// WriteUint32 appends a big-endian unsigned 32-bit integer.
func (b *Buffer) WriteUint32(v uint32) error { return putUint32(b, v) }

// WriteInt32 appends a big-endian signed 32-bit integer.
func (b *Buffer) WriteInt32(v int32) error { return putUint32(b, uint32(v)) }

// WriteUint64 appends a big-endian unsigned 64-bit integer.
func (b *Buffer) WriteUint64(v uint64) error { return putUint64(b, v) }

// WriteInt64 appends a big-endian signed 64-bit integer.
func (b *Buffer) WriteInt64(v int64) error { return putUint64(b, uint64(v)) }

// WriteFloat32 appends an IEEE-754 binary32 value.
func (b *Buffer) WriteFloat32(v float32) error { return putUint32(b, math.Float32bits(v)) }

// WriteFloat64 appends an IEEE-754 binary64 value.
func (b *Buffer) WriteFloat64(v float64) error { return putUint64(b, math.Float64bits(v)) }

// ReadUint8 reads an unsigned 8-bit integer.
func (b *Buffer) ReadUint8() (uint8, error) { return getUint8(b) }

// ReadInt8 reads a signed 8-bit integer.
func (b *Buffer) ReadInt8() (int8, error) {
	v, err := getUint8(b)
	return int8(v), err
}

// ReadBool reads a single-byte boolean.
func (b *Buffer) ReadBool() (bool, error) {
	v, err := getUint8(b)
	return v != 0, err
}

// ReadUint16 reads a big-endian unsigned 16-bit integer.
func (b *Buffer) ReadUint16() (uint16, error) { return getUint16(b) }

// ReadInt16 reads a big-endian signed 16-bit integer.
func (b *Buffer) ReadInt16() (int16, error) {
	v, err := getUint16(b)
	return int16(v), err
}

// ReadUint32 reads a big-endian unsigned 32-bit integer.
func (b *Buffer) ReadUint32() (uint32, error) { return getUint32(b) }

// ReadInt32 reads a big-endian signed 32-bit integer.
func (b *Buffer) ReadInt32() (int32, error) {
	v, err := getUint32(b)
	return int32(v), err
}

// ReadUint64 reads a big-endian unsigned 64-bit integer.
func (b *Buffer) ReadUint64() (uint64, error) { return getUint64(b) }

// ReadInt64 reads a big-endian signed 64-bit integer.
func (b *Buffer) ReadInt64() (int64, error) {
	v, err := getUint64(b)
	return int64(v), err
}

// ReadFloat32 reads an IEEE-754 binary32 value.
func (b *Buffer) ReadFloat32() (float32, error) {
	v, err := getUint32(b)
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE-754 binary64 value.
func (b *Buffer) ReadFloat64() (float64, error) {
	v, err := getUint64(b)
	return math.Float64frombits(v), err
}
