package amqptype

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Decode reads one AMQP value from r using reg to resolve described
// types. A nil reg decodes every described type as an opaque Described.
func Decode(r Reader, reg *Registry) (any, error) {
	code, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	return decodeBody(r, Constructor(code), reg)
}

func decodeBody(r Reader, code Constructor, reg *Registry) (any, error) {
	switch code {
	case CodeDescribed:
		descriptor, err := Decode(r, reg)
		if err != nil {
			return nil, err
		}
		value, err := Decode(r, reg)
		if err != nil {
			return nil, err
		}
		return reg.resolve(descriptor, value)

	case CodeNull:
		return nil, nil
	case CodeBoolTrue:
		return true, nil
	case CodeBoolFalse:
		return false, nil
	case CodeBool:
		v, err := r.ReadUint8()
		return v != 0, err

	case CodeUbyte:
		return r.ReadUint8()
	case CodeByte:
		v, err := r.ReadUint8()
		return int8(v), err

	case CodeUshort:
		return r.ReadUint16()
	case CodeShort:
		v, err := r.ReadUint16()
		return int16(v), err

	case CodeUint:
		return r.ReadUint32()
	case CodeSmallUint:
		v, err := r.ReadUint8()
		return uint32(v), err
	case CodeUint0:
		return uint32(0), nil
	case CodeInt:
		v, err := r.ReadUint32()
		return int32(v), err
	case CodeSmallInt:
		v, err := r.ReadUint8()
		return int32(int8(v)), err

	case CodeUlong:
		return r.ReadUint64()
	case CodeSmallUlong:
		v, err := r.ReadUint8()
		return uint64(v), err
	case CodeUlong0:
		return uint64(0), nil
	case CodeLong:
		v, err := r.ReadUint64()
		return int64(v), err
	case CodeSmallLong:
		v, err := r.ReadUint8()
		return int64(int8(v)), err

	case CodeFloat:
		v, err := r.ReadUint32()
		return math.Float32frombits(v), err
	case CodeDouble:
		v, err := r.ReadUint64()
		return math.Float64frombits(v), err

	case CodeChar:
		v, err := r.ReadUint32()
		return Char(rune(v)), err
	case CodeTimestamp:
		v, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		return Timestamp(time.UnixMilli(int64(v)).UTC()), nil
	case CodeUUID:
		p, err := r.Read(16)
		if err != nil {
			return nil, err
		}
		id, err := uuid.FromBytes(p)
		return UUID(id), err

	case CodeVbin8:
		return decodeBinary(r, 1)
	case CodeVbin32:
		return decodeBinary(r, 4)
	case CodeStr8:
		p, err := decodeBinary(r, 1)
		return string(p), err
	case CodeStr32:
		p, err := decodeBinary(r, 4)
		return string(p), err
	case CodeSym8:
		p, err := decodeBinary(r, 1)
		return Symbol(p), err
	case CodeSym32:
		p, err := decodeBinary(r, 4)
		return Symbol(p), err

	case CodeList0:
		return List{}, nil
	case CodeList8:
		return decodeList(r, 1, reg)
	case CodeList32:
		return decodeList(r, 4, reg)

	case CodeMap8:
		return decodeMap(r, 1, reg)
	case CodeMap32:
		return decodeMap(r, 4, reg)

	case CodeArray8:
		return decodeArray(r, 1, reg)
	case CodeArray32:
		return decodeArray(r, 4, reg)

	default:
		return nil, ErrUnknownConstructor
	}
}

func decodeBinary(r Reader, widthBytes int) ([]byte, error) {
	n, err := readSize(r, widthBytes)
	if err != nil {
		return nil, err
	}
	if n > r.Readable() {
		return nil, ErrTruncated
	}
	return r.Read(n)
}

func readSize(r Reader, widthBytes int) (int, error) {
	if widthBytes == 1 {
		v, err := r.ReadUint8()
		return int(v), err
	}
	v, err := r.ReadUint32()
	return int(v), err
}

// decodeList and decodeMap read a size then a count, then decode exactly
// count elements; size is validated against what was actually consumed.
func decodeList(r Reader, widthBytes int, reg *Registry) (List, error) {
	size, count, err := readSizeCount(r, widthBytes)
	if err != nil {
		return nil, err
	}
	start := r.Readable()
	items := make(List, 0, count)
	for i := 0; i < count; i++ {
		v, err := Decode(r, reg)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if start-r.Readable() != size-widthBytes {
		return nil, ErrMalformed
	}
	return items, nil
}

func decodeMap(r Reader, widthBytes int, reg *Registry) (Map, error) {
	size, count, err := readSizeCount(r, widthBytes)
	if err != nil {
		return nil, err
	}
	if count%2 != 0 {
		return nil, ErrMalformed
	}
	start := r.Readable()
	m := make(Map, 0, count/2)
	for i := 0; i < count/2; i++ {
		k, err := Decode(r, reg)
		if err != nil {
			return nil, err
		}
		v, err := Decode(r, reg)
		if err != nil {
			return nil, err
		}
		m = append(m, MapEntry{Key: k, Value: v})
	}
	if start-r.Readable() != size-widthBytes {
		return nil, ErrMalformed
	}
	return m, nil
}

func decodeArray(r Reader, widthBytes int, reg *Registry) (Array, error) {
	_, count, err := readSizeCount(r, widthBytes)
	if err == ErrMalformed {
		return Array{}, ErrArrayCount
	}
	if err != nil {
		return Array{}, err
	}
	elemCode, err := r.ReadUint8()
	if err != nil {
		return Array{}, err
	}
	items := make([]any, 0, count)
	for i := 0; i < count; i++ {
		v, err := decodeBody(r, Constructor(elemCode), reg)
		if err != nil {
			return Array{}, err
		}
		items = append(items, v)
	}
	return Array{Elem: Constructor(elemCode), Items: items}, nil
}

func readSizeCount(r Reader, widthBytes int) (size, count int, err error) {
	size, err = readSize(r, widthBytes)
	if err != nil {
		return 0, 0, err
	}
	count, err = readSize(r, widthBytes)
	if err != nil {
		return 0, 0, err
	}
	if count < 0 || count > size || count > r.Readable() {
		return 0, 0, ErrMalformed
	}
	return size, count, nil
}
