package amqptype

import (
	"fmt"
	"math"
	"time"

	"github.com/lanternmq/amqp1/buffer"
)

// Describer is implemented by Go types that encode as an AMQP described
// type: performatives, messaging sections, Source/Target/Error. Encode
// writes Descriptor() then recurses into Body().
type Describer interface {
	Descriptor() any
	Body() any
}

// Encode writes v's AMQP wire encoding to w. Supported Go representations
// are documented on the package-level types in value.go; an unsupported
// Go type is a programmer error and returns a non-nil error rather than
// panicking.
func Encode(w Writer, v any) error {
	if d, ok := v.(Describer); ok {
		if err := w.WriteUint8(uint8(CodeDescribed)); err != nil {
			return err
		}
		if err := Encode(w, d.Descriptor()); err != nil {
			return err
		}
		return Encode(w, d.Body())
	}

	switch t := v.(type) {
	case nil:
		return w.WriteUint8(uint8(CodeNull))
	case bool:
		if t {
			return w.WriteUint8(uint8(CodeBoolTrue))
		}
		return w.WriteUint8(uint8(CodeBoolFalse))
	case uint8:
		return writeFixed1(w, CodeUbyte, t)
	case int8:
		return writeFixed1(w, CodeByte, uint8(t))
	case uint16:
		return writeFixed2(w, CodeUshort, t)
	case int16:
		return writeFixed2(w, CodeShort, uint16(t))
	case uint32:
		return writeFixed4(w, CodeUint, t)
	case int32:
		return writeFixed4(w, CodeInt, uint32(t))
	case uint64:
		return writeFixed8(w, CodeUlong, t)
	case int64:
		return writeFixed8(w, CodeLong, uint64(t))
	case float32:
		return writeFixed4(w, CodeFloat, math.Float32bits(t))
	case float64:
		return writeFixed8(w, CodeDouble, math.Float64bits(t))
	case Char:
		return writeFixed4(w, CodeChar, uint32(t))
	case Timestamp:
		return writeFixed8(w, CodeTimestamp, uint64(time.Time(t).UnixMilli()))
	case UUID:
		if err := w.WriteUint8(uint8(CodeUUID)); err != nil {
			return err
		}
		return w.Write(t[:])
	case []byte:
		return encodeBinaryLike(w, CodeVbin8, CodeVbin32, t)
	case string:
		return encodeBinaryLike(w, CodeStr8, CodeStr32, []byte(t))
	case Symbol:
		return encodeBinaryLike(w, CodeSym8, CodeSym32, []byte(t))
	case List:
		return encodeList(w, t)
	case Map:
		return encodeMap(w, t)
	case Array:
		return encodeArray(w, t)
	case Described:
		if err := w.WriteUint8(uint8(CodeDescribed)); err != nil {
			return err
		}
		if err := Encode(w, t.Descriptor); err != nil {
			return err
		}
		return Encode(w, t.Value)
	default:
		return fmt.Errorf("amqptype: encode: unsupported Go type %T", v)
	}
}

func writeFixed1(w Writer, code Constructor, v uint8) error {
	if err := w.WriteUint8(uint8(code)); err != nil {
		return err
	}
	return w.WriteUint8(v)
}

func writeFixed2(w Writer, code Constructor, v uint16) error {
	if err := w.WriteUint8(uint8(code)); err != nil {
		return err
	}
	return w.WriteUint16(v)
}

func writeFixed4(w Writer, code Constructor, v uint32) error {
	if err := w.WriteUint8(uint8(code)); err != nil {
		return err
	}
	return w.WriteUint32(v)
}

func writeFixed8(w Writer, code Constructor, v uint64) error {
	if err := w.WriteUint8(uint8(code)); err != nil {
		return err
	}
	return w.WriteUint64(v)
}

func encodeBinaryLike(w Writer, small, large Constructor, p []byte) error {
	if len(p) <= math.MaxUint8 {
		if err := w.WriteUint8(uint8(small)); err != nil {
			return err
		}
		if err := w.WriteUint8(uint8(len(p))); err != nil {
			return err
		}
		return w.Write(p)
	}
	if err := w.WriteUint8(uint8(large)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(p))); err != nil {
		return err
	}
	return w.Write(p)
}

func encodeList(w Writer, l List) error {
	if len(l) == 0 {
		return w.WriteUint8(uint8(CodeList0))
	}
	body, err := encodeElements(l)
	if err != nil {
		return err
	}
	return writeCountedBody(w, CodeList8, CodeList32, len(l), body)
}

func encodeMap(w Writer, m Map) error {
	flat := make([]any, 0, len(m)*2)
	for _, e := range m {
		flat = append(flat, e.Key, e.Value)
	}
	body, err := encodeElements(flat)
	if err != nil {
		return err
	}
	return writeCountedBody(w, CodeMap8, CodeMap32, len(flat), body)
}

func encodeArray(w Writer, a Array) error {
	body := buffer.New()
	for _, item := range a.Items {
		if err := encodeBareBody(body, a.Elem, item); err != nil {
			return err
		}
	}
	count := len(a.Items)
	size := body.Len() + 1 // constructor byte + elements
	if count <= math.MaxUint8 && size <= math.MaxUint8 {
		if err := w.WriteUint8(uint8(CodeArray8)); err != nil {
			return err
		}
		if err := w.WriteUint8(uint8(size)); err != nil {
			return err
		}
		if err := w.WriteUint8(uint8(count)); err != nil {
			return err
		}
	} else {
		if err := w.WriteUint8(uint8(CodeArray32)); err != nil {
			return err
		}
		if err := w.WriteUint32(uint32(size)); err != nil {
			return err
		}
		if err := w.WriteUint32(uint32(count)); err != nil {
			return err
		}
	}
	if err := w.WriteUint8(uint8(a.Elem)); err != nil {
		return err
	}
	return w.Write(body.Bytes())
}

// encodeBareBody writes an array element's body without its constructor
// byte, since the array shares one constructor across all elements.
func encodeBareBody(w Writer, code Constructor, v any) error {
	scratch := buffer.New()
	if err := Encode(scratch, v); err != nil {
		return err
	}
	b := scratch.Bytes()
	if len(b) == 0 {
		return nil
	}
	return w.Write(b[1:])
}

func encodeElements(items []any) (*buffer.Buffer, error) {
	m := buffer.New()
	for _, it := range items {
		if err := Encode(m, it); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func writeCountedBody(w Writer, small, large Constructor, count int, body *buffer.Buffer) error {
	if count <= math.MaxUint8 && body.Len()+1 <= math.MaxUint8 {
		if err := w.WriteUint8(uint8(small)); err != nil {
			return err
		}
		if err := w.WriteUint8(uint8(body.Len() + 1)); err != nil {
			return err
		}
		if err := w.WriteUint8(uint8(count)); err != nil {
			return err
		}
		return w.Write(body.Bytes())
	}
	if err := w.WriteUint8(uint8(large)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(body.Len() + 4)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(count)); err != nil {
		return err
	}
	return w.Write(body.Bytes())
}
