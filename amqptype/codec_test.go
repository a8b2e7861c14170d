package amqptype

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternmq/amqp1/buffer"
)

func roundTrip(t *testing.T, v any) any {
	t.Helper()
	b := buffer.New()
	require.NoError(t, Encode(b, v))
	got, err := Decode(b, nil)
	require.NoError(t, err)
	return got
}

func TestPrimitiveRoundTrip(t *testing.T) {
	assert.Equal(t, nil, roundTrip(t, nil))
	assert.Equal(t, true, roundTrip(t, true))
	assert.Equal(t, false, roundTrip(t, false))
	assert.Equal(t, uint8(200), roundTrip(t, uint8(200)))
	assert.Equal(t, int8(-5), roundTrip(t, int8(-5)))
	assert.Equal(t, uint16(1000), roundTrip(t, uint16(1000)))
	assert.Equal(t, int16(-1000), roundTrip(t, int16(-1000)))
	assert.Equal(t, uint32(100000), roundTrip(t, uint32(100000)))
	assert.Equal(t, int32(-100000), roundTrip(t, int32(-100000)))
	assert.Equal(t, uint64(1)<<40, roundTrip(t, uint64(1)<<40))
	assert.Equal(t, int64(-(1 << 40)), roundTrip(t, int64(-(1 << 40))))
	assert.Equal(t, float32(1.5), roundTrip(t, float32(1.5)))
	assert.Equal(t, 2.5, roundTrip(t, 2.5))
	assert.Equal(t, Char('x'), roundTrip(t, Char('x')))
	assert.Equal(t, "hello world", roundTrip(t, "hello world"))
	assert.Equal(t, Symbol("amqp"), roundTrip(t, Symbol("amqp")))
	assert.Equal(t, []byte{1, 2, 3}, roundTrip(t, []byte{1, 2, 3}))
}

func TestUUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	got := roundTrip(t, UUID(id))
	assert.Equal(t, UUID(id), got)
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := Timestamp(time.UnixMilli(1700000000123).UTC())
	got := roundTrip(t, ts)
	assert.Equal(t, time.Time(ts).UnixMilli(), time.Time(got.(Timestamp)).UnixMilli())
}

func TestListRoundTrip(t *testing.T) {
	l := List{uint32(1), "two", true, nil}
	got := roundTrip(t, l)
	assert.Equal(t, l, got)
}

func TestEmptyListRoundTrip(t *testing.T) {
	got := roundTrip(t, List{})
	assert.Equal(t, List{}, got)
}

func TestMapRoundTrip(t *testing.T) {
	m := Map{{Key: Symbol("k1"), Value: uint32(1)}, {Key: Symbol("k2"), Value: "v2"}}
	got := roundTrip(t, m)
	assert.Equal(t, m, got)
}

func TestArrayRoundTrip(t *testing.T) {
	a := Array{Elem: CodeUint, Items: []any{uint32(1), uint32(2), uint32(3)}}
	got := roundTrip(t, a)
	assert.Equal(t, a, got)
}

func TestLargeBinaryUsesVbin32(t *testing.T) {
	p := make([]byte, 300)
	for i := range p {
		p[i] = byte(i)
	}
	b := buffer.New()
	require.NoError(t, Encode(b, p))
	assert.Equal(t, uint8(CodeVbin32), b.Bytes()[0])

	got := roundTrip(t, p)
	assert.Equal(t, p, got)
}

type fakePerformative struct {
	Name string
}

func (f fakePerformative) Descriptor() any { return uint64(0x99) }
func (f fakePerformative) Body() any       { return List{f.Name} }

func TestDescribedTypeRoundTripWithRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(uint64(0x99), func(v any) (any, error) {
		l := v.(List)
		return fakePerformative{Name: l[0].(string)}, nil
	})

	b := buffer.New()
	require.NoError(t, Encode(b, fakePerformative{Name: "open"}))

	got, err := Decode(b, reg)
	require.NoError(t, err)
	assert.Equal(t, fakePerformative{Name: "open"}, got)
}

func TestUnknownDescriptorDecodesAsOpaque(t *testing.T) {
	b := buffer.New()
	require.NoError(t, Encode(b, Described{Descriptor: uint64(0x1234), Value: List{uint32(1)}}))

	got, err := Decode(b, NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, Described{Descriptor: uint64(0x1234), Value: List{uint32(1)}}, got)
}

func TestMalformedMapOddCount(t *testing.T) {
	b := buffer.New()
	require.NoError(t, b.WriteUint8(uint8(CodeMap8)))
	require.NoError(t, b.WriteUint8(2)) // size
	require.NoError(t, b.WriteUint8(1)) // count: odd
	_, err := Decode(b, nil)
	assert.ErrorIs(t, err, ErrMalformed)
}
